/*
Copyright © 2024 Dean
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "evalrag",
	Short: "Retrieval-augmented question answering with built-in evaluation",
	Long: `evalrag serves retrieval-augmented question answering over an ingested
corpus and evaluates answer quality against labeled datasets with an
LLM judge.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
