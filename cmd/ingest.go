/*
Copyright © 2024 Dean
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evalrag/src/core/corpus"
	"evalrag/src/infrastructure/integrations/ollama"
	"evalrag/src/storage/minioctrl"
	"evalrag/src/storage/postgres/documentctrl"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents into the corpus",
	Long: `The ingest command splits the given text files into chunks, embeds them and
writes them to the vector index. Re-ingesting a file replaces its chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	settingDefaultConfig()
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openDatabase()
	if err != nil {
		return err
	}

	docService, err := documentctrl.NewDocumentService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize document service: %v", err)
	}

	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %v", err)
	}

	index, ensureIndex, err := newVectorIndex()
	if err != nil {
		return err
	}
	if err := ensureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure vector index schema: %v", err)
	}

	oc := newOllamaClient()
	embedder := ollama.NewEmbeddingProvider(oc, viper.GetString("models.embedding"))

	var bar *progressbar.ProgressBar
	service := corpus.NewService(
		docService,
		minioService,
		embedder,
		index,
		chunkConfigFromViper(),
		corpus.WithProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "embedding")
			}
			bar.Set(done)
		}),
	)

	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", path, err)
		}

		bar = nil
		sourceURI := filepath.Base(path)
		doc, err := service.IngestText(ctx, sourceURI, string(content))
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %v", path, err)
		}
		fmt.Printf("Ingested %s: document %d, %d chunks\n", path, doc.ID, doc.ChunkCount)
	}

	return nil
}
