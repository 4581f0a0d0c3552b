/*
Copyright © 2024 Dean
*/
package main

import "evalrag/cmd"

func main() {
	cmd.Execute()
}
