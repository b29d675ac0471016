package main

import (
	"os"

	"github.com/wonny/krxquery/cmd/krxq/commands"
)

// main is the entry point for the krxq CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/krxq [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
