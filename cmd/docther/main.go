// Command docther is the women's health assistant CLI: an interactive chat
// backed by MCP tool servers, plus symptom tracking and user management.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A .env in the working directory is a convenience for local runs;
	// absence is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "docther:", err)
		os.Exit(1)
	}
}
