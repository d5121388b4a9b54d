package main

import (
	"fmt"
	"os"

	"github.com/crucial707/dermalens/cmd/cli/analyze"
	"github.com/crucial707/dermalens/cmd/cli/auth"
	"github.com/crucial707/dermalens/cmd/cli/dbcmd"
	"github.com/crucial707/dermalens/cmd/cli/history"
	"github.com/crucial707/dermalens/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	analyze.InitAnalyze(rootCmd)
	history.InitHistory(rootCmd)
	dbcmd.InitDB(rootCmd)

	// Execute the root Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
