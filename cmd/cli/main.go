package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mjuvonen/truthseeker/cmd/cli/cases"
	"github.com/mjuvonen/truthseeker/cmd/cli/pool"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(pool.Group)
	rootCmd.AddCommand(pool.Validate)
	rootCmd.AddGroup(cases.Group)
	rootCmd.AddCommand(cases.Generate)
}

var rootCmd = &cobra.Command{
	Use:  "truthseeker-cli",
	Long: `Command line utilities for the Truth Seeker case engine`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
