package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codesum",
	Short: "Codesum - summarize a codebase into one JSON document",
	Long: `Codesum walks a project directory, filters files through ignore rules,
and writes a structured summary of every kept file: its path, the functions,
classes and comments it declares, and its raw content.

The summary is meant to be handed to tools (or people) that need a compact
picture of a codebase.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
