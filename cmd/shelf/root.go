package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Declarative content backend with an admin surface",
	Long: `Shelf turns a declarative configuration of lists and fields into a
running content backend: storage tables, a JSON API, session-based
authentication, and a first-run setup flow.

Quick start:
  shelf validate    # Check the configuration
  shelf serve       # Start the server`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "shelf.yaml", "config file path")
}
