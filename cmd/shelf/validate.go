package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelf-cms/shelf/config"
	"github.com/shelf-cms/shelf/core/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the shelf configuration.

Checks:
  - YAML syntax is valid
  - Every list and field definition is well-formed
  - Relationship references resolve
  - Auth fields exist with the right kinds and indexes

All problems are reported at once, not just the first.

Examples:
  shelf validate
  shelf validate --config /etc/shelf/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Configuration valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Configuration valid\n", checkMark)

	fmt.Printf("  %s Database: %s (%s)\n", checkMark, cfg.DB.URL, cfg.DB.Provider)
	fmt.Printf("  %s Lists configured: %d\n", checkMark, len(cfg.Lists))
	for _, d := range schema.DeriveAll(cfg.Lists) {
		fmt.Printf("      %s -> table %s (%d fields)\n", d.Source.Key, d.Table, len(d.Fields))
	}
	if cfg.Auth != nil {
		fmt.Printf("  %s Auth: %s.%s / %s.%s\n", checkMark,
			cfg.Auth.ListKey, cfg.Auth.IdentityField,
			cfg.Auth.ListKey, cfg.Auth.SecretField)
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
