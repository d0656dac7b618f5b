package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelf-cms/shelf/bootstrap"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start the shelf server.

The server will:
  - Load configuration from shelf.yaml (or --config)
  - Parse list definitions from the configured lists directory
  - Create or verify storage tables for every list
  - Serve the admin surface and JSON API

Environment variables override the config file:
  SHELF_DB_URL          - Database path (default: shelf.db)
  SHELF_SERVER_PORT     - Server port (default: 3000)
  SHELF_SESSION_SECRET  - Session signing secret (min 32 chars)
  SHELF_LISTS_DIR       - Directory of list definitions
  SHELF_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  shelf serve
  shelf serve --config /etc/shelf/config.yaml
  shelf serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err != nil {
		return fmt.Errorf("config file not found: %s", cfgFile)
	}

	app, err := bootstrap.NewFromFile(cfgFile, bootstrap.Options{HotReload: hotReload})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
