package main

import (
	"fmt"
	"path/filepath"

	"spacewatch/internal/server"

	"github.com/spf13/cobra"
)

var (
	serveDir     string
	serveHistory string
	host         string
	port         int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Preview the generated status page locally",
	Long: `Serve the report output directory over HTTP for local inspection.

This is a convenience for development; the published page is plain static
hosting and does not need this server.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveDir, "dir", "d", getEnvOrDefault("SPACEWATCH_OUTPUT_DIR", "docs"), "Report directory to serve")
	serveCmd.Flags().StringVar(&serveHistory, "history", getEnvOrDefault("SPACEWATCH_HISTORY_FILE", ""), "Path to the history log (default <dir>/history.json)")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("SPACEWATCH_HOST", "127.0.0.1"), "Host to bind to")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("SPACEWATCH_PORT", 8080), "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	if serveHistory == "" {
		serveHistory = filepath.Join(serveDir, "history.json")
	}

	srv := server.NewServer(serveDir, serveHistory, logger)

	logger.Info("Starting preview server", "host", host, "port", port)
	if err := srv.Start(host, port); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
