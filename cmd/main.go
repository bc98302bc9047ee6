package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "files-manager",
		Short: "Multi-user file storage with asynchronous thumbnails",
		Long: `files-manager stores uploaded files and folders per user and generates
500/250/100px thumbnails for image uploads in the background.

Examples:
  files-manager serve                  # API plus an in-process thumbnail worker
  files-manager serve --no-worker      # API only
  files-manager worker                 # thumbnail worker only
  files-manager migrate                # apply database migrations`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	root.AddCommand(newServeCmd(), newWorkerCmd(), newMigrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
