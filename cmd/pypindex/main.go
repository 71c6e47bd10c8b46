package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pypindex/pypindex/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "pypindex",
	Short:   "PyPI-compatible package index over object storage",
	Long: `Pypindex serves the PEP 503 simple repository API from an object
storage backend. Package pages carry presigned download URLs; the root
index page is cached in storage and rebuilt on demand.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		setupLogging(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "storage backend: filesystem, s3 (default: filesystem, env: PYPINDEX_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory for the filesystem backend (default: ./data, env: PYPINDEX_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("endpoint", "", "S3 endpoint host:port (env: PYPINDEX_STORAGE_S3_ENDPOINT)")
	rootCmd.PersistentFlags().String("bucket", "", "S3 bucket name (env: PYPINDEX_STORAGE_S3_BUCKET)")
	rootCmd.PersistentFlags().String("root-key", "", "object key of the cached root index page (default: index.html)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
