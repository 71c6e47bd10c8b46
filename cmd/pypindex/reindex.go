package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pypindex/pypindex"
	"github.com/pypindex/pypindex/config"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the cached root index page",
	Long: `Recompute the root index page from the current storage contents and
write it back to the configured root key.

Run this from a storage event hook or a cron job so uploads and deletions
show up on the cached page. The rebuild is a full recompute: running it
twice, or out of order with other runs, converges on the same page.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	storage, _, cleanup, err := buildStorage(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	service, err := pypindex.NewService(storage, pypindex.ServiceConfig{
		RootIndexKey: cfg.Index.RootKey,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	if err := service.Reindex(cmd.Context()); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	slog.Info("root index page rebuilt", "key", cfg.Index.RootKey)
	return nil
}
