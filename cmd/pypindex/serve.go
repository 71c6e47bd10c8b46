package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pypindex/pypindex"
	"github.com/pypindex/pypindex/config"
	pypindexhttp "github.com/pypindex/pypindex/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the index server",
	Long:  `Start the pypindex HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default: 8080)")
	serveCmd.Flags().String("base-path", "", "mount path of the simple index (default: /simple)")
	serveCmd.Flags().String("public-url", "", "externally reachable base URL for self-signed download links")
	serveCmd.Flags().Int("presign-ttl", 0, "lifetime of presigned download URLs in seconds (default: 900)")
	serveCmd.Flags().Duration("reindex-interval", 0, "rebuild the cached root index page periodically (0 disables)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.Storage.Backend == "filesystem" && (cfg.Sign.AccessKey == "" || cfg.Sign.SecretKey == "") {
		return errors.New("sign.access_key and sign.secret_key are required to serve the filesystem backend")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	storage, downloads, cleanup, err := buildStorage(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	service, err := pypindex.NewService(storage, pypindex.ServiceConfig{
		RootIndexKey: cfg.Index.RootKey,
		PresignTTL:   time.Duration(cfg.Index.PresignTTL) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	var verifier *pypindex.SignatureVerifier
	if downloads != nil {
		verifier = pypindex.NewSignatureVerifier(cfg.Sign.Region, cfg.Sign.Service, func(accessKey string) (string, bool) {
			if accessKey == cfg.Sign.AccessKey {
				return cfg.Sign.SecretKey, true
			}
			return "", false
		})
	}

	handlerConfig := pypindexhttp.HandlerConfig{
		BasePath:         cfg.Server.BasePath,
		Downloads:        downloads,
		DownloadVerifier: verifier,
		CORS:             cfg.CORS,
	}
	handler := pypindexhttp.NewHandler(&handlerConfig, service)

	reindexer := pypindex.NewReindexer(service)
	go func() {
		if err := reindexer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("reindexer stopped", "err", err)
		}
	}()

	// Prime the cached page so the first root request is a cache hit.
	reindexer.Notify()

	if interval, _ := cmd.Flags().GetDuration("reindex-interval"); interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					reindexer.Notify()
				}
			}
		}()
		slog.Info("periodic reindex enabled", "interval", interval)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "base_path", cfg.Server.BasePath, "backend", cfg.Storage.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
