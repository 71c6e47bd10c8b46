package main

import (
	"fmt"
	"os"

	"github.com/pypindex/pypindex"
	"github.com/pypindex/pypindex/config"
	"github.com/pypindex/pypindex/filesystem"
	pypindexhttp "github.com/pypindex/pypindex/http"
	"github.com/pypindex/pypindex/s3"
)

// buildStorage creates the configured storage backend. The returned Downloads
// is non-nil only for the filesystem backend, which serves its own files;
// cleanup releases backend resources and is safe to call once.
func buildStorage(cfg *config.Config) (pypindex.Storage, pypindexhttp.Downloads, func(), error) {
	switch cfg.Storage.Backend {
	case "s3":
		store, err := s3.NewStore(cfg.Storage.S3)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create s3 store: %w", err)
		}
		return store, nil, func() {}, nil

	case "filesystem":
		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, nil, nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open storage root: %w", err)
		}

		signer := pypindex.NewSigner(cfg.Sign.Region, cfg.Sign.Service, cfg.Sign.AccessKey, cfg.Sign.SecretKey)
		store := filesystem.NewStore(root, signer, publicURL(cfg))
		return store, store, func() { _ = root.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func publicURL(cfg *config.Config) string {
	if cfg.Server.PublicURL != "" {
		return cfg.Server.PublicURL
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}
