package pypindex

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultRootIndexKey is the object key of the cached root index page.
	DefaultRootIndexKey = "index.html"
	// DefaultPresignTTL is the default validity of presigned download URLs.
	DefaultPresignTTL = 900 * time.Second
)

// Service serves index pages from a Storage backend. It keeps no state
// between calls: every request is answered from current storage contents,
// so any number of Service instances can run concurrently against the same
// backend, including concurrently with a reindex.
type Service struct {
	storage Storage
	rootKey string
	ttl     time.Duration
}

// ServiceConfig holds configuration for a Service. Zero values select the
// defaults above.
type ServiceConfig struct {
	// RootIndexKey is the object key the cached root page is read from and
	// written to (default "index.html").
	RootIndexKey string
	// PresignTTL is the validity of presigned download URLs (default 900s).
	// A negative value is a configuration error.
	PresignTTL time.Duration
}

// NewService creates a Service over the given storage backend.
// A negative PresignTTL is rejected with ErrInvalidTTL at construction, not
// per request: presign validity is deploy-time configuration, and a bad
// value should stop startup rather than fail every download.
func NewService(storage Storage, cfg ServiceConfig) (*Service, error) {
	if storage == nil {
		return nil, errors.New("new service: storage must not be nil")
	}

	ttl := cfg.PresignTTL
	if ttl == 0 {
		ttl = DefaultPresignTTL
	}
	if ttl < 0 {
		return nil, fmt.Errorf("new service: presign ttl %s: %w", ttl, ErrInvalidTTL)
	}

	rootKey := cfg.RootIndexKey
	if rootKey == "" {
		rootKey = DefaultRootIndexKey
	}

	return &Service{
		storage: storage,
		rootKey: rootKey,
		ttl:     ttl,
	}, nil
}

// PresignTTL returns the configured presign validity.
func (s *Service) PresignTTL() time.Duration {
	return s.ttl
}

// RootIndex returns the root index page HTML.
//
// The cached page object is served verbatim when present. If it has never
// been written (no reindex has run yet), the page is computed synchronously
// from a fresh package listing so the root path is available from the very
// first request. The fallback does not write the computed page back; the
// index server stays read-only and leaves the cache to the Reindexer.
func (s *Service) RootIndex(ctx context.Context) (string, error) {
	data, err := s.storage.ReadObject(ctx, s.rootKey)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("root index: %w", err)
	}

	page, err := s.buildRootIndex(ctx)
	if err != nil {
		return "", fmt.Errorf("root index: %w", err)
	}
	return page, nil
}

// PackageIndex returns the index page HTML for one package, with every file
// link presigned for the configured TTL. The page is generated on demand:
// per-package listings are bounded by one package's artifact count, so they
// are cheap enough for the hot read path.
//
// Returns ErrNotFound when the name is malformed or the package has no
// files; the storage layer cannot distinguish "never existed" from "empty",
// and neither does this method.
func (s *Service) PackageIndex(ctx context.Context, name string) (string, error) {
	if !IsValidName(name) {
		return "", fmt.Errorf("package index %q: %w", name, ErrNotFound)
	}
	norm := NormalizeName(name)

	files, err := s.listFilesNormalized(ctx, norm)
	if err != nil {
		return "", fmt.Errorf("package index %q: %w", name, err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("package index %q: %w", name, ErrNotFound)
	}

	links := make([]Link, 0, len(files))
	for _, f := range files {
		ref, err := s.storage.Presign(ctx, f.Key, s.ttl)
		if err != nil {
			return "", fmt.Errorf("package index %q: presign %q: %w", name, f.Key, err)
		}
		links = append(links, Link{Name: f.Filename(), Href: ref.URL})
	}

	return RenderPackageIndex(norm, links), nil
}

// listFilesNormalized lists files for a normalized package name. The fast
// path assumes the stored prefix already is the normalized name; when that
// yields nothing, the package listing is scanned for a prefix that
// normalizes to the same name, covering packages published under their
// display name (e.g. "Friendly_Bard/").
func (s *Service) listFilesNormalized(ctx context.Context, norm string) ([]Artifact, error) {
	files, err := s.storage.ListFiles(ctx, norm)
	if err != nil || len(files) > 0 {
		return files, err
	}

	pkgs, err := s.storage.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pkgs {
		if p != norm && NormalizeName(p) == norm {
			return s.storage.ListFiles(ctx, p)
		}
	}
	return nil, nil
}

// Reindex recomputes the root index page from a fresh package listing and
// replaces the cached page object wholesale. It is idempotent: the result
// reflects storage state at the time it runs, never any event payload, so
// repeated or out-of-order invocations converge. A package whose last
// artifact was deleted disappears from the page, because the listing only
// reports prefixes with at least one object.
func (s *Service) Reindex(ctx context.Context) error {
	page, err := s.buildRootIndex(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if err := s.storage.WriteObject(ctx, s.rootKey, []byte(page)); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return nil
}

func (s *Service) buildRootIndex(ctx context.Context) (string, error) {
	names, err := s.storage.ListPackages(ctx)
	if err != nil {
		return "", err
	}
	return RenderRootIndex(names), nil
}
