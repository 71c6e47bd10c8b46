// Package memory provides an in-memory storage backend for pypindex,
// used in tests and anywhere the service needs to run without a real
// object store. The Put/Remove mutators stand in for the external
// publishing tools that own artifact lifecycle in production.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pypindex/pypindex"
)

type object struct {
	data    []byte
	modTime time.Time
}

// Store is an in-memory implementation of pypindex.Storage. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{objects: make(map[string]object)}
}

// Put stores an object, standing in for an external upload.
func (s *Store) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: slices.Clone(data), modTime: time.Now()}
}

// Remove deletes an object, standing in for an external deletion.
// Removing a key that does not exist is a no-op.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}

// ListPackages returns the sorted set of first-level prefixes with at least
// one object. Root-level keys (no slash) are not packages.
func (s *Store) ListPackages(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range s.objects {
		if pkg, _, ok := strings.Cut(key, "/"); ok && pkg != "" {
			seen[pkg] = struct{}{}
		}
	}

	return slices.Sorted(maps.Keys(seen)), nil
}

// ListFiles returns all artifacts under one package prefix, sorted by key.
func (s *Store) ListFiles(ctx context.Context, pkg string) ([]pypindex.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []pypindex.Artifact
	prefix := pkg + "/"
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			files = append(files, pypindex.Artifact{
				Key:          key,
				Size:         int64(len(obj.data)),
				LastModified: obj.modTime,
			})
		}
	}

	slices.SortFunc(files, func(a, b pypindex.Artifact) int {
		return strings.Compare(a.Key, b.Key)
	})
	return files, nil
}

// ReadObject returns a copy of the object's data or pypindex.ErrNotFound.
func (s *Store) ReadObject(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", key, pypindex.ErrNotFound)
	}
	return slices.Clone(obj.data), nil
}

// WriteObject replaces the object wholesale.
func (s *Store) WriteObject(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Put(key, data)
	return nil
}

// Presign returns a synthetic capability URL carrying the TTL in its query
// string, mirroring the shape a real signer produces.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (pypindex.PresignedRef, error) {
	if err := ctx.Err(); err != nil {
		return pypindex.PresignedRef{}, err
	}
	if ttl <= 0 {
		return pypindex.PresignedRef{}, fmt.Errorf("presign %q: ttl %s: %w", key, ttl, pypindex.ErrInvalidTTL)
	}

	return pypindex.PresignedRef{
		URL:       fmt.Sprintf("https://storage.invalid/%s?X-Amz-Expires=%d", key, int(ttl/time.Second)),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

var _ pypindex.Storage = (*Store)(nil)
