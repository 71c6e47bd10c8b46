// Package filesystem provides a file system storage backend for pypindex.
// Package namespaces map to first-level directories under a sandboxed root,
// distribution files to the files inside them. Writes are atomic using temp
// files and rename. Presigned URLs are self-issued with AWS Signature V4 and
// point at the server's own download route, so a filesystem deployment needs
// no external signing service.
package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pypindex/pypindex"
)

// Store provides file system storage operations.
type Store struct {
	root    *os.Root
	signer  *pypindex.Signer
	baseURL string
}

// NewStore creates a Store over the given root directory. The root provides
// sandboxed file operations preventing path traversal. signer and baseURL
// issue presigned URLs for the download route mounted at baseURL/files.
func NewStore(root *os.Root, signer *pypindex.Signer, baseURL string) *Store {
	return &Store{root: root, signer: signer, baseURL: baseURL}
}

// ListPackages returns the package namespaces, one per first-level directory.
// Root-level files such as the cached index page are not namespaces and are
// skipped, as are temp files left behind by interrupted writes.
func (s *Store) ListPackages(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(s.root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	var packages []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		hasFiles, err := s.dirHasFiles(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("list packages: %w", err)
		}
		if hasFiles {
			packages = append(packages, entry.Name())
		}
	}

	sort.Strings(packages)
	return packages, nil
}

// dirHasFiles reports whether the directory holds at least one regular file.
// Namespaces emptied by deletions keep their directory around but must stop
// appearing in package listings.
func (s *Store) dirHasFiles(dir string) (bool, error) {
	entries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return true, nil
		}
	}
	return false, nil
}

// ListFiles returns the artifacts stored under the given package namespace,
// sorted by key. A missing or empty namespace yields an empty slice, not an
// error.
func (s *Store) ListFiles(ctx context.Context, pkg string) ([]pypindex.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), pkg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list files for %q: %w", pkg, err)
	}

	var artifacts []pypindex.Artifact
	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("list files for %q: %w", pkg, err)
		}

		artifacts = append(artifacts, pypindex.Artifact{
			Key:          path.Join(pkg, entry.Name()),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Key < artifacts[j].Key })
	return artifacts, nil
}

// ReadObject reads the object at key. Returns pypindex.ErrNotFound if it
// does not exist.
func (s *Store) ReadObject(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %q: %w", key, pypindex.ErrNotFound)
		}
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "key", key, "err", closeErr)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

// Open opens the object at key for streaming, used by the download route.
// Returns pypindex.ErrNotFound if it does not exist.
func (s *Store) Open(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %q: %w", key, pypindex.ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w", key, err)
	}
	return f, nil
}

// WriteObject atomically replaces the object at key using a temp file and
// rename, creating intermediate directories as needed. Readers observe either
// the previous complete object or the new one, never a partial write.
func (s *Store) WriteObject(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return fmt.Errorf("write %q: could not open temp file: %w", key, createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(t, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %q: could not copy contents: %w", key, err)
	}

	if err := t.Sync(); err != nil {
		return fmt.Errorf("write %q: could not sync written file: %w", key, err)
	}

	destDir := filepath.Dir(key)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return fmt.Errorf("write %q: could not create intermediate directories: %w", key, err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return fmt.Errorf("write %q: failed to rename file: %w", key, renameErr)
	}

	success = true
	return nil
}

// Presign issues a self-signed URL for downloading the object at key through
// the server's download route, valid for ttl.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (pypindex.PresignedRef, error) {
	if err := ctx.Err(); err != nil {
		return pypindex.PresignedRef{}, err
	}

	return s.signer.Presign(s.baseURL, "/files/"+key, ttl)
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}

var _ pypindex.Storage = (*Store)(nil)
