package pypindex

import (
	"context"
	"time"
)

// Storage mediates all reads and writes to the backing object store and
// isolates the rest of the system from storage-specific APIs.
// Implementations must be safe for concurrent use; see the s3, filesystem
// and memory packages.
//
// All methods accept a context for cancellation and timeout control.
// Listing methods must handle backend pagination internally and return the
// complete result in a single pass, so callers stay O(entries) without ever
// seeing continuation tokens.
//
// Error taxonomy: implementations report an unreachable backend by wrapping
// ErrStorageUnavailable and rejected credentials by wrapping ErrStorageAuth,
// so callers can classify failures with errors.Is.
type Storage interface {
	// ListPackages returns the names of all first-level prefixes that
	// contain at least one object, in storage order. A package whose last
	// artifact was deleted is absent from the result; root-level objects
	// (the cached index page) are never reported as packages.
	ListPackages(ctx context.Context) ([]string, error)

	// ListFiles returns all artifacts under one package prefix. A package
	// with no artifacts yields an empty slice, not an error; the storage
	// layer cannot cheaply distinguish "never existed" from "empty".
	ListFiles(ctx context.Context, pkg string) ([]Artifact, error)

	// ReadObject reads one object by full key. Returns ErrNotFound if the
	// key does not exist. Used for the cached root index page.
	ReadObject(ctx context.Context, key string) ([]byte, error)

	// WriteObject replaces one object wholesale. This is the only mutation
	// the index service ever performs, and only for the root index key.
	// The write must be atomic at object granularity: concurrent readers
	// observe either the previous or the new content, never a mix.
	WriteObject(ctx context.Context, key string, data []byte) error

	// Presign creates a time-limited download URL for one object.
	// Returns ErrInvalidTTL if ttl is zero or negative.
	Presign(ctx context.Context, key string, ttl time.Duration) (PresignedRef, error)
}
