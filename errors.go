package pypindex

import "errors"

var (
	// ErrNotFound is returned when a package, file or object does not exist
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable is returned when the storage backend cannot be reached
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageAuth is returned when the storage backend rejects our credentials
	ErrStorageAuth = errors.New("storage credentials rejected")
	// ErrInvalidTTL is returned when a presign TTL is zero, negative or out of range
	ErrInvalidTTL = errors.New("invalid presign ttl")
	// ErrUnauthorized is returned when presigned URL verification fails
	ErrUnauthorized = errors.New("unauthorized")
)
