// Package s3 provides an S3-compatible storage backend for pypindex built on
// the MinIO client. Package namespaces map to first-level key prefixes in a
// single bucket, discovered through delimiter listings. Presigned URLs come
// straight from the client, computed locally without a round trip.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pypindex/pypindex"
)

// Config holds connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string // host:port (e.g. "s3.amazonaws.com" or "localhost:9000")
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Store provides storage operations over one S3 bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore creates a Store for the configured bucket.
func NewStore(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// NewStoreWithClient creates a Store over an existing client, used by tests
// that point the client at a stub endpoint.
func NewStoreWithClient(client *minio.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// ListPackages returns the package namespaces, one per first-level key
// prefix. The non-recursive listing asks the server for common prefixes
// delimited by "/", so the bucket is never enumerated object by object.
// Root-level objects such as the cached index page have no prefix and are
// skipped.
func (s *Store) ListPackages(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Recursive: false}

	var packages []string
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, mapError("list packages", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		packages = append(packages, strings.TrimSuffix(obj.Key, "/"))
	}

	sort.Strings(packages)
	return packages, nil
}

// ListFiles returns the artifacts stored under the given package namespace,
// sorted by key. The listing paginates inside the client; an unknown or
// empty namespace yields an empty slice, not an error.
func (s *Store) ListFiles(ctx context.Context, pkg string) ([]pypindex.Artifact, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    pkg + "/",
		Recursive: true,
	}

	var artifacts []pypindex.Artifact
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, mapError(fmt.Sprintf("list files for %q", pkg), obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		artifacts = append(artifacts, pypindex.Artifact{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Key < artifacts[j].Key })
	return artifacts, nil
}

// ReadObject reads the object at key. Returns pypindex.ErrNotFound if it
// does not exist.
func (s *Store) ReadObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(fmt.Sprintf("read %q", key), err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(fmt.Sprintf("read %q", key), err)
	}
	return data, nil
}

// WriteObject replaces the object at key. S3 object replacement is atomic,
// so concurrent readers observe either the previous complete object or the
// new one. The cached index page is stored as text/html so browsers render
// it directly.
func (s *Store) WriteObject(ctx context.Context, key string, data []byte) error {
	contentType := "application/octet-stream"
	if strings.HasSuffix(key, ".html") {
		contentType = "text/html"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return mapError(fmt.Sprintf("write %q", key), err)
	}
	return nil
}

// Presign issues a presigned GET URL for the object at key, valid for ttl.
// The URL is computed locally from the client credentials.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (pypindex.PresignedRef, error) {
	if ttl <= 0 {
		return pypindex.PresignedRef{}, fmt.Errorf("presign %q: ttl %s: %w", key, ttl, pypindex.ErrInvalidTTL)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return pypindex.PresignedRef{}, mapError(fmt.Sprintf("presign %q", key), err)
	}

	return pypindex.PresignedRef{
		URL:       u.String(),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// mapError translates S3 error responses into the storage error taxonomy.
func mapError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s: %w", op, pypindex.ErrNotFound)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%s: %v: %w", op, err, pypindex.ErrStorageAuth)
	default:
		return fmt.Errorf("%s: %v: %w", op, err, pypindex.ErrStorageUnavailable)
	}
}

var _ pypindex.Storage = (*Store)(nil)
