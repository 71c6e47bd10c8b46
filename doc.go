// Package pypindex implements a PEP 503 "simple repository" index service
// backed by an object store, together with the reindexing job that keeps the
// cached root index page in sync with the store.
//
// The object store is the single source of truth. Packages live exactly one
// level deep as prefixes; every object under a prefix is one distributable
// file (sdist or wheel). Uploads and deletions are performed by external
// publishing tools, never by this service.
//
// # Key Components
//
//   - Storage: interface over the backing object store (list, read/write the
//     root index object, presign download URLs)
//   - Service: translates storage contents into index pages; serves the
//     cached root page and generates per-package pages on demand
//   - Reindexer: consumes storage mutation notifications and recomputes the
//     root index page from current storage state
//   - Signer / SignatureVerifier: AWS Signature V4 presigned URL generation
//     and verification for backends without a native signer
//
// # Consistency Model
//
// The root index page is a cache, fully derived from the current set of
// package prefixes. The Reindexer never inspects event payloads; it always
// relists and rewrites the page wholesale, so redundant, batched or
// out-of-order events converge to the same result. Readers racing a rewrite
// observe either the previous or the new page, never a partial one.
//
// # Example Usage
//
//	store, err := s3.NewStore(s3.Config{Endpoint: "s3.amazonaws.com", Bucket: "pkgs"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := pypindex.NewService(store, pypindex.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Serve index pages
//	page, err := svc.RootIndex(ctx)
//
//	// Rebuild the cached root page after a storage mutation
//	err = svc.Reindex(ctx)
//
// See the http package for the HTTP surface and the s3, filesystem and
// memory packages for storage backends.
package pypindex
