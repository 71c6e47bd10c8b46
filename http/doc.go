// Package http provides the HTTP server surface for the pypindex package
// index.
//
// This package serves the PEP 503 simple repository API: a root index page
// listing every package namespace and per-package pages whose anchors are
// presigned download URLs.
//
// # Features
//
//   - Root index served from the cached page with a synchronous fallback
//   - Per-package pages generated on demand with presigned file URLs
//   - PEP 503 name normalization on package lookups
//   - Permanent redirect from / to the configured base path
//   - Optional download route with AWS Signature V4 verification
//   - Request logging with generated request ids
//   - Configurable CORS support
//
// # Routes
//
// GET {base}/ returns the root index page. GET {base}/{package}/ returns the
// package page, 404 for unknown or malformed names. When Downloads is
// configured, GET /files/{key} streams stored distribution files, verified
// against the presigned signature when a DownloadVerifier is set.
//
// # Usage
//
// Create a handler with HandlerConfig:
//
//	handlerCfg := http.HandlerConfig{
//	    BasePath:  "/simple",
//	    Downloads: store,                // nil for S3 deployments
//	    DownloadVerifier: verifier,      // nil for public downloads
//	}
//	handler := http.NewHandler(&handlerCfg, service)
//	http.ListenAndServe(":8080", handler.Router())
//
// The service parameter must implement the Service interface with RootIndex
// and PackageIndex methods.
package http
