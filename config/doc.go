// Package config provides configuration loading and validation for pypindex.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (PYPINDEX_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with PYPINDEX_ prefix:
//   - server.port → PYPINDEX_SERVER_PORT
//   - storage.backend → PYPINDEX_STORAGE_BACKEND
//   - storage.s3.bucket → PYPINDEX_STORAGE_S3_BUCKET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, base_path, public_url, and timeouts
//   - Index: root_key of the cached page and presign_ttl in seconds
//   - Storage: backend selection (s3/filesystem) and per-backend settings
//   - Sign: key pair for self-signed download URLs (filesystem backend)
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Backend must be s3 or filesystem
//   - presign_ttl must be 1-604800 seconds
//   - Log level must be debug, info, warn, or error
//
// Backend-specific requirements (path for filesystem, endpoint and bucket
// for s3) are checked after unmarshalling.
package config
