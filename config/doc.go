// Package config loads and validates mdedge configuration.
//
// Values come from YAML files, environment variables and CLI flags, merged
// with viper and checked with go-playground/validator.
//
// # Precedence
//
// Later sources override earlier ones:
//
//  1. Default values
//  2. Configuration file(s), merged left to right
//  3. Environment variables (MDEDGE_ prefix)
//  4. CLI flags that were explicitly set
//
// # Environment Variables
//
// Keys map to variables by upper-casing and replacing dots:
//   - server.port → MDEDGE_SERVER_PORT
//   - rewrite.extensions → MDEDGE_REWRITE_EXTENSIONS (comma separated)
//   - storage.s3.endpoint → MDEDGE_STORAGE_S3_ENDPOINT
//
// # Sections
//
//   - server: port, mode (store/static/spa), max_upload_size
//   - service: cleanup_timeout in seconds
//   - rewrite: source extensions, default document, target extension
//   - pipeline: dispatcher workers and queue size, batch concurrency, timeout
//   - database: metadata backend type, DSN and table name
//   - storage: backend (filesystem or s3), path, bucket, s3 client settings
//   - cors: cross-origin settings for the origin server
//   - log: level and format (text or json)
//
// The rewrite section is also checked with rewrite.Config.Validate, which
// rejects extension lists whose suffixes overlap.
package config
