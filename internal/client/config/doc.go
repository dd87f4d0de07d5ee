// Package config loads runtime configuration for the driftfile CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the driftfile server
//	-f string   path of the file to upload
//	-m string   base64 encoded metadata blob stored alongside the file
//	-t int      retention time limit (seconds)
//	-d int      download limit
//	-e          mark the upload as client-side encrypted
//	-k string   authorization header sent with the upload handshake
//	-b string   bearer token for authenticated uploads
//	-p          prompt for the bearer token on stdin
//
// # JSON schema
//
// Booleans are pointers in the JSON DTO so that an absent key leaves the
// current value untouched:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "file_path": "report.pdf",
//	  "time_limit": 86400,
//	  "download_limit": 5,
//	  "encrypted": true
//	}
//
// Primary API
//
//   - type Config                     — holds server address and upload parameters
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
