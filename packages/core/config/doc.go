// Package config handles configuration loading and management for the harness.
//
// It provides functionality for:
//   - Loading dotted-key properties from harness.yaml files
//   - Overlaying HARNESS_* environment variables and CLI flags
//   - Default values for every recognised key
//   - Resolving properties into a validated, typed Config
package config
