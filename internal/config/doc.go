// Package config provides configuration loading and validation for the
// voice agent. It handles YAML-based configuration with per-section
// validation, environment overrides for secrets, and lookup helpers for
// speaker profiles and trigger phrases.
package config
