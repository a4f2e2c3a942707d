// Package server exposes the HTTP monitoring surface: health, session
// listing, sanitized configuration, service statistics, and Prometheus
// metrics.
package server
