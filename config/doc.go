// Package config loads engine configuration from YAML: the two feed
// endpoints and limits, the transport kind, and overrides for the
// backoff schedule and health thresholds. Omitted fields take the same
// defaults the Go API uses, so a minimal file needs only the two URLs.
package config
