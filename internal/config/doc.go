// Package config loads, normalizes, and validates vault configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VAULT_API_TOKEN and VAULT_MINIO_SECRET_KEY. The Config type centralizes every
// knob the daemon and CLI need, from the media root to the grouped upload
// debounce window.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
