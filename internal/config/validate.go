package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Any error returned here is
// fatal at daemon startup.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateRating(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MediaRoot) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.media_root is required. Set VAULT_MEDIA_ROOT or edit %s (create with 'vault config init')", defaultPath)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if err := ensurePositiveMap(map[string]int{
		"ingest.debounce_ms":           c.Ingest.DebounceMS,
		"ingest.group_capacity":        c.Ingest.GroupCapacity,
		"ingest.max_video_seconds":     c.Ingest.MaxVideoSeconds,
		"ingest.flush_concurrency":     c.Ingest.FlushConcurrency,
		"ingest.fetch_timeout_seconds": c.Ingest.FetchTimeoutSeconds,
		"selection.max_latest":         c.Selection.MaxLatest,
	}); err != nil {
		return err
	}
	if c.Ingest.MaxBytes <= 0 {
		return errors.New("ingest.max_bytes must be positive")
	}
	return nil
}

func (c *Config) validateRating() error {
	if c.Rating.RetryAttempts < 0 {
		return errors.New("rating.retry_attempts must be >= 0")
	}
	if c.Rating.RetryDelayMS < 0 {
		return errors.New("rating.retry_delay_ms must be >= 0")
	}
	if c.Rating.BackfillIntervalMinutes < 0 {
		return errors.New("rating.backfill_interval_minutes must be >= 0")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		return nil
	case StorageMinIO:
		m := c.Storage.MinIO
		if m.Endpoint == "" {
			return errors.New("storage.minio.endpoint must be set when storage.backend is minio")
		}
		if m.AccessKey == "" || m.SecretKey == "" {
			return errors.New("storage.minio.access_key and secret_key must be set when storage.backend is minio (or set VAULT_MINIO_ACCESS_KEY/VAULT_MINIO_SECRET_KEY)")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want %q or %q)", c.Storage.Backend, StorageLocal, StorageMinIO)
	}
}

func (c *Config) validateScoring() error {
	if c.Scoring.Enabled && c.Scoring.Endpoint == "" {
		return errors.New("scoring.endpoint must be set when scoring.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
