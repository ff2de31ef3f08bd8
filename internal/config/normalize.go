package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	if err := c.normalizeAccess(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeStorage()
	c.normalizeNotifications()
	c.normalizeScoring()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaRoot) == "" {
		if value, ok := os.LookupEnv("VAULT_MEDIA_ROOT"); ok {
			c.Paths.MediaRoot = strings.TrimSpace(value)
		}
	}
	if c.Paths.MediaRoot, err = expandPath(c.Paths.MediaRoot); err != nil {
		return fmt.Errorf("paths.media_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("VAULT_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeAccess() error {
	if len(c.Access.AuthorizedUsers) == 0 {
		if value, ok := os.LookupEnv("VAULT_AUTHORIZED_USERS"); ok {
			ids, err := parseUserList(value)
			if err != nil {
				return fmt.Errorf("VAULT_AUTHORIZED_USERS: %w", err)
			}
			c.Access.AuthorizedUsers = ids
		}
	}
	seen := make(map[int64]struct{}, len(c.Access.AuthorizedUsers))
	users := make([]int64, 0, len(c.Access.AuthorizedUsers))
	for _, id := range c.Access.AuthorizedUsers {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}
	c.Access.AuthorizedUsers = users
	return nil
}

func parseUserList(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) normalizeIngest() {
	if c.Ingest.GroupCapacity == 0 {
		c.Ingest.GroupCapacity = defaultGroupCapacity
	}
	if c.Ingest.FlushConcurrency == 0 {
		c.Ingest.FlushConcurrency = defaultFlushConcurrency
	}
	if c.Ingest.FetchTimeoutSeconds == 0 {
		c.Ingest.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.Selection.MaxLatest == 0 {
		c.Selection.MaxLatest = defaultMaxLatest
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	m := &c.Storage.MinIO
	m.Endpoint = strings.TrimSpace(m.Endpoint)
	m.AccessKey = strings.TrimSpace(m.AccessKey)
	m.SecretKey = strings.TrimSpace(m.SecretKey)
	if m.AccessKey == "" {
		if value, ok := os.LookupEnv("VAULT_MINIO_ACCESS_KEY"); ok {
			m.AccessKey = strings.TrimSpace(value)
		}
	}
	if m.SecretKey == "" {
		if value, ok := os.LookupEnv("VAULT_MINIO_SECRET_KEY"); ok {
			m.SecretKey = strings.TrimSpace(value)
		}
	}
	m.Bucket = strings.TrimSpace(m.Bucket)
	if m.Bucket == "" {
		m.Bucket = defaultMinIOBucket
	}
	m.Prefix = strings.Trim(strings.TrimSpace(m.Prefix), "/")
}

func (c *Config) normalizeNotifications() {
	c.Notifications.Endpoint = strings.TrimSpace(c.Notifications.Endpoint)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeScoring() {
	c.Scoring.Endpoint = strings.TrimRight(strings.TrimSpace(c.Scoring.Endpoint), "/")
	if c.Scoring.TimeoutSeconds <= 0 {
		c.Scoring.TimeoutSeconds = defaultScoringTimeoutSeconds
	}
	if c.Scoring.RequestsPerSecond <= 0 {
		c.Scoring.RequestsPerSecond = defaultScoringRequestsPerSec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
