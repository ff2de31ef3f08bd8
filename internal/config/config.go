package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	MediaRoot string `toml:"media_root"`
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
}

// API contains the HTTP surface bind address and bearer token.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Access restricts which chat users may submit media or run commands.
// An empty list allows everyone.
type Access struct {
	AuthorizedUsers []int64 `toml:"authorized_users"`
}

// Ingest contains the grouped-upload coordinator settings.
type Ingest struct {
	DebounceMS          int   `toml:"debounce_ms"`
	GroupCapacity       int   `toml:"group_capacity"`
	MaxVideoSeconds     int   `toml:"max_video_seconds"`
	MaxBytes            int64 `toml:"max_bytes"`
	FlushConcurrency    int   `toml:"flush_concurrency"`
	FetchTimeoutSeconds int   `toml:"fetch_timeout_seconds"`
}

// Selection contains read-path limits.
type Selection struct {
	MaxLatest int `toml:"max_latest"`
}

// Rating contains follow-up and backfill scheduling for image ratings.
type Rating struct {
	RetryAttempts           int `toml:"retry_attempts"`
	RetryDelayMS            int `toml:"retry_delay_ms"`
	BackfillIntervalMinutes int `toml:"backfill_interval_minutes"`
}

// MinIO contains object storage credentials for the minio backend.
type MinIO struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
	Prefix    string `toml:"prefix"`
}

// Storage selects where media bytes are written.
type Storage struct {
	Backend string `toml:"backend"`
	MinIO   MinIO  `toml:"minio"`
}

// Notifications contains the outbound acknowledgment endpoint.
type Notifications struct {
	Endpoint       string `toml:"endpoint"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Scoring contains the external category scoring collaborator.
type Scoring struct {
	Enabled           bool    `toml:"enabled"`
	Endpoint          string  `toml:"endpoint"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	ScoreOnStart      bool    `toml:"score_on_start"`
}

// Maintenance toggles startup maintenance jobs.
type Maintenance struct {
	MergeOnStart bool `toml:"merge_on_start"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the vault.
//
// Configuration sections by subsystem:
//   - Paths: media root, database and log directories
//   - API: HTTP bind address and token
//   - Access: chat user allow-list
//   - Ingest: grouped upload debounce, capacity and limits
//   - Selection: latest-count cap
//   - Rating: follow-up retries and backfill cadence
//   - Storage: local filesystem or MinIO backend
//   - Notifications: outbound acknowledgment webhook
//   - Scoring: external category scoring service
//   - Maintenance: startup merge
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Access        Access        `toml:"access"`
	Ingest        Ingest        `toml:"ingest"`
	Selection     Selection     `toml:"selection"`
	Rating        Rating        `toml:"rating"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Scoring       Scoring       `toml:"scoring"`
	Maintenance   Maintenance   `toml:"maintenance"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vaultgallery.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon and CLI write into.
// The media root is only created for the local storage backend.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Paths.MediaRoot)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the catalog database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// DebounceWindow returns the grouped upload quiet period.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Ingest.DebounceMS) * time.Millisecond
}

// RatingRetryDelay returns the delay between rating follow-up attempts.
func (c *Config) RatingRetryDelay() time.Duration {
	return time.Duration(c.Rating.RetryDelayMS) * time.Millisecond
}

// BackfillInterval returns the periodic backfill cadence. Zero disables the ticker.
func (c *Config) BackfillInterval() time.Duration {
	return time.Duration(c.Rating.BackfillIntervalMinutes) * time.Minute
}

// IsAuthorized reports whether a chat user may interact with the vault.
func (c *Config) IsAuthorized(userID int64) bool {
	if len(c.Access.AuthorizedUsers) == 0 {
		return true
	}
	for _, id := range c.Access.AuthorizedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
