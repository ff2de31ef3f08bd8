package testsupport

import (
	"path/filepath"
	"testing"

	"vaultgallery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaRoot = filepath.Join(base, "media")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Ingest.DebounceMS = 20
	cfgVal.Rating.RetryDelayMS = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithAuthorizedUsers restricts the chat allow-list.
func WithAuthorizedUsers(ids ...int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Access.AuthorizedUsers = append([]int64(nil), ids...)
	}
}

// WithGroupCapacity overrides the grouped upload capacity.
func WithGroupCapacity(capacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.GroupCapacity = capacity
	}
}

// WithMaxLatest overrides the latest-count cap.
func WithMaxLatest(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Selection.MaxLatest = limit
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
