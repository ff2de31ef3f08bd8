package config

// Storage backends.
const (
	StorageLocal = "local"
	StorageMinIO = "minio"
)

const (
	defaultConfigPath              = "~/.config/vaultgallery/config.toml"
	defaultMediaRoot               = "~/.local/share/vaultgallery/media"
	defaultDataDir                 = "~/.local/share/vaultgallery"
	defaultLogDir                  = "~/.local/share/vaultgallery/logs"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultDebounceMS              = 1500
	defaultGroupCapacity           = 100
	defaultMaxVideoSeconds         = 60
	defaultMaxBytes                = 50 * 1024 * 1024
	defaultFlushConcurrency        = 4
	defaultFetchTimeoutSeconds     = 30
	defaultMaxLatest               = 5
	defaultRatingRetryAttempts     = 3
	defaultRatingRetryDelayMS      = 200
	defaultBackfillIntervalMinutes = 60
	defaultMinIOBucket             = "vaultgallery"
	defaultMinIOPrefix             = "media"
	defaultNotifyTimeout           = 10
	defaultScoringTimeoutSeconds   = 15
	defaultScoringRequestsPerSec   = 0.5
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaRoot: defaultMediaRoot,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Ingest: Ingest{
			DebounceMS:          defaultDebounceMS,
			GroupCapacity:       defaultGroupCapacity,
			MaxVideoSeconds:     defaultMaxVideoSeconds,
			MaxBytes:            defaultMaxBytes,
			FlushConcurrency:    defaultFlushConcurrency,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
		},
		Selection: Selection{
			MaxLatest: defaultMaxLatest,
		},
		Rating: Rating{
			RetryAttempts:           defaultRatingRetryAttempts,
			RetryDelayMS:            defaultRatingRetryDelayMS,
			BackfillIntervalMinutes: defaultBackfillIntervalMinutes,
		},
		Storage: Storage{
			Backend: StorageLocal,
			MinIO: MinIO{
				Bucket: defaultMinIOBucket,
				Prefix: defaultMinIOPrefix,
			},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Scoring: Scoring{
			TimeoutSeconds:    defaultScoringTimeoutSeconds,
			RequestsPerSecond: defaultScoringRequestsPerSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
