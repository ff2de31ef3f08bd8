package preflight

import (
	"context"

	"vaultgallery/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Required bool   `json:"required"`
	Detail   string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	data := CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)
	data.Required = true
	results = append(results, data)

	if cfg.Storage.Backend == config.StorageLocal {
		media := CheckDirectoryAccess("Media root", cfg.Paths.MediaRoot)
		media.Required = true
		results = append(results, media, CheckFreeSpace("Media free space", cfg.Paths.MediaRoot, minFreeBytes))
	}

	if cfg.Notifications.Endpoint != "" {
		results = append(results, CheckEndpoint(ctx, "Notifications", cfg.Notifications.Endpoint))
	}
	if cfg.Scoring.Enabled {
		results = append(results, CheckEndpoint(ctx, "Scoring service", cfg.Scoring.Endpoint))
	}
	return results
}

// FirstRequiredFailure returns the first failed required check, if any.
func FirstRequiredFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if r.Required && !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}
