package preflight

import (
	"context"

	"storyforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Assets directory", cfg.Paths.AssetsDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Cache.Enabled {
		results = append(results, CheckDirectoryAccess("Clip cache", cfg.Paths.CacheDir))
	}
	if cfg.Paths.VoicesFile != "" {
		results = append(results, CheckVoiceCatalog(cfg.Paths.VoicesFile))
	}
	if cfg.TTS.Engine == config.EngineHTTP {
		results = append(results, CheckTTSNode(ctx, cfg.TTS.BaseURL, cfg.TTS.APIToken))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed {
			out = append(out, result)
		}
	}
	return out
}
