package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateTTS,
		c.validateMix,
		c.validateSchedule,
		c.validateCache,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateTTS() error {
	switch c.TTS.Engine {
	case EngineCommand:
		if strings.TrimSpace(c.TTS.Command) == "" {
			return errors.New("tts.command must be set when tts.engine is \"command\"")
		}
	case EngineHTTP:
		if c.TTS.BaseURL == "" {
			return errors.New("tts.base_url must be set when tts.engine is \"http\"")
		}
		if !strings.HasPrefix(c.TTS.BaseURL, "http://") && !strings.HasPrefix(c.TTS.BaseURL, "https://") {
			return fmt.Errorf("tts.base_url %q must start with http:// or https://", c.TTS.BaseURL)
		}
	default:
		return fmt.Errorf("tts.engine: unsupported value %q (want command or http)", c.TTS.Engine)
	}
	return ensurePositiveMap(map[string]int{
		"tts.timeout_seconds": c.TTS.TimeoutSeconds,
		"tts.workers":         c.TTS.Workers,
	})
}

func (c *Config) validateMix() error {
	if c.Mix.TargetLUFS < -70 || c.Mix.TargetLUFS > -5 {
		return fmt.Errorf("mix.target_lufs must be between -70 and -5, got %g", c.Mix.TargetLUFS)
	}
	if c.Mix.TruePeakDB < -9 || c.Mix.TruePeakDB > 0 {
		return fmt.Errorf("mix.truepeak_db must be between -9 and 0, got %g", c.Mix.TruePeakDB)
	}
	if c.Mix.DuckDB < 0 {
		return errors.New("mix.duck_db must be >= 0 (it is an attenuation)")
	}
	if c.Mix.SampleRate < 8000 || c.Mix.SampleRate > 192000 {
		return fmt.Errorf("mix.sample_rate must be between 8000 and 192000, got %d", c.Mix.SampleRate)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	switch c.Schedule.ScenePolicy {
	case ScenePolicyContinuous, ScenePolicyGap:
	default:
		return fmt.Errorf("schedule.scene_policy: unsupported value %q (want continuous or gap)", c.Schedule.ScenePolicy)
	}
	if c.Schedule.SceneGapSeconds < 0 {
		return errors.New("schedule.scene_gap_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.MaxMiB < 0 {
		return errors.New("cache.max_mib must be >= 0 (0 disables pruning)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
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
