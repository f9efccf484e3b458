package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTTS()
	c.normalizeMix()
	c.normalizeSchedule()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.assets_dir", &c.Paths.AssetsDir, defaultAssetsDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDir()},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.voices_file", &c.Paths.VoicesFile, ""},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTTS() {
	c.TTS.Engine = strings.ToLower(strings.TrimSpace(c.TTS.Engine))
	if c.TTS.Engine == "" {
		c.TTS.Engine = defaultTTSEngine
	}
	c.TTS.Command = strings.TrimSpace(c.TTS.Command)
	if c.TTS.Command == "" {
		c.TTS.Command = defaultTTSCommand
	}
	c.TTS.Device = strings.TrimSpace(c.TTS.Device)
	if c.TTS.Device == "" {
		c.TTS.Device = defaultTTSDevice
	}
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	c.TTS.APIToken = strings.TrimSpace(c.TTS.APIToken)
	if c.TTS.APIToken == "" {
		if value, ok := os.LookupEnv("STORYFORGE_TTS_TOKEN"); ok {
			c.TTS.APIToken = strings.TrimSpace(value)
		}
	}
	if c.TTS.TimeoutSeconds == 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeout
	}
	if c.TTS.Workers == 0 {
		c.TTS.Workers = defaultTTSWorkers
	}
}

func (c *Config) normalizeMix() {
	c.Mix.Bitrate = strings.TrimSpace(c.Mix.Bitrate)
	if c.Mix.Bitrate == "" {
		c.Mix.Bitrate = defaultBitrate
	}
	c.Mix.Codec = strings.TrimSpace(c.Mix.Codec)
	if c.Mix.Codec == "" {
		c.Mix.Codec = defaultCodec
	}
	if c.Mix.SampleRate == 0 {
		c.Mix.SampleRate = defaultSampleRate
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.ScenePolicy = strings.ToLower(strings.TrimSpace(c.Schedule.ScenePolicy))
	if c.Schedule.ScenePolicy == "" {
		c.Schedule.ScenePolicy = defaultScenePolicy
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}
