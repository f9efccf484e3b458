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
	AssetsDir  string `toml:"assets_dir"`
	OutputDir  string `toml:"output_dir"`
	CacheDir   string `toml:"cache_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	VoicesFile string `toml:"voices_file"`
}

// TTS selects and tunes the synthesis engine.
type TTS struct {
	Engine               string `toml:"engine"`
	Command              string `toml:"command"`
	Device               string `toml:"device"`
	BaseURL              string `toml:"base_url"`
	APIToken             string `toml:"api_token"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	Workers              int    `toml:"workers"`
	TwoPass              bool   `toml:"two_pass"`
	AllowSilenceFallback bool   `toml:"allow_silence_fallback"`
}

// Mix contains gain, ducking, loudness and encode settings.
type Mix struct {
	NarrationGainDB float64 `toml:"narration_gain_db"`
	MusicGainDB     float64 `toml:"music_gain_db"`
	AmbienceGainDB  float64 `toml:"ambience_gain_db"`
	SfxGainDB       float64 `toml:"sfx_gain_db"`
	DuckDB          float64 `toml:"duck_db"`
	TargetLUFS      float64 `toml:"target_lufs"`
	TruePeakDB      float64 `toml:"truepeak_db"`
	SampleRate      int     `toml:"sample_rate"`
	Bitrate         string  `toml:"bitrate"`
	Codec           string  `toml:"codec"`
}

// Schedule tunes timeline construction.
type Schedule struct {
	ScenePolicy     string  `toml:"scene_policy"`
	SceneGapSeconds float64 `toml:"scene_gap_seconds"`
	MergeAdjacent   bool    `toml:"merge_adjacent"`
}

// Cache configures the synthesis clip cache.
type Cache struct {
	Enabled bool `toml:"enabled"`
	MaxMiB  int  `toml:"max_mib"`
}

// Tools names the external binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days"`
	MaxBackups int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for storyforge.
//
// Configuration sections by subsystem:
//   - Paths: asset, output, cache, state and log directories
//   - TTS: synthesis engine and worker settings
//   - Mix: gains, ducking, loudness targets and encoder
//   - Schedule: scene policy and segment grouping
//   - Cache: clip cache size limit
//   - Tools: ffmpeg and ffprobe binaries
//   - Logging: log format, level and rotation
type Config struct {
	Paths    Paths    `toml:"paths"`
	TTS      TTS      `toml:"tts"`
	Mix      Mix      `toml:"mix"`
	Schedule Schedule `toml:"schedule"`
	Cache    Cache    `toml:"cache"`
	Tools    Tools    `toml:"tools"`
	Logging  Logging  `toml:"logging"`
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
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
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

	projectPath, err := filepath.Abs("storyforge.toml")
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

// EnsureDirectories creates the directories a render writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir}
	if c.Cache.Enabled {
		dirs = append(dirs, c.Paths.CacheDir)
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

// JobsDBPath returns the render job database location.
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// ScratchDir returns the directory for per-render temporary files.
func (c *Config) ScratchDir() string {
	return filepath.Join(c.Paths.StateDir, "scratch")
}

// TTSTimeout returns the per-segment synthesis timeout.
func (c *Config) TTSTimeout() time.Duration {
	return time.Duration(c.TTS.TimeoutSeconds) * time.Second
}

// SceneGap returns the silence inserted between scenes under the gap policy.
func (c *Config) SceneGap() time.Duration {
	return time.Duration(c.Schedule.SceneGapSeconds * float64(time.Second))
}

// FFmpegBinary returns the ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable used for clip inspection.
func (c *Config) FFprobeBinary() string {
	return c.Tools.FFprobe
}

// VoicegenBinary returns the first word of tts.command, the executable the
// command engine launches.
func (c *Config) VoicegenBinary() string {
	fields := strings.Fields(c.TTS.Command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
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

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "storyforge", "clips")
	}
	return "~/.cache/storyforge/clips"
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
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

// Marshal renders the effective configuration as TOML with secrets masked.
func (c *Config) Marshal() ([]byte, error) {
	masked := *c
	if masked.TTS.APIToken != "" {
		masked.TTS.APIToken = "********"
	}
	return toml.Marshal(masked)
}
