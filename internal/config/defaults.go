package config

const (
	defaultConfigPath      = "~/.config/storyforge/config.toml"
	defaultAssetsDir       = "~/storyforge/assets"
	defaultOutputDir       = "~/storyforge/output"
	defaultStateDir        = "~/.local/share/storyforge"
	defaultLogDir          = "~/.local/share/storyforge/logs"
	defaultTTSEngine       = "command"
	defaultTTSCommand      = "voicegen"
	defaultTTSDevice       = "cuda"
	defaultTTSTimeout      = 300
	defaultTTSWorkers      = 2
	defaultMusicGainDB     = -18
	defaultAmbienceGainDB  = -22
	defaultDuckDB          = 6
	defaultTargetLUFS      = -16
	defaultTruePeakDB      = -1
	defaultSampleRate      = 48000
	defaultBitrate         = "160k"
	defaultCodec           = "libmp3lame"
	defaultScenePolicy     = "continuous"
	defaultSceneGapSeconds = 1.0
	defaultCacheMaxMiB     = 2048
	defaultFFmpeg          = "ffmpeg"
	defaultFFprobe         = "ffprobe"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 20
	defaultLogMaxAgeDays   = 30
	defaultLogMaxBackups   = 5
)

// Scene policies.
const (
	ScenePolicyContinuous = "continuous"
	ScenePolicyGap        = "gap"
)

// TTS engines.
const (
	EngineCommand = "command"
	EngineHTTP    = "http"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetsDir: defaultAssetsDir,
			OutputDir: defaultOutputDir,
			CacheDir:  defaultCacheDir(),
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		TTS: TTS{
			Engine:         defaultTTSEngine,
			Command:        defaultTTSCommand,
			Device:         defaultTTSDevice,
			TimeoutSeconds: defaultTTSTimeout,
			Workers:        defaultTTSWorkers,
		},
		Mix: Mix{
			MusicGainDB:    defaultMusicGainDB,
			AmbienceGainDB: defaultAmbienceGainDB,
			DuckDB:         defaultDuckDB,
			TargetLUFS:     defaultTargetLUFS,
			TruePeakDB:     defaultTruePeakDB,
			SampleRate:     defaultSampleRate,
			Bitrate:        defaultBitrate,
			Codec:          defaultCodec,
		},
		Schedule: Schedule{
			ScenePolicy:     defaultScenePolicy,
			SceneGapSeconds: defaultSceneGapSeconds,
			MergeAdjacent:   true,
		},
		Cache: Cache{
			Enabled: true,
			MaxMiB:  defaultCacheMaxMiB,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxAgeDays: defaultLogMaxAgeDays,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
