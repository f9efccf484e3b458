package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyforge/internal/config"
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
	cfgVal.Paths.AssetsDir = filepath.Join(base, "assets")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.TTS.Workers = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCacheDisabled turns the clip cache off.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// WithHTTPEngine points the config at a compute node.
func WithHTTPEngine(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.Engine = config.EngineHTTP
		b.cfg.TTS.BaseURL = baseURL
	}
}

// WithVoices writes a voice catalog and points paths.voices_file at it.
func WithVoices(yaml string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "voices.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			b.t.Fatalf("write voices: %v", err)
		}
		b.cfg.Paths.VoicesFile = path
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg, ffprobe and the
// configured voicegen command are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.FFmpegBinary(), b.cfg.FFprobeBinary(), b.cfg.VoicegenBinary()}
		}
		stubs := make(map[string]string, len(names))
		for _, name := range names {
			stubs[name] = "#!/bin/sh\nexit 0\n"
		}
		b.installStubs(stubs)
	}
}

// WithWorkingToolchain installs stubs that behave like the real tools: the
// voice generator writes a file at --out, ffprobe reports every file as
// clipSeconds of 24 kHz audio, and ffmpeg writes a file at its last argument.
func WithWorkingToolchain(clipSeconds float64) ConfigOption {
	return func(b *configBuilder) {
		probe := fmt.Sprintf(`{"streams":[{"codec_type":"audio","sample_rate":"24000","duration":"%.3f"}],"format":{"duration":"%.3f"}}`, clipSeconds, clipSeconds)
		b.installStubs(map[string]string{
			b.cfg.VoicegenBinary(): "#!/bin/sh\nout=\"\"\nwhile [ $# -gt 0 ]; do\n  if [ \"$1\" = \"--out\" ]; then out=\"$2\"; fi\n  shift\ndone\nprintf 'RIFFclip' > \"$out\"\n",
			b.cfg.FFprobeBinary():  "#!/bin/sh\nprintf '%s' '" + probe + "'\n",
			b.cfg.FFmpegBinary():   "#!/bin/sh\nfor last in \"$@\"; do :; done\nprintf 'ID3mix' > \"$last\"\n",
		})
	}
}

func (b *configBuilder) installStubs(scripts map[string]string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	for name, script := range scripts {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if strings.HasPrefix(oldPath, binDir+string(os.PathListSeparator)) {
		return
	}
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WithOverrides applies fn to the generated config.
func WithOverrides(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}
