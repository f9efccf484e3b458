package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"storyforge/internal/assets"
	"storyforge/internal/clipcache"
	"storyforge/internal/config"
	"storyforge/internal/deps"
	"storyforge/internal/jobs"
	"storyforge/internal/logging"
	"storyforge/internal/mixplan"
	"storyforge/internal/render"
	"storyforge/internal/services"
	"storyforge/internal/sfml"
	"storyforge/internal/timeline"
	"storyforge/internal/tts"
)

// Stage names stamped on the context of each step.
const (
	StageParse      = "parse"
	StageSynthesize = "synthesize"
	StagePlan       = "plan"
	StageRender     = "render"
)

// Producer renders scripts. It is safe for sequential use; concurrent
// renders share the cache and job store but not progress samplers.
type Producer struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   tts.Engine
	probe    tts.Prober
	cache    *clipcache.Cache
	assets   *assets.Index
	voices   *assets.Catalog
	jobs     *jobs.Store
	renderer *render.Renderer
	runner   services.CommandRunner
	format   sfml.Format
}

// Option customizes a Producer.
type Option func(*Producer)

// WithEngine replaces the engine selected by tts.engine.
func WithEngine(engine tts.Engine) Option {
	return func(p *Producer) { p.engine = engine }
}

// WithProber replaces ffprobe for clip and asset inspection.
func WithProber(probe tts.Prober) Option {
	return func(p *Producer) { p.probe = probe }
}

// WithScriptFormat forces the SFML front-end instead of detecting it.
func WithScriptFormat(format sfml.Format) Option {
	return func(p *Producer) { p.format = format }
}

// WithCommandRunner replaces the runner used for ffmpeg (and the command
// engine, when it is built from config).
func WithCommandRunner(runner services.CommandRunner) Option {
	return func(p *Producer) { p.runner = runner }
}

// New wires a Producer from cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Producer, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "configuration is required", nil)
	}
	p := &Producer{cfg: cfg, logger: logging.NewComponentLogger(logger, "pipeline")}
	for _, opt := range opts {
		opt(p)
	}
	if p.probe == nil {
		p.probe = tts.FFprobe(deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
	}

	voices, err := assets.LoadVoices(cfg.Paths.VoicesFile)
	if err != nil {
		return nil, err
	}
	p.voices = voices
	p.assets = assets.NewIndex(cfg.Paths.AssetsDir, assets.Prober(p.probe))

	if p.engine == nil {
		engine, err := p.buildEngine()
		if err != nil {
			return nil, err
		}
		p.engine = engine
	}

	p.renderer = render.New(render.Options{
		FFmpeg:     cfg.FFmpegBinary(),
		Codec:      cfg.Mix.Codec,
		Bitrate:    cfg.Mix.Bitrate,
		SampleRate: cfg.Mix.SampleRate,
	}, logger)
	if p.runner != nil {
		p.renderer.WithCommandRunner(p.runner)
	}

	store, err := jobs.Open(ctx, cfg.JobsDBPath())
	if err != nil {
		return nil, err
	}
	p.jobs = store

	if cfg.Cache.Enabled {
		cache, err := clipcache.Open(ctx, cfg.Paths.CacheDir, cfg.Cache.MaxMiB, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Producer) buildEngine() (tts.Engine, error) {
	switch p.cfg.TTS.Engine {
	case config.EngineCommand:
		engine := tts.NewCommandEngine(tts.CommandConfig{
			Command: p.cfg.TTS.Command,
			Device:  p.cfg.TTS.Device,
			Timeout: p.cfg.TTSTimeout(),
		}, p.voices, p.probe)
		if p.runner != nil {
			engine.WithCommandRunner(p.runner)
		}
		return engine, nil
	case config.EngineHTTP:
		return tts.NewHTTPEngine(tts.HTTPConfig{
			BaseURL: p.cfg.TTS.BaseURL,
			Token:   p.cfg.TTS.APIToken,
			Timeout: p.cfg.TTSTimeout(),
		}, p.voices, p.probe), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", fmt.Sprintf("unsupported tts engine %q", p.cfg.TTS.Engine), nil)
	}
}

// Close releases the job store and cache index.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.cache != nil {
		errs = append(errs, p.cache.Close())
	}
	if p.jobs != nil {
		errs = append(errs, p.jobs.Close())
	}
	return errors.Join(errs...)
}

// Jobs exposes the job store for listing and housekeeping.
func (p *Producer) Jobs() *jobs.Store { return p.jobs }

// Cache returns the clip cache, or nil when caching is disabled.
func (p *Producer) Cache() *clipcache.Cache { return p.cache }

// Assets returns the asset index.
func (p *Producer) Assets() *assets.Index { return p.assets }

// Voices returns the voice catalog.
func (p *Producer) Voices() *assets.Catalog { return p.voices }

// Parse reads and parses the script at sourcePath, checking every casting
// voice against the catalog.
func (p *Producer) Parse(sourcePath string) (*sfml.Document, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, StageParse, "read script", sourcePath, err)
		}
		return nil, services.Wrap(services.ErrValidation, StageParse, "read script", sourcePath, err)
	}
	return sfml.Parse(string(data), sfml.Options{Format: p.format, Voices: p.voices})
}

// Preview is a dry run: the parsed script, its timeline and mix plan.
type Preview struct {
	Document *sfml.Document
	Timeline *timeline.Timeline
	Plan     *mixplan.MixPlan
}

// Preview schedules and plans sourcePath without encoding. With estimate set
// speech lengths are predicted from word counts and no engine is called;
// otherwise segments are synthesized (and cached) as a render would.
func (p *Producer) Preview(ctx context.Context, sourcePath string, estimate bool) (*Preview, error) {
	doc, err := p.Parse(sourcePath)
	if err != nil {
		return nil, err
	}
	var voicer timeline.Voicer = timeline.EstimateVoicer{}
	if !estimate {
		scratch := ""
		if p.cache == nil {
			if scratch, err = p.scratchDir("preview-"); err != nil {
				return nil, err
			}
			defer os.RemoveAll(scratch)
		}
		voicer = p.voicer(scratch)
	}
	tl, err := timeline.Schedule(ctx, doc, voicer, p.scheduleOptions(nil))
	if err != nil {
		return nil, err
	}
	plan, err := mixplan.Plan(tl, p.assets, p.mixDefaults(doc))
	if err != nil {
		return nil, err
	}
	return &Preview{Document: doc, Timeline: tl, Plan: plan}, nil
}

func (p *Producer) scratchDir(pattern string) (string, error) {
	if err := os.MkdirAll(p.cfg.ScratchDir(), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "pipeline", "scratch", "Failed to create scratch directory", err)
	}
	dir, err := os.MkdirTemp(p.cfg.ScratchDir(), pattern)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "pipeline", "scratch", "Failed to create scratch directory", err)
	}
	return dir, nil
}

func (p *Producer) voicer(scratch string) timeline.Voicer {
	synth := clipcache.NewSynthesizer(p.engine, p.cache, scratch, p.logger)
	if !p.cfg.TTS.AllowSilenceFallback {
		return synth
	}
	return timeline.WithFallback(synth, timeline.EstimateVoicer{}, func(req timeline.Request, err error) {
		logging.WarnWithContext(p.logger, "synthesis failed, using silence", "silence_fallback",
			logging.String(logging.FieldSegment, string(req.Ref)),
			logging.String(logging.FieldScene, req.Scene),
			logging.Error(err),
			logging.Alert("silent segment"),
			logging.String(logging.FieldImpact, "segment renders as silence of estimated length"),
			logging.String(logging.FieldErrorHint, "check the tts engine and voice reference"),
		)
	})
}

func (p *Producer) scheduleOptions(onSegment func(timeline.Request, timeline.Clip)) timeline.Options {
	mode := timeline.ModeInterleaved
	if p.cfg.TTS.TwoPass {
		mode = timeline.ModeTwoPass
	}
	return timeline.Options{
		Mode:          mode,
		Workers:       p.cfg.TTS.Workers,
		ScenePolicy:   timeline.ScenePolicy(p.cfg.Schedule.ScenePolicy),
		SceneGap:      p.cfg.SceneGap(),
		MergeAdjacent: p.cfg.Schedule.MergeAdjacent,
		BedLength:     p.bedLength,
		OnSegment:     onSegment,
		Logger:        p.logger,
	}
}

func (p *Producer) bedLength(kind sfml.BedKind, id string) (time.Duration, bool) {
	return p.assets.BedLength(string(kind), id)
}

func (p *Producer) mixDefaults(doc *sfml.Document) mixplan.Defaults {
	return mixplan.Defaults{
		NarrationGainDB: p.cfg.Mix.NarrationGainDB,
		MusicGainDB:     p.cfg.Mix.MusicGainDB,
		AmbienceGainDB:  p.cfg.Mix.AmbienceGainDB,
		SfxGainDB:       p.cfg.Mix.SfxGainDB,
		DuckDB:          p.cfg.Mix.DuckDB,
		TargetLUFS:      p.cfg.Mix.TargetLUFS,
		TruePeakDB:      p.cfg.Mix.TruePeakDB,
		SampleRate:      p.cfg.Mix.SampleRate,
	}.WithDirectives(doc)
}

// SynthesisUnits counts the engine calls a render makes after grouping.
func SynthesisUnits(doc *sfml.Document, merge bool) int {
	total := 0
	for _, scene := range timeline.Group(doc, merge) {
		for _, ev := range scene.Events {
			if _, ok := ev.(sfml.SpeechSegment); ok {
				total++
			}
		}
	}
	return total
}

func trimmedTitle(doc *sfml.Document) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Title)
}
