package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyforge/internal/jobs"
	"storyforge/internal/logging"
	"storyforge/internal/mixplan"
	"storyforge/internal/services"
	"storyforge/internal/sfml"
	"storyforge/internal/textutil"
	"storyforge/internal/timeline"
)

// Outcome summarizes one render. Job reflects the final persisted state,
// including on failure.
type Outcome struct {
	Job      *jobs.Job
	Output   string
	Length   time.Duration
	Bytes    int64
	Segments int
	Elapsed  time.Duration
}

// Render runs the full pipeline for the script at sourcePath and records it
// as a job. Cancelling ctx stops synthesis and encoding; the job is then
// marked cancelled and no output file is left behind.
func (p *Producer) Render(ctx context.Context, sourcePath string) (*Outcome, error) {
	started := time.Now()
	doc, parseErr := p.Parse(sourcePath)
	title := trimmedTitle(doc)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	}

	job, err := p.jobs.Create(ctx, title, sourcePath)
	if err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("render queued",
		logging.String(logging.FieldEventType, "render_queued"),
		logging.String("title", title),
		logging.String("source", sourcePath),
	)

	outcome := &Outcome{}
	err = parseErr
	if err == nil {
		err = p.run(ctx, job, doc, outcome)
	}
	outcome.Elapsed = time.Since(started)
	if err != nil {
		p.fail(ctx, logger, job.ID, err)
	}
	if final, gerr := p.jobs.Get(context.WithoutCancel(ctx), job.ID); gerr == nil && final != nil {
		outcome.Job = final
	} else {
		outcome.Job = job
	}
	if err != nil {
		return outcome, err
	}
	p.pruneCache(ctx, logger)
	logger.Info("render completed",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("output", outcome.Output),
		logging.Duration("total_duration", outcome.Length),
		logging.Int64("output_bytes", outcome.Bytes),
		logging.Int("segments", outcome.Segments),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}

func (p *Producer) run(ctx context.Context, job *jobs.Job, doc *sfml.Document, outcome *Outcome) error {
	total := SynthesisUnits(doc, p.cfg.Schedule.MergeAdjacent)
	outcome.Segments = total
	if err := p.jobs.Start(ctx, job.ID, total); err != nil {
		return err
	}

	scratch := ""
	if p.cache == nil {
		dir, err := p.scratchDir(job.ID + "-")
		if err != nil {
			return err
		}
		scratch = dir
		defer os.RemoveAll(scratch)
	}

	var tl *timeline.Timeline
	err := p.stage(ctx, StageSynthesize, func(ctx context.Context, logger *slog.Logger) error {
		progress := p.progressObserver(ctx, logger, job.ID, total)
		var err error
		tl, err = timeline.Schedule(ctx, doc, p.voicer(scratch), p.scheduleOptions(progress))
		return err
	})
	if err != nil {
		return err
	}

	var plan *mixplan.MixPlan
	err = p.stage(ctx, StagePlan, func(context.Context, *slog.Logger) error {
		var err error
		plan, err = mixplan.Plan(tl, p.assets, p.mixDefaults(doc))
		return err
	})
	if err != nil {
		return err
	}

	out := filepath.Join(p.cfg.Paths.OutputDir, OutputName(job.Title, job.ID, p.cfg.Mix.Codec))
	err = p.stage(ctx, StageRender, func(ctx context.Context, _ *slog.Logger) error {
		res, err := p.renderer.Render(ctx, plan, out)
		if err != nil {
			return err
		}
		outcome.Output = res.Path
		outcome.Length = res.Duration
		outcome.Bytes = res.Bytes
		return nil
	})
	if err != nil {
		return err
	}
	return p.jobs.Complete(ctx, job.ID, outcome.Output)
}

// stage runs fn with the stage name stamped on its context and logger.
func (p *Producer) stage(ctx context.Context, name string, fn func(context.Context, *slog.Logger) error) error {
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, p.logger)
	started := time.Now()
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := fn(stageCtx, stageLogger); err != nil {
		return err
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

// progressObserver persists segment progress and logs it at 10% steps.
func (p *Producer) progressObserver(ctx context.Context, logger *slog.Logger, jobID string, total int) func(timeline.Request, timeline.Clip) {
	var mu sync.Mutex
	done := 0
	sampler := logging.NewProgressSampler(10)
	return func(req timeline.Request, clip timeline.Clip) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if err := p.jobs.Progress(ctx, jobID, done); err != nil && ctx.Err() == nil {
			logger.Warn("failed to persist progress", logging.Error(err))
		}
		if sampler.ShouldLogCount(done, total, StageSynthesize) {
			logger.Info("synthesis progress",
				logging.String(logging.FieldEventType, "synthesis_progress"),
				logging.Float64(logging.FieldProgressPercent, logging.Percent(done, total)),
				logging.Int("segments_done", done),
				logging.Int("segments", total),
				logging.String(logging.FieldSegment, string(req.Ref)),
				logging.Duration("duration", clip.Duration),
			)
		}
	}
}

func (p *Producer) fail(ctx context.Context, logger *slog.Logger, jobID string, cause error) {
	state, err := p.jobs.Fail(context.WithoutCancel(ctx), jobID, cause)
	if err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	attrs := []logging.Attr{
		logging.String("state", string(state)),
		logging.String("error_kind", services.ErrorKind(cause)),
		logging.Error(cause),
	}
	switch state {
	case jobs.StateCancelled:
		logger.Info("render cancelled", logging.Args(append(attrs, logging.String(logging.FieldEventType, "render_cancelled"))...)...)
	case jobs.StateRejected:
		logging.WarnWithContext(logger, "render rejected", "render_rejected", append(attrs,
			logging.String(logging.FieldErrorHint, "fix the script and run `storyforge check`"),
			logging.String(logging.FieldImpact, "no audio was produced"),
		)...)
	default:
		logging.ErrorWithContext(logger, "render failed", "render_failed", attrs...)
	}
}

func (p *Producer) pruneCache(ctx context.Context, logger *slog.Logger) {
	if p.cache == nil {
		return
	}
	res, err := p.cache.Prune(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "cache prune failed", "cache_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "cache may exceed cache.max_mib until the next prune"),
		)
		return
	}
	if res.Removed > 0 {
		logger.Info("cache pruned",
			logging.Int("removed", res.Removed),
			logging.Int64("freed_bytes", res.FreedBytes),
		)
	}
}

// OutputName derives the output file name from the job title, e.g.
// "The Sleepy Owl (1a2b3c4d).mp3".
func OutputName(title, jobID, codec string) string {
	name := textutil.SanitizeFileName(cases.Title(language.English).String(strings.Join(strings.Fields(title), " ")))
	if name == "" {
		name = "Untitled"
	}
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	if jobID != "" {
		name = fmt.Sprintf("%s (%s)", name, jobID)
	}
	return name + Extension(codec)
}

// Extension returns the container extension for an ffmpeg audio codec.
func Extension(codec string) string {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "libopus", "opus":
		return ".opus"
	case "libvorbis", "vorbis":
		return ".ogg"
	case "flac":
		return ".flac"
	case "aac", "libfdk_aac":
		return ".m4a"
	case "pcm_s16le", "pcm_s24le":
		return ".wav"
	default:
		return ".mp3"
	}
}
