// Package render applies a mix plan's filter graph with ffmpeg and encodes
// the final audio file.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"storyforge/internal/logging"
	"storyforge/internal/mixplan"
	"storyforge/internal/services"
)

// Encode defaults.
const (
	DefaultCodec      = "libmp3lame"
	DefaultBitrate    = "160k"
	DefaultSampleRate = 48000
)

// Options configures the encoder.
type Options struct {
	FFmpeg     string
	Codec      string
	Bitrate    string
	SampleRate int
}

func (o Options) normalized() Options {
	if strings.TrimSpace(o.FFmpeg) == "" {
		o.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(o.Codec) == "" {
		o.Codec = DefaultCodec
	}
	if strings.TrimSpace(o.Bitrate) == "" {
		o.Bitrate = DefaultBitrate
	}
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	return o
}

// Result describes an encoded file.
type Result struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
	Bytes    int64         `json:"bytes"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Renderer runs ffmpeg over a mix plan.
type Renderer struct {
	opts   Options
	run    services.CommandRunner
	logger *slog.Logger
}

// New constructs a Renderer.
func New(opts Options, logger *slog.Logger) *Renderer {
	return &Renderer{
		opts:   opts.normalized(),
		run:    services.RunCommand,
		logger: logging.NewComponentLogger(logger, "render"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Renderer) WithCommandRunner(runner services.CommandRunner) {
	if runner != nil {
		r.run = runner
	}
}

// Render encodes plan into out. ffmpeg writes a hidden sibling file that is
// renamed into place only after it succeeds, so out is never left partial.
func (r *Renderer) Render(ctx context.Context, plan *mixplan.MixPlan, out string) (Result, error) {
	if plan == nil {
		return Result{}, services.Wrap(services.ErrValidation, "render", "validate", "nil mix plan", nil)
	}
	if strings.TrimSpace(out) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "render", "validate", "empty output path", nil)
	}
	graph, err := mixplan.BuildGraph(plan)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "render", "ensure output dir", "Failed to create output directory", err)
	}

	partial := filepath.Join(filepath.Dir(out), "."+strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))+".partial"+filepath.Ext(out))
	args := r.BuildArgs(graph, partial)
	started := time.Now()
	r.logger.InfoContext(ctx, "encoding mix",
		logging.String("output", out),
		logging.Int("inputs", len(graph.Inputs)),
		logging.Duration("length", plan.Length),
		logging.String("codec", r.opts.Codec),
	)
	if _, err := r.run(ctx, r.opts.FFmpeg, args...); err != nil {
		_ = os.Remove(partial)
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{}, ctx.Err()
		}
		if errors.Is(err, services.ErrExternalTool) || errors.Is(err, services.ErrTimeout) {
			return Result{}, fmt.Errorf("render: %w", err)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "Encoding failed", err)
	}
	info, err := os.Stat(partial)
	if err != nil || info.Size() == 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "Encoder produced no output", err)
	}
	if err := os.Rename(partial, out); err != nil {
		_ = os.Remove(partial)
		return Result{}, fmt.Errorf("render: move output into place: %w", err)
	}
	result := Result{Path: out, Duration: plan.Length, Bytes: info.Size(), Elapsed: time.Since(started)}
	r.logger.InfoContext(ctx, "encoded mix",
		logging.String("output", out),
		logging.Int64("bytes", result.Bytes),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// BuildArgs returns the ffmpeg arguments that apply graph and encode to out.
func (r *Renderer) BuildArgs(graph mixplan.Graph, out string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
	args = append(args, graph.InputArgs()...)
	args = append(args,
		"-filter_complex", graph.Filter,
		"-map", "["+mixplan.OutputLabel+"]",
		"-c:a", r.opts.Codec,
		"-b:a", r.opts.Bitrate,
		"-ar", strconv.Itoa(r.opts.SampleRate),
		out,
	)
	return args
}
