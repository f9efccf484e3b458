package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"storyforge/internal/media/ffprobe"
	"storyforge/internal/sfml"
)

// Request is one synthesis call.
type Request struct {
	Text     string
	Voice    sfml.VoiceID
	Controls sfml.Controls
}

// Result describes the file an engine wrote.
type Result struct {
	Path       string
	Duration   time.Duration
	SampleRate int
}

// Engine synthesizes req into a WAV file at out.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, req Request, out string) (Result, error)
}

// Voice is a resolved voice: the reference the engine is given.
type Voice struct {
	ID        sfml.VoiceID
	Reference string
}

// VoiceResolver maps casting voice ids to engine references.
type VoiceResolver interface {
	ResolveVoice(id sfml.VoiceID) (Voice, error)
}

// IdentityVoices passes the voice id through as the reference.
type IdentityVoices struct{}

// ResolveVoice implements VoiceResolver.
func (IdentityVoices) ResolveVoice(id sfml.VoiceID) (Voice, error) {
	if id == "" {
		return Voice{}, errors.New("empty voice id")
	}
	return Voice{ID: id, Reference: string(id)}, nil
}

// Prober measures a written clip.
type Prober func(ctx context.Context, path string) (time.Duration, int, error)

// FFprobe returns a Prober backed by the ffprobe binary.
func FFprobe(binary string) Prober {
	return func(ctx context.Context, path string) (time.Duration, int, error) {
		result, err := ffprobe.Inspect(ctx, binary, path)
		if err != nil {
			return 0, 0, err
		}
		return result.Duration(), result.SampleRate(), nil
	}
}

// finish checks the engine output and measures it.
func finish(ctx context.Context, engine, voice string, probe Prober, out string) (Result, error) {
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		return Result{}, &SynthesisError{Engine: engine, Voice: voice, Reason: ReasonEmpty, Err: err}
	}
	duration, rate, err := probe(ctx, out)
	if err != nil {
		return Result{}, &SynthesisError{Engine: engine, Voice: voice, Reason: ReasonEngine, Err: fmt.Errorf("probe output: %w", err)}
	}
	if duration <= 0 {
		return Result{}, &SynthesisError{Engine: engine, Voice: voice, Reason: ReasonEmpty, Err: errors.New("output has no audio")}
	}
	return Result{Path: out, Duration: duration, SampleRate: rate}, nil
}

// callError classifies an engine call failure.
func callError(ctx context.Context, engine, voice string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	reason := ReasonEngine
	var timeout interface{ Timeout() bool }
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &timeout) && timeout.Timeout()) {
		reason = ReasonTimeout
	}
	return &SynthesisError{Engine: engine, Voice: voice, Reason: reason, Err: err}
}
