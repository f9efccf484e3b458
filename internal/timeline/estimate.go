package timeline

import (
	"context"
	"strings"
	"time"

	"storyforge/internal/sfml"
)

const (
	defaultWordsPerMinute = 160
	defaultMinimumSpeech  = 300 * time.Millisecond
)

// EstimateVoicer predicts speech length from word count without producing
// audio. Clips it returns have no Path.
type EstimateVoicer struct {
	WordsPerMinute float64
	Minimum        time.Duration
}

// Voice implements Voicer.
func (e EstimateVoicer) Voice(ctx context.Context, req Request) (Clip, error) {
	if err := ctx.Err(); err != nil {
		return Clip{}, err
	}
	return Clip{Duration: e.Estimate(req.Text, req.Controls)}, nil
}

// Estimate returns the predicted spoken length of text. A positive rate
// control scales the speaking speed.
func (e EstimateVoicer) Estimate(text string, controls sfml.Controls) time.Duration {
	wpm := e.WordsPerMinute
	if wpm <= 0 {
		wpm = defaultWordsPerMinute
	}
	if controls.Rate > 0 {
		wpm *= controls.Rate
	}
	minimum := e.Minimum
	if minimum <= 0 {
		minimum = defaultMinimumSpeech
	}
	words := len(strings.Fields(text))
	d := sfml.Seconds(float64(words) * 60 / wpm)
	if d < minimum {
		return minimum
	}
	return d
}

// WithFallback returns a Voicer that asks fallback whenever primary fails.
// Cancellation is never masked. onFailure, when set, observes each primary
// failure before the fallback runs.
func WithFallback(primary, fallback Voicer, onFailure func(Request, error)) Voicer {
	return VoicerFunc(func(ctx context.Context, req Request) (Clip, error) {
		clip, err := primary.Voice(ctx, req)
		if err == nil {
			return clip, nil
		}
		if ctx.Err() != nil {
			return Clip{}, err
		}
		if onFailure != nil {
			onFailure(req, err)
		}
		return fallback.Voice(ctx, req)
	})
}
