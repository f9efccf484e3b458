package clipcache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"storyforge/internal/logging"
	"storyforge/internal/timeline"
	"storyforge/internal/tts"
)

// Synthesizer voices timeline segments through a tts.Engine, reusing cached
// clips when a cache is configured. It is safe for concurrent use.
type Synthesizer struct {
	engine  tts.Engine
	cache   *Cache
	scratch string
	logger  *slog.Logger
}

// NewSynthesizer wraps engine. With a nil cache every segment is synthesized
// into scratch, named after its segment ref.
func NewSynthesizer(engine tts.Engine, cache *Cache, scratch string, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		engine:  engine,
		cache:   cache,
		scratch: scratch,
		logger:  logging.NewComponentLogger(logger, "synthesizer"),
	}
}

// Voice implements timeline.Voicer.
func (s *Synthesizer) Voice(ctx context.Context, req timeline.Request) (timeline.Clip, error) {
	ttsReq := tts.Request{Text: req.Text, Voice: req.Voice, Controls: req.Controls}
	if s.cache == nil {
		out := filepath.Join(s.scratch, strings.ReplaceAll(string(req.Ref), "/", "_")+".wav")
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return timeline.Clip{}, fmt.Errorf("create scratch dir: %w", err)
		}
		res, err := s.engine.Synthesize(ctx, ttsReq, out)
		if err != nil {
			return timeline.Clip{}, err
		}
		return timeline.Clip{Path: res.Path, Duration: res.Duration, SampleRate: res.SampleRate}, nil
	}

	key := Key(s.engine.Name(), req.Voice, req.Controls, req.Text)
	entry, hit, err := s.cache.GetOrCreate(ctx, key, func(ctx context.Context, out string) (Produced, error) {
		res, err := s.engine.Synthesize(ctx, ttsReq, out)
		if err != nil {
			return Produced{}, err
		}
		return Produced{
			Duration:   res.Duration,
			SampleRate: res.SampleRate,
			Engine:     s.engine.Name(),
			Voice:      string(req.Voice),
		}, nil
	})
	if err != nil {
		return timeline.Clip{}, err
	}
	s.logger.DebugContext(ctx, "voiced segment",
		logging.String(logging.FieldSegment, string(req.Ref)),
		logging.String(logging.FieldScene, req.Scene),
		logging.Bool("cache_hit", hit),
		logging.Duration("duration", entry.Duration),
	)
	return timeline.Clip{Path: entry.Path, Duration: entry.Duration, SampleRate: entry.SampleRate}, nil
}
