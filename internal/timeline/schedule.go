package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storyforge/internal/logging"
	"storyforge/internal/sfml"
)

// Mode selects how synthesis and placement interleave.
type Mode string

const (
	// ModeInterleaved synthesizes each unit right before placing it.
	ModeInterleaved Mode = "interleaved"
	// ModeTwoPass synthesizes every unit up front on a bounded pool, then
	// places events sequentially.
	ModeTwoPass Mode = "two-pass"
)

// ScenePolicy decides what separates consecutive scenes.
type ScenePolicy string

const (
	// SceneContinuous places scenes back to back.
	SceneContinuous ScenePolicy = "continuous"
	// SceneGap inserts SceneGap of silence between scenes.
	SceneGap ScenePolicy = "gap"
)

// Options tunes Schedule. The zero value schedules interleaved, continuous,
// without merging adjacent segments.
type Options struct {
	Mode          Mode
	Workers       int
	ScenePolicy   ScenePolicy
	SceneGap      time.Duration
	MergeAdjacent bool
	// BedLength reports the clip length of a bed asset. Non-looping beds are
	// cut at the end of their clip when it is known.
	BedLength func(kind sfml.BedKind, id string) (time.Duration, bool)
	// OnSegment observes each synthesized unit. In two-pass mode calls are
	// serialized but arrive in completion order.
	OnSegment func(Request, Clip)
	Logger    *slog.Logger
}

func (o Options) normalized(doc *sfml.Document) (Options, error) {
	switch o.Mode {
	case "":
		o.Mode = ModeInterleaved
	case ModeInterleaved, ModeTwoPass:
	default:
		return o, fmt.Errorf("timeline: unknown mode %q", o.Mode)
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	switch o.ScenePolicy {
	case "":
		o.ScenePolicy = SceneContinuous
	case SceneContinuous, SceneGap:
	default:
		return o, fmt.Errorf("timeline: unknown scene policy %q", o.ScenePolicy)
	}
	if v, ok := doc.Directive("scene_gap"); ok && v.Num > 0 {
		o.ScenePolicy = SceneGap
		o.SceneGap = sfml.Seconds(v.Num)
	}
	if o.SceneGap < 0 {
		return o, fmt.Errorf("timeline: negative scene gap %s", o.SceneGap)
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o, nil
}

// cursor is the scheduler state threaded through one Schedule call.
type cursor struct {
	now       time.Duration
	lastStart time.Duration
	lastEnd   time.Duration
	// spoken is reset per scene; anchors need speech in the current scene.
	spoken bool
}

type scheduler struct {
	doc     *sfml.Document
	opts    Options
	logger  *slog.Logger
	voice   func(context.Context, Request) (Clip, error)
	cur     cursor
	events  []TimedEvent
	clips   map[SegmentRef]Clip
	openBed map[sfml.BedKind]int
}

// Schedule places every event of doc on one timeline. Parsing errors are the
// caller's concern; doc must be a validated document.
func Schedule(ctx context.Context, doc *sfml.Document, voicer Voicer, opts Options) (*Timeline, error) {
	if doc == nil {
		return nil, errors.New("timeline: nil document")
	}
	if voicer == nil {
		return nil, errors.New("timeline: nil voicer")
	}
	opts, err := opts.normalized(doc)
	if err != nil {
		return nil, err
	}
	scenes := Group(doc, opts.MergeAdjacent)

	s := &scheduler{
		doc:     doc,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "timeline"),
		clips:   map[SegmentRef]Clip{},
		openBed: map[sfml.BedKind]int{},
	}

	switch opts.Mode {
	case ModeTwoPass:
		clips, err := synthesizeAll(ctx, voicer, s.requests(scenes), opts)
		if err != nil {
			return nil, err
		}
		s.voice = func(_ context.Context, req Request) (Clip, error) {
			clip, ok := clips[req.Ref]
			if !ok {
				return Clip{}, fmt.Errorf("timeline: no clip for %s", req.Ref)
			}
			return clip, nil
		}
	default:
		s.voice = func(ctx context.Context, req Request) (Clip, error) {
			clip, err := voicer.Voice(ctx, req)
			if err == nil && opts.OnSegment != nil {
				opts.OnSegment(req, clip)
			}
			return clip, err
		}
	}

	for i, scene := range scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && opts.ScenePolicy == SceneGap && opts.SceneGap > 0 {
			s.appendPause(scene.ID, scene.Line, opts.SceneGap)
		}
		if err := s.scene(ctx, scene); err != nil {
			return nil, err
		}
	}
	return s.finish(), nil
}

func (s *scheduler) scene(ctx context.Context, scene sfml.Scene) error {
	s.cur.spoken = false
	n := 0
	for _, ev := range scene.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch e := ev.(type) {
		case sfml.SpeechSegment:
			n++
			if err := s.speech(ctx, s.request(scene, n, e)); err != nil {
				return err
			}
		case sfml.Pause:
			if e.Seconds < 0 {
				return &SchedulingError{Scene: scene.ID, Line: e.Line, Reason: "negative pause"}
			}
			s.appendPause(scene.ID, e.Line, e.Duration())
		case sfml.SfxCue:
			if err := s.sfx(scene.ID, e); err != nil {
				return err
			}
		case sfml.BedChange:
			if err := s.bed(scene.ID, e); err != nil {
				return err
			}
		default:
			return &SchedulingError{Scene: scene.ID, Line: ev.SourceLine(), Reason: fmt.Sprintf("unsupported event %T", ev)}
		}
	}
	return nil
}

func (s *scheduler) request(scene sfml.Scene, n int, seg sfml.SpeechSegment) Request {
	return Request{
		Ref:      NewSegmentRef(scene.ID, n),
		Scene:    scene.ID,
		Line:     seg.Line,
		Speaker:  seg.Speaker,
		Voice:    s.doc.Casting[seg.Speaker],
		Text:     seg.Text(),
		Controls: s.doc.ControlsFor(seg),
	}
}

// requests lists every synthesis unit in document order.
func (s *scheduler) requests(scenes []sfml.Scene) []Request {
	var out []Request
	for _, scene := range scenes {
		n := 0
		for _, ev := range scene.Events {
			if seg, ok := ev.(sfml.SpeechSegment); ok {
				n++
				out = append(out, s.request(scene, n, seg))
			}
		}
	}
	return out
}

func (s *scheduler) speech(ctx context.Context, req Request) error {
	clip, err := s.voice(ctx, req)
	if err != nil {
		return fmt.Errorf("timeline: synthesize %s (line %d): %w", req.Ref, req.Line, err)
	}
	if clip.Duration < 0 {
		return &SchedulingError{Scene: req.Scene, Line: req.Line, Reason: fmt.Sprintf("negative clip duration %s", clip.Duration)}
	}
	start := s.cur.now
	end := start + clip.Duration
	s.events = append(s.events, TimedEvent{
		Kind:     KindNarration,
		Scene:    req.Scene,
		Line:     req.Line,
		Start:    start,
		End:      end,
		Ref:      req.Ref,
		Speaker:  req.Speaker,
		Voice:    req.Voice,
		Text:     req.Text,
		Controls: req.Controls,
	})
	s.clips[req.Ref] = clip
	s.cur.lastStart = start
	s.cur.lastEnd = end
	s.cur.now = end
	s.cur.spoken = true
	s.logger.Debug("segment placed",
		logging.String(logging.FieldScene, req.Scene),
		logging.String(logging.FieldSegment, string(req.Ref)),
		logging.Duration("start", start),
		logging.Duration("duration", clip.Duration),
	)
	return nil
}

func (s *scheduler) appendPause(scene string, line int, d time.Duration) {
	if d <= 0 {
		return
	}
	s.events = append(s.events, TimedEvent{
		Kind:  KindPause,
		Scene: scene,
		Line:  line,
		Start: s.cur.now,
		End:   s.cur.now + d,
	})
	s.cur.now += d
}

func (s *scheduler) sfx(scene string, cue sfml.SfxCue) error {
	var base time.Duration
	switch cue.Anchor {
	case sfml.AnchorNow, "":
		base = s.cur.now
	case sfml.AnchorLastStart, sfml.AnchorLastEnd:
		if !s.cur.spoken {
			return &UnresolvedAnchorError{Scene: scene, Line: cue.Line, Anchor: cue.Anchor}
		}
		base = s.cur.lastEnd
		if cue.Anchor == sfml.AnchorLastStart {
			base = s.cur.lastStart
		}
	default:
		return &SchedulingError{Scene: scene, Line: cue.Line, Reason: fmt.Sprintf("unknown anchor %q", cue.Anchor)}
	}
	offset := sfml.Seconds(cue.OffsetSeconds)
	onset := max(base+offset, 0)
	s.events = append(s.events, TimedEvent{
		Kind:  KindSfx,
		Scene: scene,
		Line:  cue.Line,
		Start: onset,
		End:   onset,
		Sfx: &SfxPlacement{
			ID:     cue.ID,
			Anchor: cue.Anchor,
			Offset: offset,
			GainDB: cue.GainDB,
		},
	})
	return nil
}

func (s *scheduler) bed(scene string, change sfml.BedChange) error {
	switch change.Action {
	case sfml.BedStart:
		if _, open := s.openBed[change.Kind]; open {
			s.closeBed(change.Kind, s.cur.now, 0)
		}
		s.openBed[change.Kind] = len(s.events)
		s.events = append(s.events, TimedEvent{
			Kind:  KindBed,
			Scene: scene,
			Line:  change.Line,
			Start: s.cur.now,
			End:   s.cur.now,
			Bed: &BedInterval{
				Kind:    change.Kind,
				ID:      change.ID,
				GainDB:  change.GainDB,
				Loop:    change.Loop,
				FadeIn:  sfml.Seconds(change.FadeInSeconds),
				FadeOut: sfml.Seconds(change.FadeOutSeconds),
			},
		})
		return nil
	case sfml.BedStop:
		if _, open := s.openBed[change.Kind]; !open {
			return &SchedulingError{Scene: scene, Line: change.Line, Reason: fmt.Sprintf("%s stop without an open bed", strings.ToUpper(string(change.Kind)))}
		}
		s.closeBed(change.Kind, s.cur.now, sfml.Seconds(change.FadeOutSeconds))
		return nil
	default:
		return &SchedulingError{Scene: scene, Line: change.Line, Reason: fmt.Sprintf("unknown bed action %q", change.Action)}
	}
}

// closeBed ends the open bed of kind at end. A positive fadeOut replaces the
// one declared when the bed started.
func (s *scheduler) closeBed(kind sfml.BedKind, end time.Duration, fadeOut time.Duration) {
	idx := s.openBed[kind]
	delete(s.openBed, kind)
	ev := &s.events[idx]
	ev.End = end
	if fadeOut > 0 {
		ev.Bed.FadeOut = fadeOut
	}
	if !ev.Bed.Loop && s.opts.BedLength != nil {
		if length, ok := s.opts.BedLength(kind, ev.Bed.ID); ok && length >= 0 && ev.Start+length < ev.End {
			ev.End = ev.Start + length
		}
	}
}

func (s *scheduler) finish() *Timeline {
	length := s.cur.now
	for _, kind := range []sfml.BedKind{sfml.BedMusic, sfml.BedAmbience} {
		if _, open := s.openBed[kind]; open {
			s.closeBed(kind, length, 0)
		}
	}
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].Start < s.events[j].Start
	})
	s.logger.Debug("timeline scheduled",
		logging.Int("events", len(s.events)),
		logging.Int("segments", len(s.clips)),
		logging.Duration("length", length),
	)
	return &Timeline{Events: s.events, Length: length, Clips: s.clips}
}

func synthesizeAll(ctx context.Context, voicer Voicer, reqs []Request, opts Options) (map[SegmentRef]Clip, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	var mu sync.Mutex
	clips := make(map[SegmentRef]Clip, len(reqs))
	for _, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			clip, err := voicer.Voice(gctx, req)
			if err != nil {
				return fmt.Errorf("timeline: synthesize %s (line %d): %w", req.Ref, req.Line, err)
			}
			mu.Lock()
			defer mu.Unlock()
			clips[req.Ref] = clip
			if opts.OnSegment != nil {
				opts.OnSegment(req, clip)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}
