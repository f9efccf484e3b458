package timeline

import (
	"context"
	"fmt"
	"time"

	"storyforge/internal/sfml"
)

// Clip is a synthesized or prerecorded audio file with a known length.
type Clip struct {
	Path       string
	Duration   time.Duration
	SampleRate int
}

// SegmentRef names a speech unit as "<scene>/seg-NNN".
type SegmentRef string

// NewSegmentRef formats the reference of the n-th (1-based) unit in a scene.
func NewSegmentRef(sceneID string, n int) SegmentRef {
	return SegmentRef(fmt.Sprintf("%s/seg-%03d", sceneID, n))
}

// Request is one synthesis unit handed to a Voicer.
type Request struct {
	Ref      SegmentRef
	Scene    string
	Line     int
	Speaker  sfml.SpeakerName
	Voice    sfml.VoiceID
	Text     string
	Controls sfml.Controls
}

// Voicer turns a speech unit into a clip. Implementations must be safe for
// concurrent use when the scheduler runs in two-pass mode.
type Voicer interface {
	Voice(ctx context.Context, req Request) (Clip, error)
}

// VoicerFunc adapts a function to Voicer.
type VoicerFunc func(ctx context.Context, req Request) (Clip, error)

// Voice calls f.
func (f VoicerFunc) Voice(ctx context.Context, req Request) (Clip, error) {
	return f(ctx, req)
}

// Kind tags a TimedEvent.
type Kind string

const (
	KindNarration Kind = "narration"
	KindPause     Kind = "pause"
	KindBed       Kind = "bed"
	KindSfx       Kind = "sfx"
)

// BedInterval is the payload of a KindBed event.
type BedInterval struct {
	Kind    sfml.BedKind
	ID      string
	GainDB  *float64
	Loop    bool
	FadeIn  time.Duration
	FadeOut time.Duration
}

// SfxPlacement is the payload of a KindSfx event.
type SfxPlacement struct {
	ID     string
	Anchor sfml.Anchor
	Offset time.Duration
	GainDB float64
}

// TimedEvent is one placed event. End equals Start for spot effects.
type TimedEvent struct {
	Kind  Kind
	Scene string
	Line  int
	Start time.Duration
	End   time.Duration

	// Narration payload.
	Ref      SegmentRef
	Speaker  sfml.SpeakerName
	Voice    sfml.VoiceID
	Text     string
	Controls sfml.Controls

	Bed *BedInterval
	Sfx *SfxPlacement
}

// Duration returns End-Start.
func (e TimedEvent) Duration() time.Duration {
	return e.End - e.Start
}

// Timeline is the scheduler output. Events are stable-sorted by Start.
type Timeline struct {
	Events []TimedEvent
	Length time.Duration
	Clips  map[SegmentRef]Clip
}

// Narration returns the narration events in playback order.
func (t *Timeline) Narration() []TimedEvent {
	return t.filter(KindNarration)
}

// Beds returns the bed intervals.
func (t *Timeline) Beds() []TimedEvent {
	return t.filter(KindBed)
}

// Effects returns the spot effect placements.
func (t *Timeline) Effects() []TimedEvent {
	return t.filter(KindSfx)
}

func (t *Timeline) filter(kind Kind) []TimedEvent {
	if t == nil {
		return nil
	}
	var out []TimedEvent
	for _, ev := range t.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
