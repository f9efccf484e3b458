package sfml

import (
	"math"
	"sort"
	"strings"
	"time"
)

// SpeakerName identifies a cast member referenced by speech events.
type SpeakerName string

// VoiceID identifies the voice a speaker is rendered with.
type VoiceID string

// Narrator is the reserved speaker every cast must define.
const Narrator SpeakerName = "Narrator"

// Format names a grammar revision.
type Format string

const (
	FormatAuto   Format = ""
	FormatV1     Format = "v1"
	FormatLegacy Format = "v0.1"
)

// Document is the parse result. It is not mutated after Parse returns.
type Document struct {
	Title      string
	Format     Format
	Directives map[string]Value
	Casting    map[SpeakerName]VoiceID
	// Profiles holds voice-level control defaults declared on casting lines.
	// Explicit per-line tags always take precedence.
	Profiles map[SpeakerName]Controls
	Scenes   []Scene
}

// Scene is an ordered run of events; event order is playback order.
type Scene struct {
	ID     string
	Title  string
	Line   int
	Events []Event
}

// Directive returns the directive stored under key (case-insensitive).
func (d *Document) Directive(key string) (Value, bool) {
	if d == nil || d.Directives == nil {
		return Value{}, false
	}
	v, ok := d.Directives[strings.ToLower(strings.TrimSpace(key))]
	return v, ok
}

// SegmentCount returns the number of speech segments across all scenes.
func (d *Document) SegmentCount() int {
	if d == nil {
		return 0
	}
	count := 0
	for _, scene := range d.Scenes {
		for _, ev := range scene.Events {
			if _, ok := ev.(SpeechSegment); ok {
				count++
			}
		}
	}
	return count
}

// Speakers returns the cast names in sorted order.
func (d *Document) Speakers() []SpeakerName {
	if d == nil {
		return nil
	}
	names := make([]SpeakerName, 0, len(d.Casting))
	for name := range d.Casting {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ControlsFor resolves the effective controls for a segment: explicit tag
// values first, then the speaker's casting profile.
func (d *Document) ControlsFor(seg SpeechSegment) Controls {
	if d == nil || d.Profiles == nil {
		return seg.Controls
	}
	return seg.Controls.Over(d.Profiles[seg.Speaker])
}

// Source records where an event was declared.
type Source struct {
	Line int
}

// SourceLine returns the 1-based line the event came from.
func (s Source) SourceLine() int { return s.Line }

// Event is one of SpeechSegment, Pause, SfxCue or BedChange.
type Event interface {
	SourceLine() int
	isEvent()
}

// SpeechSegment is one synthesis unit: a speaker block (or a run of bullets
// sharing the same tag) or a single `[Name] text` line.
type SpeechSegment struct {
	Source
	Speaker  SpeakerName
	Lines    []string
	Controls Controls
}

// Text joins the segment lines for synthesis.
func (s SpeechSegment) Text() string {
	return strings.Join(s.Lines, " ")
}

// Pause advances the timeline cursor.
type Pause struct {
	Source
	Seconds float64
}

// Duration converts Seconds to a time.Duration rounded to the nanosecond.
func (p Pause) Duration() time.Duration {
	return Seconds(p.Seconds)
}

// Anchor names a timeline reference point for spot effects.
type Anchor string

const (
	AnchorNow       Anchor = "now"
	AnchorLastStart Anchor = "last_start"
	AnchorLastEnd   Anchor = "last_end"
)

// ParseAnchor validates an anchor name.
func ParseAnchor(value string) (Anchor, bool) {
	switch a := Anchor(strings.ToLower(strings.TrimSpace(value))); a {
	case AnchorNow, AnchorLastStart, AnchorLastEnd:
		return a, true
	default:
		return "", false
	}
}

// SfxCue places a one-shot effect relative to an anchor. The id is opaque and
// checked by callers against their asset index.
type SfxCue struct {
	Source
	ID            string
	Anchor        Anchor
	OffsetSeconds float64
	GainDB        float64
}

// BedKind distinguishes music beds from ambience beds.
type BedKind string

const (
	BedMusic    BedKind = "music"
	BedAmbience BedKind = "ambience"
)

// BedAction starts or stops a bed.
type BedAction string

const (
	BedStart BedAction = "start"
	BedStop  BedAction = "stop"
)

// BedChange opens or closes a music/ambience bed at the cursor.
type BedChange struct {
	Source
	Kind   BedKind
	Action BedAction
	ID     string
	// GainDB is nil when the line did not set a gain; the mix defaults for the
	// bed kind apply then.
	GainDB         *float64
	Loop           bool
	FadeInSeconds  float64
	FadeOutSeconds float64
}

func (SpeechSegment) isEvent() {}
func (Pause) isEvent()         {}
func (SfxCue) isEvent()        {}
func (BedChange) isEvent()     {}

// Seconds converts fractional seconds to a Duration without accumulating
// binary float error.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
