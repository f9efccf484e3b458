// Package mixplan turns a scheduled timeline plus its audio clips into a
// declarative multi-track mix and the ffmpeg filter graph that realizes it.
package mixplan

import (
	"math"
	"time"

	"storyforge/internal/sfml"
	"storyforge/internal/timeline"
)

// PlanVersion is written into exported plans.
const PlanVersion = 1

// silenceEpsilon is the smallest narration gap filled with explicit silence.
const silenceEpsilon = time.Millisecond

// Defaults carries per-track gains and the loudness targets.
type Defaults struct {
	NarrationGainDB float64
	MusicGainDB     float64
	AmbienceGainDB  float64
	SfxGainDB       float64
	// DuckDB is the attenuation applied to beds under narration.
	DuckDB     float64
	TargetLUFS float64
	TruePeakDB float64
	SampleRate int
}

// StandardDefaults returns the stock mix: narration at unity, music at -18 dB,
// ambience at -22 dB, 6 dB of ducking, -16 LUFS and -1 dBTP at 48 kHz.
func StandardDefaults() Defaults {
	return Defaults{
		MusicGainDB:    -18,
		AmbienceGainDB: -22,
		DuckDB:         6,
		TargetLUFS:     -16,
		TruePeakDB:     -1,
		SampleRate:     48000,
	}
}

// WithDirectives applies @target_lufs and @truepeak_db from doc.
func (d Defaults) WithDirectives(doc *sfml.Document) Defaults {
	if v, ok := doc.Directive("target_lufs"); ok && v.Kind == sfml.KindNumber {
		d.TargetLUFS = v.Num
	}
	if v, ok := doc.Directive("truepeak_db"); ok && v.Kind == sfml.KindNumber {
		d.TruePeakDB = v.Num
	}
	return d
}

func (d Defaults) bedGain(kind sfml.BedKind) float64 {
	if kind == sfml.BedAmbience {
		return d.AmbienceGainDB
	}
	return d.MusicGainDB
}

// AssetResolver locates bed and effect clips. kind is "music", "ambience" or
// "sfx".
type AssetResolver interface {
	ResolveAsset(kind, id string) (timeline.Clip, error)
}

// MixPlan is the complete description of one render. It is never modified
// after Plan returns.
type MixPlan struct {
	Version    int
	Length     time.Duration
	SampleRate int
	Narration  NarrationTrack
	Beds       []BedTrack
	Sfx        []SfxEntry
	TargetLUFS float64
	TruePeakDB float64
}

// NarrationTrack is contiguous from zero to the plan length.
type NarrationTrack struct {
	GainDB  float64
	Entries []NarrationEntry
}

// NarrationEntry is either a clip or a run of generated silence.
type NarrationEntry struct {
	Ref      string
	Clip     string
	Start    time.Duration
	Duration time.Duration
	Silence  bool
}

// End returns Start+Duration.
func (e NarrationEntry) End() time.Duration { return e.Start + e.Duration }

// BedTrack is one bed interval.
type BedTrack struct {
	Kind  sfml.BedKind
	ID    string
	Clip  string
	Start time.Duration
	End   time.Duration
	Loop  bool
	// ClipDuration is zero when the clip length is unknown.
	ClipDuration time.Duration
	// Tiles counts the clip repetitions that cover the interval, the last one
	// trimmed. It is zero when ClipDuration is unknown.
	Tiles   int
	FadeIn  time.Duration
	FadeOut time.Duration
	GainDB  float64
	DuckDB  float64
	Ducks   []Window
}

// Length returns End-Start.
func (b BedTrack) Length() time.Duration { return b.End - b.Start }

// Window is an absolute [Start,End) interval.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// SfxEntry is a one-shot effect. Effects are never ducked.
type SfxEntry struct {
	ID     string
	Clip   string
	Onset  time.Duration
	GainDB float64
}

// Plan builds the mix for tl. Narration clips come from tl.Clips; beds and
// effects are located through assets. A narration clip without a path is
// rendered as silence of the clip's length.
func Plan(tl *timeline.Timeline, assets AssetResolver, d Defaults) (*MixPlan, error) {
	if tl == nil {
		return nil, planErrorf("", "nil timeline")
	}
	if d.SampleRate <= 0 {
		d.SampleRate = StandardDefaults().SampleRate
	}
	plan := &MixPlan{
		Version:    PlanVersion,
		Length:     tl.Length,
		SampleRate: d.SampleRate,
		Narration:  NarrationTrack{GainDB: d.NarrationGainDB},
		TargetLUFS: d.TargetLUFS,
		TruePeakDB: d.TruePeakDB,
	}

	narration := tl.Narration()
	entries, err := narrationEntries(narration, tl.Clips, tl.Length)
	if err != nil {
		return nil, err
	}
	plan.Narration.Entries = entries

	// Segments rendered as silence have no clip and duck nothing.
	speech := make([]Window, 0, len(narration))
	for _, ev := range narration {
		if tl.Clips[ev.Ref].Path == "" {
			continue
		}
		speech = append(speech, Window{Start: ev.Start, End: ev.End})
	}

	for _, ev := range tl.Beds() {
		if ev.End <= ev.Start {
			continue
		}
		track, err := bedTrack(ev, assets, d, speech)
		if err != nil {
			return nil, err
		}
		plan.Beds = append(plan.Beds, track)
	}

	for _, ev := range tl.Effects() {
		if assets == nil {
			return nil, planErrorf(ev.Sfx.ID, "no asset resolver for sound effects")
		}
		clip, err := assets.ResolveAsset("sfx", ev.Sfx.ID)
		if err != nil {
			return nil, &MixPlanError{Ref: ev.Sfx.ID, Reason: "resolve sfx", Err: err}
		}
		plan.Sfx = append(plan.Sfx, SfxEntry{
			ID:     ev.Sfx.ID,
			Clip:   clip.Path,
			Onset:  ev.Start,
			GainDB: ev.Sfx.GainDB + d.SfxGainDB,
		})
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func narrationEntries(events []timeline.TimedEvent, clips map[timeline.SegmentRef]timeline.Clip, length time.Duration) ([]NarrationEntry, error) {
	var entries []NarrationEntry
	var pos time.Duration
	for _, ev := range events {
		clip, ok := clips[ev.Ref]
		if !ok {
			return nil, planErrorf(string(ev.Ref), "no clip for scheduled segment")
		}
		if ev.Start < pos {
			return nil, planErrorf(string(ev.Ref), "segment starts at %s before the previous one ends at %s", ev.Start, pos)
		}
		if gap := ev.Start - pos; gap > silenceEpsilon {
			entries = append(entries, NarrationEntry{Start: pos, Duration: gap, Silence: true})
		}
		entry := NarrationEntry{
			Ref:      string(ev.Ref),
			Clip:     clip.Path,
			Start:    ev.Start,
			Duration: ev.End - ev.Start,
		}
		if clip.Path == "" {
			entry.Silence = true
		}
		entries = append(entries, entry)
		pos = ev.End
	}
	if gap := length - pos; gap > silenceEpsilon {
		entries = append(entries, NarrationEntry{Start: pos, Duration: gap, Silence: true})
	}
	return entries, nil
}

func bedTrack(ev timeline.TimedEvent, assets AssetResolver, d Defaults, speech []Window) (BedTrack, error) {
	bed := ev.Bed
	if assets == nil {
		return BedTrack{}, planErrorf(bed.ID, "no asset resolver for beds")
	}
	clip, err := assets.ResolveAsset(string(bed.Kind), bed.ID)
	if err != nil {
		return BedTrack{}, &MixPlanError{Ref: bed.ID, Reason: "resolve " + string(bed.Kind), Err: err}
	}
	track := BedTrack{
		Kind:         bed.Kind,
		ID:           bed.ID,
		Clip:         clip.Path,
		Start:        ev.Start,
		End:          ev.End,
		Loop:         bed.Loop,
		ClipDuration: clip.Duration,
		GainDB:       d.bedGain(bed.Kind),
		DuckDB:       d.DuckDB,
	}
	if bed.GainDB != nil {
		track.GainDB = *bed.GainDB
	}
	if clip.Duration > 0 {
		if !track.Loop && track.Start+clip.Duration < track.End {
			track.End = track.Start + clip.Duration
		}
		track.Tiles = int(math.Ceil(float64(track.Length()) / float64(clip.Duration)))
		if !track.Loop {
			track.Tiles = 1
		}
	}
	track.FadeIn, track.FadeOut = clampFades(bed.FadeIn, bed.FadeOut, track.Length())
	if track.DuckDB > 0 {
		track.Ducks = duckWindows(Window{Start: track.Start, End: track.End}, speech)
	}
	return track, nil
}

// clampFades scales fades down proportionally when together they exceed the
// interval.
func clampFades(in, out, length time.Duration) (time.Duration, time.Duration) {
	in = max(in, 0)
	out = max(out, 0)
	total := in + out
	if total <= length || total == 0 {
		return in, out
	}
	scale := float64(length) / float64(total)
	in = time.Duration(math.Floor(float64(in) * scale))
	return in, length - in
}
