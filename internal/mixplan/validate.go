package mixplan

import "time"

// Validate checks the structural invariants of a plan: a contiguous,
// non-overlapping narration track, well-formed bed intervals, non-negative
// onsets, and sane loudness targets.
func (p *MixPlan) Validate() error {
	if p == nil {
		return planErrorf("", "nil plan")
	}
	if p.Length < 0 {
		return planErrorf("", "negative length %s", p.Length)
	}
	if p.SampleRate <= 0 {
		return planErrorf("", "sample rate must be positive")
	}
	var pos time.Duration
	for i, e := range p.Narration.Entries {
		if e.Duration < 0 {
			return planErrorf(e.Ref, "narration entry %d has negative duration", i)
		}
		if e.Start < pos {
			return planErrorf(e.Ref, "narration entry %d overlaps the previous entry", i)
		}
		if e.Start-pos > silenceEpsilon {
			return planErrorf(e.Ref, "narration track has an unfilled gap before entry %d", i)
		}
		if !e.Silence && e.Clip == "" {
			return planErrorf(e.Ref, "narration entry %d has no clip", i)
		}
		pos = e.End()
	}
	for _, b := range p.Beds {
		if b.End < b.Start || b.Start < 0 {
			return planErrorf(b.ID, "bed interval [%s,%s) is invalid", b.Start, b.End)
		}
		if b.Clip == "" {
			return planErrorf(b.ID, "bed has no clip")
		}
		if b.FadeIn < 0 || b.FadeOut < 0 || b.FadeIn+b.FadeOut > b.Length() {
			return planErrorf(b.ID, "bed fades do not fit the interval")
		}
		for _, w := range b.Ducks {
			if w.Start < b.Start || w.End > b.End || w.End <= w.Start {
				return planErrorf(b.ID, "duck window [%s,%s) outside the bed", w.Start, w.End)
			}
		}
	}
	var prev time.Duration
	for _, s := range p.Sfx {
		if s.Onset < 0 {
			return planErrorf(s.ID, "negative onset")
		}
		if s.Onset < prev {
			return planErrorf(s.ID, "effects are not ordered by onset")
		}
		if s.Clip == "" {
			return planErrorf(s.ID, "effect has no clip")
		}
		prev = s.Onset
	}
	if p.TargetLUFS > -5 || p.TargetLUFS < -70 {
		return planErrorf("", "target loudness %.1f LUFS out of range", p.TargetLUFS)
	}
	if p.TruePeakDB > 0 || p.TruePeakDB < -9 {
		return planErrorf("", "true peak ceiling %.1f dBTP out of range", p.TruePeakDB)
	}
	return nil
}
