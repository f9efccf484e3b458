package mixplan

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"storyforge/internal/sfml"
	"storyforge/internal/timeline"
)

type fakeAssets map[string]timeline.Clip

func (f fakeAssets) ResolveAsset(kind, id string) (timeline.Clip, error) {
	clip, ok := f[kind+"/"+id]
	if !ok {
		return timeline.Clip{}, fmt.Errorf("asset %s/%s not found", kind, id)
	}
	return clip, nil
}

var testAssets = fakeAssets{
	"music/theme":  {Path: "/assets/music/theme.mp3", Duration: 4 * time.Second},
	"ambience/sea": {Path: "/assets/ambience/sea.wav"},
	"sfx/door":     {Path: "/assets/sfx/door.wav", Duration: 800 * time.Millisecond},
	"sfx/owl":      {Path: "/assets/sfx/owl.wav"},
}

func schedule(t *testing.T, text string, d time.Duration) *timeline.Timeline {
	t.Helper()
	doc, err := sfml.Parse(text, sfml.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	voicer := timeline.VoicerFunc(func(_ context.Context, req timeline.Request) (timeline.Clip, error) {
		return timeline.Clip{Path: "/clips/" + strings.ReplaceAll(string(req.Ref), "/", "_") + ".wav", Duration: d}, nil
	})
	tl, err := timeline.Schedule(context.Background(), doc, voicer, timeline.Options{})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return tl
}

const story = `cast:
  Narrator: v1
  Maris: v2
scene a:
  MUSIC: start id=theme fade_in=1 fade_out=2
  [Narrator] One.
  SFX: id=door at=last_end -0.5 gain_db=-3
  PAUSE: 0.5
  [Maris] Two.
  [Narrator] Three.
  PAUSE: 1
  AMBIENCE: start id=sea gain_db=-30
  SFX: id=owl
  PAUSE: 2
`

func TestPlanNarrationTrackIsContiguous(t *testing.T) {
	tl := schedule(t, story, 2*time.Second)
	plan, err := Plan(tl, testAssets, StandardDefaults())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []NarrationEntry{
		{Ref: "a/seg-001", Clip: "/clips/a_seg-001.wav", Start: 0, Duration: 2 * time.Second},
		{Start: 2 * time.Second, Duration: 500 * time.Millisecond, Silence: true},
		{Ref: "a/seg-002", Clip: "/clips/a_seg-002.wav", Start: 2500 * time.Millisecond, Duration: 2 * time.Second},
		{Ref: "a/seg-003", Clip: "/clips/a_seg-003.wav", Start: 4500 * time.Millisecond, Duration: 2 * time.Second},
		{Start: 6500 * time.Millisecond, Duration: 3 * time.Second, Silence: true},
	}
	if !reflect.DeepEqual(plan.Narration.Entries, want) {
		t.Fatalf("narration entries\n got: %+v\nwant: %+v", plan.Narration.Entries, want)
	}
	last := plan.Narration.Entries[len(plan.Narration.Entries)-1]
	if last.End() != plan.Length || plan.Length != 9500*time.Millisecond {
		t.Fatalf("narration ends at %s, plan length %s", last.End(), plan.Length)
	}
	if plan.TargetLUFS != -16 || plan.TruePeakDB != -1 {
		t.Fatalf("unexpected loudness targets %v/%v", plan.TargetLUFS, plan.TruePeakDB)
	}
}

func TestPlanBedsAndEffects(t *testing.T) {
	tl := schedule(t, story, 2*time.Second)
	plan, err := Plan(tl, testAssets, StandardDefaults())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Beds) != 2 {
		t.Fatalf("expected 2 beds, got %d", len(plan.Beds))
	}
	music := plan.Beds[0]
	if music.Kind != sfml.BedMusic || music.Start != 0 || music.End != 9500*time.Millisecond {
		t.Fatalf("unexpected music interval %+v", music)
	}
	if music.GainDB != -18 || music.Tiles != 3 || !music.Loop {
		t.Fatalf("unexpected music gain/tiles %+v", music)
	}
	if music.FadeIn != time.Second || music.FadeOut != 2*time.Second {
		t.Fatalf("unexpected fades %s/%s", music.FadeIn, music.FadeOut)
	}
	wantDucks := []Window{{0, 2 * time.Second}, {2500 * time.Millisecond, 6500 * time.Millisecond}}
	if !reflect.DeepEqual(music.Ducks, wantDucks) {
		t.Fatalf("duck windows = %v, want %v", music.Ducks, wantDucks)
	}

	sea := plan.Beds[1]
	if sea.GainDB != -30 || sea.Start != 7500*time.Millisecond || sea.Tiles != 0 || len(sea.Ducks) != 0 {
		t.Fatalf("unexpected ambience bed %+v", sea)
	}

	want := []SfxEntry{
		{ID: "door", Clip: "/assets/sfx/door.wav", Onset: 1500 * time.Millisecond, GainDB: -3},
		{ID: "owl", Clip: "/assets/sfx/owl.wav", Onset: 6500 * time.Millisecond},
	}
	if !reflect.DeepEqual(plan.Sfx, want) {
		t.Fatalf("sfx = %+v, want %+v", plan.Sfx, want)
	}
}

func TestPlanMissingClip(t *testing.T) {
	tl := schedule(t, story, time.Second)
	delete(tl.Clips, "a/seg-002")
	_, err := Plan(tl, testAssets, StandardDefaults())
	var planErr *MixPlanError
	if !errors.As(err, &planErr) || planErr.Ref != "a/seg-002" {
		t.Fatalf("expected MixPlanError for a/seg-002, got %v", err)
	}
	if !errors.Is(err, ErrMixPlan) {
		t.Fatalf("expected ErrMixPlan")
	}
}

func TestPlanMissingAsset(t *testing.T) {
	tl := schedule(t, story, time.Second)
	assets := fakeAssets{"music/theme": testAssets["music/theme"]}
	_, err := Plan(tl, assets, StandardDefaults())
	if !errors.Is(err, ErrMixPlan) || !strings.Contains(err.Error(), "sea") {
		t.Fatalf("expected missing ambience asset error, got %v", err)
	}
}

func TestPlanSilentClipBecomesSilence(t *testing.T) {
	doc, err := sfml.Parse("cast:\n  Narrator: v1\nscene a:\n  [Narrator] One two three.\n", sfml.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tl, err := timeline.Schedule(context.Background(), doc, timeline.EstimateVoicer{}, timeline.Options{})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	plan, err := Plan(tl, nil, StandardDefaults())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Narration.Entries) != 1 || !plan.Narration.Entries[0].Silence {
		t.Fatalf("expected a single silence entry, got %+v", plan.Narration.Entries)
	}
}

func TestPlanSilentSegmentsDoNotDuck(t *testing.T) {
	tl := schedule(t, story, 2*time.Second)
	tl.Clips["a/seg-002"] = timeline.Clip{Duration: 2 * time.Second}
	plan, err := Plan(tl, testAssets, StandardDefaults())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if entry := plan.Narration.Entries[2]; entry.Ref != "a/seg-002" || !entry.Silence {
		t.Fatalf("expected a/seg-002 to render as silence, got %+v", entry)
	}
	wantDucks := []Window{{0, 2 * time.Second}, {4500 * time.Millisecond, 6500 * time.Millisecond}}
	if got := plan.Beds[0].Ducks; !reflect.DeepEqual(got, wantDucks) {
		t.Fatalf("duck windows = %v, want %v", got, wantDucks)
	}
}

func TestPlanNonLoopingBedStopsAtClipEnd(t *testing.T) {
	tl := schedule(t, "cast:\n  Narrator: v1\nscene a:\n  MUSIC: start id=theme once fade_out=3\n  [Narrator] Long.\n", 10*time.Second)
	plan, err := Plan(tl, testAssets, StandardDefaults())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	bed := plan.Beds[0]
	if bed.End != 4*time.Second || bed.Tiles != 1 || bed.FadeOut != 3*time.Second {
		t.Fatalf("unexpected bed %+v", bed)
	}
}

func TestClampFades(t *testing.T) {
	cases := []struct {
		in, out, length time.Duration
		wantIn, wantOut time.Duration
	}{
		{in: time.Second, out: time.Second, length: 5 * time.Second, wantIn: time.Second, wantOut: time.Second},
		{in: 3 * time.Second, out: time.Second, length: 2 * time.Second, wantIn: 1500 * time.Millisecond, wantOut: 500 * time.Millisecond},
		{in: 0, out: 4 * time.Second, length: time.Second, wantIn: 0, wantOut: time.Second},
		{in: -time.Second, out: 0, length: time.Second, wantIn: 0, wantOut: 0},
	}
	for _, tc := range cases {
		in, out := clampFades(tc.in, tc.out, tc.length)
		if in != tc.wantIn || out != tc.wantOut {
			t.Fatalf("clampFades(%s,%s,%s) = %s,%s want %s,%s", tc.in, tc.out, tc.length, in, out, tc.wantIn, tc.wantOut)
		}
	}
}

func TestDuckWindowsMergeTouchingSpeech(t *testing.T) {
	bed := Window{Start: time.Second, End: 10 * time.Second}
	speech := []Window{
		{0, 2 * time.Second},
		{2 * time.Second, 3 * time.Second},
		{5 * time.Second, 6 * time.Second},
		{9 * time.Second, 12 * time.Second},
	}
	got := duckWindows(bed, speech)
	want := []Window{
		{time.Second, 3 * time.Second},
		{5 * time.Second, 6 * time.Second},
		{9 * time.Second, 10 * time.Second},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("duckWindows = %v, want %v", got, want)
	}
}

func TestValidateRejectsBrokenPlans(t *testing.T) {
	valid := func() *MixPlan {
		return &MixPlan{
			Version:    PlanVersion,
			Length:     2 * time.Second,
			SampleRate: 48000,
			Narration: NarrationTrack{Entries: []NarrationEntry{
				{Ref: "a/seg-001", Clip: "a.wav", Duration: time.Second},
				{Start: time.Second, Duration: time.Second, Silence: true},
			}},
			TargetLUFS: -16,
			TruePeakDB: -1,
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	cases := map[string]func(p *MixPlan){
		"gap":          func(p *MixPlan) { p.Narration.Entries[1].Start = 1500 * time.Millisecond },
		"overlap":      func(p *MixPlan) { p.Narration.Entries[1].Start = 500 * time.Millisecond },
		"no clip":      func(p *MixPlan) { p.Narration.Entries[0].Clip = "" },
		"loud target":  func(p *MixPlan) { p.TargetLUFS = 3 },
		"peak":         func(p *MixPlan) { p.TruePeakDB = 1 },
		"sfx order":    func(p *MixPlan) { p.Sfx = []SfxEntry{{ID: "b", Clip: "b", Onset: time.Second}, {ID: "a", Clip: "a"}} },
		"bed fades":    func(p *MixPlan) { p.Beds = []BedTrack{{ID: "x", Clip: "x", End: time.Second, FadeIn: 2 * time.Second}} },
		"duck outside": func(p *MixPlan) { p.Beds = []BedTrack{{ID: "x", Clip: "x", End: time.Second, Ducks: []Window{{0, 2 * time.Second}}}} },
	}
	for name, mutate := range cases {
		p := valid()
		mutate(p)
		if err := p.Validate(); !errors.Is(err, ErrMixPlan) {
			t.Fatalf("%s: expected ErrMixPlan, got %v", name, err)
		}
	}
}

func TestWithDirectives(t *testing.T) {
	doc, err := sfml.Parse("@target_lufs: -19\n@truepeak_db: -2\ncast:\n  Narrator: v1\nscene a:\n  [Narrator] Hi.\n", sfml.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d := StandardDefaults().WithDirectives(doc)
	if d.TargetLUFS != -19 || d.TruePeakDB != -2 {
		t.Fatalf("directives not applied: %+v", d)
	}
}
