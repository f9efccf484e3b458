package timeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storyforge/internal/sfml"
)

const introScene = `cast:
  Narrator: v1
  Maris: v2
scene scene-1 "Intro":
  Narrator:
    - Hello there.
  PAUSE: 0.30
  Maris:
    - {delivery=calm} Hi.
`

func parse(t *testing.T, text string) *sfml.Document {
	t.Helper()
	doc, err := sfml.Parse(text, sfml.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

// stubVoicer returns a fixed duration per speaker and records each request.
type stubVoicer struct {
	mu        sync.Mutex
	durations map[sfml.SpeakerName]time.Duration
	requests  []Request
}

func (v *stubVoicer) Voice(_ context.Context, req Request) (Clip, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requests = append(v.requests, req)
	return Clip{Path: string(req.Ref) + ".wav", Duration: v.durations[req.Speaker], SampleRate: 24000}, nil
}

func newStub(pairs map[sfml.SpeakerName]time.Duration) *stubVoicer {
	return &stubVoicer{durations: pairs}
}

func TestScheduleIntroScene(t *testing.T) {
	doc := parse(t, introScene)
	voicer := newStub(map[sfml.SpeakerName]time.Duration{
		sfml.Narrator: time.Second,
		"Maris":       800 * time.Millisecond,
	})

	tl, err := Schedule(context.Background(), doc, voicer, Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	want := []struct {
		kind       Kind
		start, end time.Duration
	}{
		{KindNarration, 0, time.Second},
		{KindPause, time.Second, 1300 * time.Millisecond},
		{KindNarration, 1300 * time.Millisecond, 2100 * time.Millisecond},
	}
	if len(tl.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(tl.Events))
	}
	for i, w := range want {
		ev := tl.Events[i]
		if ev.Kind != w.kind || ev.Start != w.start || ev.End != w.end {
			t.Fatalf("event %d = %s [%s,%s), want %s [%s,%s)", i, ev.Kind, ev.Start, ev.End, w.kind, w.start, w.end)
		}
	}
	if tl.Length != 2100*time.Millisecond {
		t.Fatalf("length = %s, want 2.1s", tl.Length)
	}
	maris := tl.Events[2]
	if maris.Ref != "scene-1/seg-002" || maris.Voice != "v2" || maris.Controls.Delivery != sfml.DeliveryCalm {
		t.Fatalf("unexpected Maris event %+v", maris)
	}
	if len(tl.Clips) != 2 || tl.Clips["scene-1/seg-001"].Path != "scene-1/seg-001.wav" {
		t.Fatalf("unexpected clips %+v", tl.Clips)
	}
}

func TestScheduleAnchorLastEnd(t *testing.T) {
	doc := parse(t, `cast:
  Narrator: v1
scene a:
  [Narrator] Once.
  SFX: id=x at=last_end +0.5
`)
	tl, err := Schedule(context.Background(), doc, newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: 2 * time.Second}), Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	fx := tl.Effects()
	if len(fx) != 1 || fx[0].Start != 2500*time.Millisecond {
		t.Fatalf("expected sfx onset 2.5s, got %+v", fx)
	}
	if tl.Length != 2*time.Second {
		t.Fatalf("spot effects must not move the cursor, length = %s", tl.Length)
	}
}

func TestScheduleAnchorsReadBeforeUpdate(t *testing.T) {
	doc := parse(t, `cast:
  Narrator: v1
scene a:
  [Narrator] First.
  PAUSE: 1
  SFX: id=a at=last_start
  SFX: id=b at=now -0.25
  [Narrator] Second.
  SFX: id=c at=last_start
`)
	tl, err := Schedule(context.Background(), doc, newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: 2 * time.Second}), Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	got := map[string]time.Duration{}
	for _, ev := range tl.Effects() {
		got[ev.Sfx.ID] = ev.Start
	}
	want := map[string]time.Duration{"a": 0, "b": 2750 * time.Millisecond, "c": 3 * time.Second}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("onsets = %v, want %v", got, want)
	}
}

func TestSchedulePauseAdditivity(t *testing.T) {
	doc := parse(t, `cast:
  Narrator: v1
scene a:
  [Narrator] One.
  PAUSE: 0.25
  [Narrator] Two.
  PAUSE: 0.1
  PAUSE: 0.2
  [Narrator] Three.
`)
	tl, err := Schedule(context.Background(), doc, newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: 700 * time.Millisecond}), Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	narration := tl.Narration()
	if narration[1].Start-narration[0].End != 250*time.Millisecond {
		t.Fatalf("gap = %s, want exactly 250ms", narration[1].Start-narration[0].End)
	}
	if narration[2].Start-narration[1].End != 300*time.Millisecond {
		t.Fatalf("gap = %s, want exactly 300ms", narration[2].Start-narration[1].End)
	}
}

func TestScheduleNegativeOnsetClamps(t *testing.T) {
	doc := parse(t, `cast:
  Narrator: v1
scene a:
  SFX: id=boom at=now -3
  [Narrator] Hi.
`)
	tl, err := Schedule(context.Background(), doc, newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: time.Second}), Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if fx := tl.Effects(); fx[0].Start != 0 {
		t.Fatalf("onset = %s, want 0", fx[0].Start)
	}
}

func TestScheduleEqualOnsetsKeepDocumentOrder(t *testing.T) {
	doc := parse(t, `cast:
  Narrator: v1
scene a:
  [Narrator] Hi.
  SFX: id=first
  SFX: id=second at=last_end
  SFX: id=third at=now
`)
	tl, err := Schedule(context.Background(), doc, newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: time.Second}), Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	var ids []string
	for _, ev := range tl.Effects() {
		ids = append(ids, ev.Sfx.ID)
	}
	if !reflect.DeepEqual(ids, []string{"first", "second", "third"}) {
		t.Fatalf("order = %v", ids)
	}
}

func TestScheduleUnresolvedAnchor(t *testing.T) {
	cases := []string{
		"cast:\n  Narrator: v1\nscene a:\n  SFX: id=x at=last_end\n  [Narrator] Hi.\n",
		"cast:\n  Narrator: v1\nscene a:\n  [Narrator] Hi.\nscene b:\n  SFX: id=x at=last_start\n  [Narrator] Again.\n",
	}
	for _, text := range cases {
		_, err := Schedule(context.Background(), parse(t, text), newStub(nil), Options{})
		if !errors.Is(err, ErrScheduling) {
			t.Fatalf("expected ErrScheduling, got %v", err)
		}
		var anchorErr *UnresolvedAnchorError
		if !errors.As(err, &anchorErr) || anchorErr.Line == 0 {
			t.Fatalf("expected UnresolvedAnchorError with line, got %v", err)
		}
	}
}

func TestScheduleBeds(t *testing.T) {
	doc := parse(t, `cast:
  Narrator: v1
scene a:
  MUSIC: start id=theme fade_in=1
  AMBIENCE: start id=rain once
  [Narrator] One.
  MUSIC: stop fade_out=2
  PAUSE: 0.5
  MUSIC: start id=outro
  [Narrator] Two.
  MUSIC: start id=credits
  [Narrator] Three.
`)
	lengths := func(kind sfml.BedKind, id string) (time.Duration, bool) {
		if id == "rain" {
			return 1500 * time.Millisecond, true
		}
		return 0, false
	}
	tl, err := Schedule(context.Background(), doc, newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: time.Second}), Options{BedLength: lengths})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	got := map[string][2]time.Duration{}
	for _, ev := range tl.Beds() {
		got[ev.Bed.ID] = [2]time.Duration{ev.Start, ev.End}
		if ev.Bed.ID == "theme" && (ev.Bed.FadeIn != time.Second || ev.Bed.FadeOut != 2*time.Second) {
			t.Fatalf("unexpected theme fades %+v", ev.Bed)
		}
	}
	want := map[string][2]time.Duration{
		"theme":   {0, time.Second},
		"rain":    {0, 1500 * time.Millisecond},
		"outro":   {1500 * time.Millisecond, 2500 * time.Millisecond},
		"credits": {2500 * time.Millisecond, 3500 * time.Millisecond},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bed intervals = %v, want %v", got, want)
	}
	if tl.Length != 3500*time.Millisecond {
		t.Fatalf("length = %s", tl.Length)
	}
}

func TestScheduleBedStopWithoutStart(t *testing.T) {
	doc := parse(t, "cast:\n  Narrator: v1\nscene a:\n  [Narrator] Hi.\n  AMBIENCE: stop\n")
	_, err := Schedule(context.Background(), doc, newStub(nil), Options{})
	var schedErr *SchedulingError
	if !errors.As(err, &schedErr) || schedErr.Line != 5 {
		t.Fatalf("expected SchedulingError on line 5, got %v", err)
	}
}

func TestScheduleMergesAdjacentSegments(t *testing.T) {
	text := `cast:
  Narrator: v1
  Maris: v2
scene a:
  [Narrator] One.
  [Narrator] Two.
  [Maris] Three.
  [Narrator]{delivery=urgent} Four.
  [Narrator] Five.
`
	cases := []struct {
		merge bool
		calls int
	}{
		{merge: true, calls: 4},
		{merge: false, calls: 5},
	}
	for _, tc := range cases {
		voicer := newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: time.Second, "Maris": time.Second})
		if _, err := Schedule(context.Background(), parse(t, text), voicer, Options{MergeAdjacent: tc.merge}); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		if len(voicer.requests) != tc.calls {
			t.Fatalf("merge=%v: %d synthesis calls, want %d", tc.merge, len(voicer.requests), tc.calls)
		}
		if tc.merge && voicer.requests[0].Text != "One. Two." {
			t.Fatalf("merged text = %q", voicer.requests[0].Text)
		}
	}
}

func TestScheduleTwoPassMatchesInterleaved(t *testing.T) {
	text := `cast:
  Narrator: v1
  Maris: v2
scene a:
  MUSIC: start id=theme
  [Narrator] One.
  SFX: id=door at=last_end -0.2
  Maris:
    - Two.
  PAUSE: 0.4
scene b:
  [Narrator] Three.
  SFX: id=owl at=last_start +0.1
`
	durations := map[sfml.SpeakerName]time.Duration{sfml.Narrator: 1200 * time.Millisecond, "Maris": 900 * time.Millisecond}

	interleaved, err := Schedule(context.Background(), parse(t, text), newStub(durations), Options{})
	if err != nil {
		t.Fatalf("interleaved: %v", err)
	}

	var progress atomic.Int32
	twoPass, err := Schedule(context.Background(), parse(t, text), newStub(durations), Options{
		Mode:      ModeTwoPass,
		Workers:   3,
		OnSegment: func(Request, Clip) { progress.Add(1) },
	})
	if err != nil {
		t.Fatalf("two-pass: %v", err)
	}
	if !reflect.DeepEqual(interleaved, twoPass) {
		t.Fatalf("two-pass timeline differs from interleaved")
	}
	if progress.Load() != 3 {
		t.Fatalf("progress callbacks = %d, want 3", progress.Load())
	}
}

func TestScheduleSceneGap(t *testing.T) {
	text := "cast:\n  Narrator: v1\nscene a:\n  [Narrator] One.\nscene b:\n  [Narrator] Two.\n"
	voicer := newStub(map[sfml.SpeakerName]time.Duration{sfml.Narrator: time.Second})

	tl, err := Schedule(context.Background(), parse(t, text), voicer, Options{ScenePolicy: SceneGap, SceneGap: 2 * time.Second})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	narration := tl.Narration()
	if narration[1].Start != 3*time.Second || tl.Length != 4*time.Second {
		t.Fatalf("unexpected gap placement: second starts %s, length %s", narration[1].Start, tl.Length)
	}

	continuous, err := Schedule(context.Background(), parse(t, text), voicer, Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if continuous.Narration()[1].Start != time.Second {
		t.Fatalf("continuous scenes must be back to back")
	}

	directive, err := Schedule(context.Background(), parse(t, "@scene_gap: 0.5\n"+text), voicer, Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if directive.Narration()[1].Start != 1500*time.Millisecond {
		t.Fatalf("@scene_gap not applied: %s", directive.Narration()[1].Start)
	}
}

func TestScheduleMonotonicIntervals(t *testing.T) {
	doc := parse(t, `cast:
  Narrator: v1
  Maris: v2
scene a:
  [Narrator] One two three.
  PAUSE: 0
  Maris:
    - Four five.
    - {delivery=shout} Six!
  SFX: id=x at=last_start -5
  PAUSE: 1.25
scene b:
  AMBIENCE: start id=wind
  [Narrator] Seven eight nine ten.
`)
	tl, err := Schedule(context.Background(), doc, EstimateVoicer{}, Options{})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	var prevEnd time.Duration
	for _, ev := range tl.Events {
		if ev.End < ev.Start {
			t.Fatalf("event ends before it starts: %+v", ev)
		}
		if ev.Kind != KindNarration && ev.Kind != KindPause {
			continue
		}
		if ev.Start < prevEnd {
			t.Fatalf("interval %s [%s,%s) overlaps previous end %s", ev.Kind, ev.Start, ev.End, prevEnd)
		}
		prevEnd = ev.End
	}
	if prevEnd != tl.Length {
		t.Fatalf("last interval ends at %s, length %s", prevEnd, tl.Length)
	}
	for i := 1; i < len(tl.Events); i++ {
		if tl.Events[i].Start < tl.Events[i-1].Start {
			t.Fatalf("events not sorted by start at %d", i)
		}
	}
}

var errEngine = errors.New("engine exploded")

func TestScheduleSynthesisFailure(t *testing.T) {
	failing := VoicerFunc(func(context.Context, Request) (Clip, error) { return Clip{}, errEngine })
	for _, mode := range []Mode{ModeInterleaved, ModeTwoPass} {
		_, err := Schedule(context.Background(), parse(t, introScene), failing, Options{Mode: mode, Workers: 2})
		if !errors.Is(err, errEngine) {
			t.Fatalf("mode %s: expected engine error, got %v", mode, err)
		}
	}
}

func TestScheduleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Schedule(ctx, parse(t, introScene), EstimateVoicer{}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScheduleRejectsUnknownMode(t *testing.T) {
	if _, err := Schedule(context.Background(), parse(t, introScene), EstimateVoicer{}, Options{Mode: "sideways"}); err == nil {
		t.Fatal("expected unknown mode to fail")
	}
}

func TestScheduleDoesNotMutateDocument(t *testing.T) {
	doc := parse(t, "cast:\n  Narrator: v1\nscene a:\n  [Narrator] One.\n  [Narrator] Two.\n")
	before := parse(t, "cast:\n  Narrator: v1\nscene a:\n  [Narrator] One.\n  [Narrator] Two.\n")
	if _, err := Schedule(context.Background(), doc, EstimateVoicer{}, Options{MergeAdjacent: true}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !reflect.DeepEqual(doc, before) {
		t.Fatalf("Schedule modified its input document")
	}
}
