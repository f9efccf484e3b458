package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"storyforge/internal/services"
	"storyforge/internal/sfml"
)

func fixedProbe(d time.Duration) Prober {
	return func(context.Context, string) (time.Duration, int, error) {
		return d, 24000, nil
	}
}

func TestBuildCommandArgs(t *testing.T) {
	voice := Voice{ID: "v1", Reference: "/refs/maris.wav"}
	tests := []struct {
		name     string
		controls sfml.Controls
		want     []string
	}{
		{
			name: "bare",
			want: []string{"--text", "Hello.", "--ref", "/refs/maris.wav", "--out", "/tmp/o.wav", "--device", "cuda"},
		},
		{
			name:     "all controls",
			controls: sfml.Controls{Delivery: sfml.DeliveryCalm, Rate: 0.9, Pitch: -2},
			want: []string{
				"--text", "Hello.", "--ref", "/refs/maris.wav", "--out", "/tmp/o.wav", "--device", "cuda",
				"--delivery", "calm", "--rate", "0.9", "--pitch", "-2",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCommandArgs(Request{Text: "Hello.", Voice: "v1", Controls: tt.controls}, voice, "/tmp/o.wav", "cuda")
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("args = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandEngineWritesAndProbes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clips", "a.wav")
	engine := NewCommandEngine(CommandConfig{Command: "python3 voicegen.py", Device: "cpu"}, nil, fixedProbe(1500*time.Millisecond))
	var gotName string
	var gotArgs []string
	engine.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, os.WriteFile(out, []byte("RIFF"), 0o644)
	})

	res, err := engine.Synthesize(context.Background(), Request{Text: "Hi.", Voice: "v1"}, out)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Path != out || res.Duration != 1500*time.Millisecond || res.SampleRate != 24000 {
		t.Fatalf("unexpected result %+v", res)
	}
	if gotName != "python3" || gotArgs[0] != "voicegen.py" || gotArgs[len(gotArgs)-1] != "cpu" {
		t.Fatalf("unexpected invocation %s %q", gotName, gotArgs)
	}
}

func TestCommandEngineFailures(t *testing.T) {
	tests := []struct {
		name   string
		run    services.CommandRunner
		probe  Prober
		reason string
	}{
		{
			name: "engine error",
			run: func(context.Context, string, ...string) ([]byte, error) {
				return nil, errors.New("exit status 1")
			},
			probe:  fixedProbe(time.Second),
			reason: ReasonEngine,
		},
		{
			name: "no output",
			run: func(context.Context, string, ...string) ([]byte, error) {
				return nil, nil
			},
			probe:  fixedProbe(time.Second),
			reason: ReasonEmpty,
		},
		{
			name: "silent output",
			run: func(_ context.Context, _ string, args ...string) ([]byte, error) {
				return nil, os.WriteFile(args[5], []byte("RIFF"), 0o644)
			},
			probe:  fixedProbe(0),
			reason: ReasonEmpty,
		},
		{
			name: "timeout",
			run: func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			probe:  fixedProbe(time.Second),
			reason: ReasonTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewCommandEngine(CommandConfig{Command: "voicegen", Timeout: 20 * time.Millisecond}, nil, tt.probe)
			engine.WithCommandRunner(tt.run)
			_, err := engine.Synthesize(context.Background(), Request{Text: "Hi.", Voice: "v1"}, filepath.Join(t.TempDir(), "o.wav"))
			var synth *SynthesisError
			if !errors.As(err, &synth) {
				t.Fatalf("expected SynthesisError, got %v", err)
			}
			if synth.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", synth.Reason, tt.reason)
			}
			if !errors.Is(err, ErrSynthesis) || services.ErrorKind(err) != services.KindSynthesis {
				t.Fatalf("unexpected classification for %v", err)
			}
		})
	}
}

func TestCommandEngineCancellationIsNotSynthesisError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := NewCommandEngine(CommandConfig{Command: "voicegen"}, nil, fixedProbe(time.Second))
	engine.WithCommandRunner(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, ctx.Err()
	})
	_, err := engine.Synthesize(ctx, Request{Text: "Hi.", Voice: "v1"}, filepath.Join(t.TempDir(), "o.wav"))
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected bare cancellation, got %v", err)
	}
}
