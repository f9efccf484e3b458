package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"storyforge/internal/services"
)

// CommandConfig configures CommandEngine.
type CommandConfig struct {
	// Command is the voicegen executable, optionally followed by fixed
	// arguments ("python3 /opt/voicegen/voicegen.py").
	Command string
	Device  string
	Timeout time.Duration
}

// CommandEngine runs an external voice generation script once per segment.
type CommandEngine struct {
	cfg    CommandConfig
	voices VoiceResolver
	probe  Prober
	run    services.CommandRunner
}

// NewCommandEngine constructs a CommandEngine. A nil voices resolver passes
// voice ids through unchanged.
func NewCommandEngine(cfg CommandConfig, voices VoiceResolver, probe Prober) *CommandEngine {
	if voices == nil {
		voices = IdentityVoices{}
	}
	if strings.TrimSpace(cfg.Device) == "" {
		cfg.Device = "cuda"
	}
	return &CommandEngine{cfg: cfg, voices: voices, probe: probe, run: services.RunCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *CommandEngine) WithCommandRunner(runner services.CommandRunner) {
	if runner != nil {
		e.run = runner
	}
}

// Name implements Engine.
func (e *CommandEngine) Name() string { return "command" }

// Synthesize implements Engine.
func (e *CommandEngine) Synthesize(ctx context.Context, req Request, out string) (Result, error) {
	voice, err := e.voices.ResolveVoice(req.Voice)
	if err != nil {
		return Result{}, &SynthesisError{Engine: e.Name(), Voice: string(req.Voice), Reason: ReasonEngine, Err: err}
	}
	fields := strings.Fields(e.cfg.Command)
	if len(fields) == 0 {
		return Result{}, &SynthesisError{Engine: e.Name(), Voice: string(req.Voice), Reason: ReasonEngine, Err: errors.New("no command configured")}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, err
	}
	_ = os.Remove(out)

	callCtx, cancel := withTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	args := append(fields[1:len(fields):len(fields)], BuildCommandArgs(req, voice, out, e.cfg.Device)...)
	if _, err := e.run(callCtx, fields[0], args...); err != nil {
		return Result{}, callError(callCtx, e.Name(), string(req.Voice), err)
	}
	return finish(ctx, e.Name(), string(req.Voice), e.probe, out)
}

// BuildCommandArgs returns the voicegen arguments for one call. Controls are
// passed only when set.
func BuildCommandArgs(req Request, voice Voice, out, device string) []string {
	args := []string{"--text", req.Text, "--ref", voice.Reference, "--out", out, "--device", device}
	if req.Controls.Delivery != "" {
		args = append(args, "--delivery", string(req.Controls.Delivery))
	}
	if req.Controls.Rate > 0 {
		args = append(args, "--rate", strconv.FormatFloat(req.Controls.Rate, 'f', -1, 64))
	}
	if req.Controls.Pitch != 0 {
		args = append(args, "--pitch", strconv.FormatFloat(req.Controls.Pitch, 'f', -1, 64))
	}
	return args
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
