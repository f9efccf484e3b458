package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultHTTPTimeout = 120 * time.Second

// HTTPConfig configures HTTPEngine.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPEngine calls a compute node's /v1/tts endpoint. The node answers with
// audio bytes, or with a JSON body {"ok": false, "error": "..."} on failure.
type HTTPEngine struct {
	cfg        HTTPConfig
	voices     VoiceResolver
	probe      Prober
	httpClient *http.Client
}

// Option customizes the HTTP engine.
type Option func(*HTTPEngine)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *HTTPEngine) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// NewHTTPEngine constructs an HTTPEngine.
func NewHTTPEngine(cfg HTTPConfig, voices VoiceResolver, probe Prober, opts ...Option) *HTTPEngine {
	if voices == nil {
		voices = IdentityVoices{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	engine := &HTTPEngine{
		cfg: HTTPConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Token:   strings.TrimSpace(cfg.Token),
			Timeout: timeout,
		},
		voices:     voices,
		probe:      probe,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Name implements Engine.
func (e *HTTPEngine) Name() string { return "http" }

type ttsRequest struct {
	Text     string  `json:"text"`
	VoiceRef string  `json:"voice_ref"`
	Delivery string  `json:"delivery,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	Pitch    float64 `json:"pitch,omitempty"`
	Format   string  `json:"format"`
}

type ttsFailure struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Synthesize implements Engine.
func (e *HTTPEngine) Synthesize(ctx context.Context, req Request, out string) (Result, error) {
	fail := func(reason string, err error) error {
		return &SynthesisError{Engine: e.Name(), Voice: string(req.Voice), Reason: reason, Err: err}
	}
	voice, err := e.voices.ResolveVoice(req.Voice)
	if err != nil {
		return Result{}, fail(ReasonEngine, err)
	}
	if e.cfg.BaseURL == "" {
		return Result{}, fail(ReasonEngine, errors.New("no base url configured"))
	}
	endpoint, err := url.JoinPath(e.cfg.BaseURL, "v1", "tts")
	if err != nil {
		return Result{}, fail(ReasonEngine, fmt.Errorf("build url: %w", err))
	}
	payload, err := json.Marshal(ttsRequest{
		Text:     req.Text,
		VoiceRef: voice.Reference,
		Delivery: string(req.Controls.Delivery),
		Rate:     req.Controls.Rate,
		Pitch:    req.Controls.Pitch,
		Format:   "wav",
	})
	if err != nil {
		return Result{}, fail(ReasonEngine, fmt.Errorf("encode body: %w", err))
	}

	callCtx, cancel := withTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fail(ReasonEngine, fmt.Errorf("new request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav, application/json")
	if e.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, callError(callCtx, e.Name(), string(req.Voice), fmt.Errorf("http error (timeout=%s): %w", e.cfg.Timeout, err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, callError(callCtx, e.Name(), string(req.Voice), fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, fail(ReasonEngine, fmt.Errorf("http %d: %s", resp.StatusCode, snippet(body)))
	}
	if isJSON(resp.Header.Get("Content-Type")) {
		var failure ttsFailure
		if err := json.Unmarshal(body, &failure); err == nil && !failure.OK {
			return Result{}, fail(ReasonEngine, fmt.Errorf("node error: %s", failure.Error))
		}
		return Result{}, fail(ReasonEngine, fmt.Errorf("unexpected json response: %s", snippet(body)))
	}
	if len(body) == 0 {
		return Result{}, fail(ReasonEmpty, nil)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return Result{}, fmt.Errorf("tts http: write output: %w", err)
	}
	return finish(ctx, e.Name(), string(req.Voice), e.probe, out)
}

func isJSON(contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	return err == nil && media == "application/json"
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
