package tts

import (
	"errors"
	"fmt"
)

// ErrSynthesis matches every synthesis failure.
var ErrSynthesis = errors.New("synthesis error")

// Failure reasons carried by SynthesisError.
const (
	ReasonTimeout = "timeout"
	ReasonEngine  = "engine"
	ReasonEmpty   = "empty output"
)

// SynthesisError reports a failed engine call for one segment.
type SynthesisError struct {
	Engine string
	Voice  string
	Reason string
	Err    error
}

func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("tts %s: voice %s: %s", e.Engine, e.Voice, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesis }

func (e *SynthesisError) ErrorKind() string { return "synthesis" }
