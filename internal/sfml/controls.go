package sfml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Delivery is a prosody hint passed to the synthesis engine.
type Delivery string

const (
	DeliveryUnset    Delivery = ""
	DeliveryNeutral  Delivery = "neutral"
	DeliveryCalm     Delivery = "calm"
	DeliveryUrgent   Delivery = "urgent"
	DeliveryDramatic Delivery = "dramatic"
	DeliveryShout    Delivery = "shout"
)

// ParseDelivery accepts only the closed v1 set. "whisper" is rejected.
func ParseDelivery(value string) (Delivery, bool) {
	switch d := Delivery(strings.ToLower(strings.TrimSpace(value))); d {
	case DeliveryNeutral, DeliveryCalm, DeliveryUrgent, DeliveryDramatic, DeliveryShout:
		return d, true
	default:
		return DeliveryUnset, false
	}
}

// Controls carries per-segment synthesis hints. Zero values mean "unset".
type Controls struct {
	Delivery Delivery `json:"delivery,omitempty"`
	Rate     float64  `json:"rate,omitempty"`
	Pitch    float64  `json:"pitch,omitempty"`
}

// Over fills unset fields of c from defaults.
func (c Controls) Over(defaults Controls) Controls {
	out := c
	if out.Delivery == DeliveryUnset {
		out.Delivery = defaults.Delivery
	}
	if out.Rate == 0 {
		out.Rate = defaults.Rate
	}
	if out.Pitch == 0 {
		out.Pitch = defaults.Pitch
	}
	return out
}

// IsZero reports whether no control is set.
func (c Controls) IsZero() bool {
	return c == Controls{}
}

// splitTag separates a leading `{...}` tag from the rest of s.
func splitTag(s string) (tag string, rest string, ok bool, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return "", s, false, nil
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return "", "", false, fmt.Errorf("unterminated tag %q", s)
	}
	return s[1:end], strings.TrimSpace(s[end+1:]), true, nil
}

// parseControls decodes a tag body such as `delivery=calm rate=0.9`.
func parseControls(body string, line int) (Controls, error) {
	var ctrl Controls
	fields := strings.FieldsFunc(body, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	for _, field := range fields {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return Controls{}, &SyntaxError{Line: line, Reason: fmt.Sprintf("tag field %q must be key=value", field)}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "delivery":
			d, ok := ParseDelivery(value)
			if !ok {
				return Controls{}, &InvalidDeliveryError{Line: line, Value: value}
			}
			ctrl.Delivery = d
		case "rate":
			f, err := parseNumber(value)
			if err != nil || f <= 0 {
				return Controls{}, &ValidationError{Line: line, Reason: fmt.Sprintf("rate must be a positive number, got %q", value)}
			}
			ctrl.Rate = f
		case "pitch":
			f, err := parseNumber(value)
			if err != nil {
				return Controls{}, &ValidationError{Line: line, Reason: fmt.Sprintf("pitch must be a number, got %q", value)}
			}
			ctrl.Pitch = f
		default:
			return Controls{}, &ValidationError{Line: line, Reason: fmt.Sprintf("unknown tag key %q", key)}
		}
	}
	return ctrl, nil
}

// parseNumber parses a finite decimal, tolerating a leading '+'.
func parseNumber(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", value)
	}
	return f, nil
}

// MaxSeconds is the largest time value a Duration can hold.
const MaxSeconds = float64(math.MaxInt64 / int64(time.Second))

// checkSeconds rejects time values that would overflow a Duration.
func checkSeconds(line int, what string, f float64) error {
	if math.Abs(f) > MaxSeconds {
		return validationf(line, "%s of %g seconds exceeds the %.0f second limit", what, f, MaxSeconds)
	}
	return nil
}
