package sfml

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind classifies a directive value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a directive value typed by shape (or by the known-key table).
type Value struct {
	Kind ValueKind
	Raw  string
	Num  float64
	Bool bool
}

// String returns the directive text as written.
func (v Value) String() string { return v.Raw }

// knownDirectives type-checks the keys the renderer and producer understand.
// Other keys pass through untouched.
var knownDirectives = map[string]ValueKind{
	"title":       KindString,
	"lang":        KindString,
	"narrator":    KindString,
	"music":       KindString,
	"ambience":    KindString,
	"version":     KindString,
	"target_lufs": KindNumber,
	"truepeak_db": KindNumber,
	"scene_gap":   KindNumber,
}

func inferValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "true":
		return Value{Kind: KindBool, Raw: raw, Bool: true}
	case "false":
		return Value{Kind: KindBool, Raw: raw}
	}
	if f, err := parseNumber(raw); err == nil {
		return Value{Kind: KindNumber, Raw: raw, Num: f}
	}
	return Value{Kind: KindString, Raw: raw}
}

func directiveValue(key, raw string, line int) (Value, error) {
	raw = strings.TrimSpace(raw)
	want, known := knownDirectives[key]
	if !known {
		return inferValue(raw), nil
	}
	switch want {
	case KindNumber:
		f, err := parseNumber(raw)
		if err != nil {
			return Value{}, &ValidationError{Line: line, Reason: fmt.Sprintf("directive @%s expects a number, got %q", key, raw)}
		}
		if key == "scene_gap" {
			if err := checkSeconds(line, "@scene_gap", f); err != nil {
				return Value{}, err
			}
		}
		return Value{Kind: KindNumber, Raw: raw, Num: f}, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Value{}, &ValidationError{Line: line, Reason: fmt.Sprintf("directive @%s expects true or false, got %q", key, raw)}
		}
		return Value{Kind: KindBool, Raw: raw, Bool: b}, nil
	default:
		if raw == "" {
			return Value{}, &ValidationError{Line: line, Reason: fmt.Sprintf("directive @%s requires a value", key)}
		}
		return Value{Kind: KindString, Raw: raw}, nil
	}
}
