package sfml

import (
	"fmt"
	"strings"
)

// VoiceResolver reports whether a voice id is known to the caller.
type VoiceResolver interface {
	HasVoice(VoiceID) bool
}

// Options tunes Parse.
type Options struct {
	// Format forces a front-end. FormatAuto detects it.
	Format Format
	// Voices, when set, must resolve every casting voice id.
	Voices VoiceResolver
}

// Parse detects the grammar revision (unless forced) and parses text with the
// matching front-end.
func Parse(text string, opts Options) (*Document, error) {
	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(text)
	}
	switch format {
	case FormatV1:
		return ParseV1(text, opts)
	case FormatLegacy:
		return ParseLegacy(text, opts)
	default:
		return nil, fmt.Errorf("sfml: unsupported format %q", format)
	}
}

// DetectFormat returns FormatV1 when the text has a `cast:` block or a scene
// header at column zero, and FormatLegacy otherwise.
func DetectFormat(text string) Format {
	for _, raw := range splitLines(text) {
		line := strings.TrimRight(raw, "\r")
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		trimmed := strings.TrimSpace(stripInlineComment(line))
		if trimmed == "cast:" || strings.HasPrefix(trimmed, "scene ") {
			return FormatV1
		}
	}
	return FormatLegacy
}
