package sfml

import (
	"errors"
	"testing"
)

func TestClassifyShapes(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		prev   int
		kind   LineKind
		indent int
		field  string
		want   string
	}{
		{name: "blank", raw: "   ", kind: LineBlank},
		{name: "comment", raw: "# hello", kind: LineComment},
		{name: "indented comment", raw: "   # odd indent is fine", prev: 1, kind: LineComment},
		{name: "cast header", raw: "cast:", kind: LineCastHeader},
		{name: "cast header crlf", raw: "cast:\r", kind: LineCastHeader},
		{name: "scene with title", raw: `scene scene-1 "Intro":`, kind: LineSceneHeader, field: "value", want: "Intro"},
		{name: "scene without title", raw: "scene two:", kind: LineSceneHeader, field: "name", want: "two"},
		{name: "speaker header", raw: "  Maris:", prev: 0, indent: 1, kind: LineSpeakerHeader, field: "name", want: "Maris"},
		{name: "bullet", raw: "    - Hello there.", prev: 1, indent: 2, kind: LineBullet, field: "text", want: "Hello there."},
		{name: "bullet with tag", raw: "    - {delivery=calm} Hi.", prev: 1, indent: 2, kind: LineBullet, field: "tag", want: "delivery=calm"},
		{name: "speaker line", raw: "  [Narrator] Once upon a time.", indent: 1, kind: LineSpeakerLine, field: "name", want: "Narrator"},
		{name: "speaker line tag", raw: "  [Maris]{delivery=urgent} Run!", indent: 1, kind: LineSpeakerLine, field: "text", want: "Run!"},
		{name: "pause", raw: "  PAUSE: 0.30", indent: 1, kind: LinePause, field: "value", want: "0.30"},
		{name: "sfx", raw: "  SFX: id=door at=last_end +0.5 gain_db=-6", indent: 1, kind: LineSfx},
		{name: "music", raw: "  MUSIC: start id=lullaby", indent: 1, kind: LineBed, field: "name", want: "music"},
		{name: "directive colon", raw: "@title: The Lantern Shop", kind: LineDirective, field: "value", want: "The Lantern Shop"},
		{name: "directive space", raw: "@lang en", kind: LineDirective, field: "value", want: "en"},
		{name: "cast mapping", raw: "  Narrator: v1", indent: 1, kind: LineCastMapping, field: "value", want: "v1"},
		{name: "cast mapping accented", raw: "  Zoë: v2", indent: 1, kind: LineCastMapping, field: "name", want: "Zoë"},
		{name: "cast mapping hyphenated", raw: "  Ana-Lucía: v3", indent: 1, kind: LineCastMapping, field: "name", want: "Ana-Lucía"},
		{name: "speaker header accented", raw: "  Señor:", indent: 1, kind: LineSpeakerHeader, field: "name", want: "Señor"},
		{name: "speaker header combining mark", raw: "  Zoe\u0308:", indent: 1, kind: LineSpeakerHeader, field: "name", want: "Zoe\u0308"},
		{name: "inline comment", raw: "    - Goodnight. # soft", prev: 1, indent: 2, kind: LineBullet, field: "text", want: "Goodnight."},
		{name: "hash inside word", raw: "    - Track#1 plays", prev: 1, indent: 2, kind: LineBullet, field: "text", want: "Track#1 plays"},
		{name: "hash inside quotes", raw: `    - She said "wait # here" softly`, prev: 1, indent: 2, kind: LineBullet, field: "text", want: `She said "wait # here" softly`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cl, err := Classify(tc.raw, 7, tc.prev)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if cl.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", cl.Kind, tc.kind)
			}
			if cl.Number != 7 {
				t.Fatalf("line number = %d, want 7", cl.Number)
			}
			if tc.kind != LineBlank && tc.kind != LineComment && cl.Indent != tc.indent {
				t.Fatalf("indent = %d, want %d", cl.Indent, tc.indent)
			}
			var got string
			switch tc.field {
			case "":
				return
			case "name":
				got = cl.Name
			case "value":
				got = cl.Value
			case "text":
				got = cl.Text
			case "tag":
				got = cl.Tag
			}
			if got != tc.want {
				t.Fatalf("%s = %q, want %q", tc.field, got, tc.want)
			}
		})
	}
}

func TestClassifyRejectsMalformedIndent(t *testing.T) {
	for _, raw := range []string{"   Narrator:", " cast:", "\tNarrator:"} {
		_, err := Classify(raw, 3, 1)
		if err == nil {
			t.Fatalf("expected error for %q", raw)
		}
		if !errors.Is(err, ErrMalformedIndent) {
			t.Fatalf("expected ErrMalformedIndent for %q, got %v", raw, err)
		}
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("expected ErrSyntax for %q, got %v", raw, err)
		}
		var syn *SyntaxError
		if !errors.As(err, &syn) || syn.Line != 3 {
			t.Fatalf("expected SyntaxError on line 3, got %v", err)
		}
	}
}

func TestClassifyRejectsIndentJump(t *testing.T) {
	if _, err := Classify("    - too deep", 2, 0); !errors.Is(err, ErrMalformedIndent) {
		t.Fatalf("expected indent jump to fail, got %v", err)
	}
}

func TestClassifyRejectsUnknownShapes(t *testing.T) {
	cases := []struct {
		raw  string
		prev int
	}{
		{raw: "hello world"},
		{raw: "scene missing-colon"},
		{raw: "  PAUSE:", prev: 0},
		{raw: "  - bullet at scene level", prev: 0},
		{raw: "    no dash", prev: 1},
		{raw: "  [Maris]", prev: 0},
		{raw: "  just some words", prev: 0},
	}
	for _, tc := range cases {
		_, err := Classify(tc.raw, 1, tc.prev)
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("expected syntax error for %q, got %v", tc.raw, err)
		}
	}
}
