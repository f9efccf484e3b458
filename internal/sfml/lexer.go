package sfml

import (
	"regexp"
	"strings"
)

// LineKind is the shape a raw line was classified as.
type LineKind int

const (
	LineBlank LineKind = iota
	LineComment
	LineDirective
	LineCastHeader
	LineCastMapping
	LineSceneHeader
	LineSpeakerHeader
	LineBullet
	LineSpeakerLine
	LinePause
	LineSfx
	LineBed
)

var lineKindNames = map[LineKind]string{
	LineBlank:         "blank",
	LineComment:       "comment",
	LineDirective:     "directive",
	LineCastHeader:    "cast header",
	LineCastMapping:   "cast mapping",
	LineSceneHeader:   "scene header",
	LineSpeakerHeader: "speaker block header",
	LineBullet:        "bullet",
	LineSpeakerLine:   "speaker line",
	LinePause:         "pause",
	LineSfx:           "sfx cue",
	LineBed:           "bed cue",
}

func (k LineKind) String() string {
	if name, ok := lineKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ClassifiedLine is the lexer output for one raw line.
type ClassifiedLine struct {
	Kind   LineKind
	Number int
	Indent int
	// Name holds the speaker, cast name, scene id, directive key, or bed kind.
	Name string
	// Value holds a voice id, directive value, pause amount, or scene title.
	Value string
	// Text is the spoken text of bullets and speaker lines.
	Text string
	// Tag is the body of a `{...}` control tag when HasTag is set.
	Tag    string
	HasTag bool
	// Fields are the whitespace-separated arguments of SFX and bed cues.
	Fields []string
}

var (
	sceneHeaderPattern   = regexp.MustCompile(`^scene\s+([A-Za-z0-9][A-Za-z0-9_.-]*)(?:\s+"([^"]*)")?\s*:$`)
	speakerHeaderPattern = regexp.MustCompile(`^(\p{L}[\p{L}\p{M}\p{N}_ .'-]*?)\s*:$`)
	speakerLinePattern   = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)
	castMappingPattern   = regexp.MustCompile(`^(\p{L}[\p{L}\p{M}\p{N}_ .'-]*?)\s*:\s*(\S.*)$`)
	directivePattern     = regexp.MustCompile(`^@([A-Za-z_][A-Za-z0-9_.-]*)\s*(?::\s*|\s+)(.*)$`)
	directiveBarePattern = regexp.MustCompile(`^@([A-Za-z_][A-Za-z0-9_.-]*)\s*:?$`)
)

// cue keywords are reserved and never read as speaker or cast names.
var cueKeywords = map[string]LineKind{
	"PAUSE":    LinePause,
	"SFX":      LineSfx,
	"MUSIC":    LineBed,
	"AMBIENCE": LineBed,
}

// Classify assigns a shape to one raw line. previousIndent is the indent
// level of the last significant line; a jump of more than one level is
// rejected. Comment and blank lines never fail.
func Classify(raw string, lineNo int, previousIndent int) (ClassifiedLine, error) {
	raw = strings.TrimRight(raw, "\r\n")
	cl := ClassifiedLine{Number: lineNo}

	if strings.TrimSpace(raw) == "" {
		cl.Kind = LineBlank
		return cl, nil
	}

	spaces := 0
	for spaces < len(raw) && raw[spaces] == ' ' {
		spaces++
	}
	content := raw[spaces:]
	if strings.HasPrefix(strings.TrimLeft(content, " \t"), "#") {
		cl.Kind = LineComment
		return cl, nil
	}
	if content[0] == '\t' {
		return cl, &SyntaxError{Line: lineNo, Reason: "tab characters are not allowed in indentation", Err: ErrMalformedIndent}
	}
	if spaces%2 != 0 {
		return cl, &SyntaxError{Line: lineNo, Reason: "indentation must be a multiple of two spaces", Err: ErrMalformedIndent}
	}
	cl.Indent = spaces / 2
	if cl.Indent > previousIndent+1 {
		return cl, &SyntaxError{Line: lineNo, Reason: "unexpected indentation", Err: ErrMalformedIndent}
	}

	content = strings.TrimRight(stripInlineComment(content), " \t")

	switch cl.Indent {
	case 0:
		return classifyTopLevel(cl, content)
	case 1:
		return classifySceneBody(cl, content)
	case 2:
		return classifyBullet(cl, content)
	default:
		return cl, syntaxf(lineNo, "indentation deeper than two levels")
	}
}

func classifyTopLevel(cl ClassifiedLine, content string) (ClassifiedLine, error) {
	if content == "cast:" {
		cl.Kind = LineCastHeader
		return cl, nil
	}
	if content == "scene" || strings.HasPrefix(content, "scene ") {
		m := sceneHeaderPattern.FindStringSubmatch(content)
		if m == nil {
			return cl, syntaxf(cl.Number, "malformed scene header %q (expected scene <id> [\"title\"]:)", content)
		}
		cl.Kind = LineSceneHeader
		cl.Name = m[1]
		cl.Value = m[2]
		return cl, nil
	}
	if strings.HasPrefix(content, "@") {
		if m := directivePattern.FindStringSubmatch(content); m != nil {
			cl.Kind = LineDirective
			cl.Name = strings.ToLower(m[1])
			cl.Value = strings.TrimSpace(m[2])
			return cl, nil
		}
		if m := directiveBarePattern.FindStringSubmatch(content); m != nil {
			cl.Kind = LineDirective
			cl.Name = strings.ToLower(m[1])
			return cl, nil
		}
		return cl, syntaxf(cl.Number, "malformed directive %q", content)
	}
	return cl, syntaxf(cl.Number, "unrecognized line %q", content)
}

func classifySceneBody(cl ClassifiedLine, content string) (ClassifiedLine, error) {
	if m := speakerHeaderPattern.FindStringSubmatch(content); m != nil {
		if _, reserved := cueKeywords[strings.ToUpper(m[1])]; reserved {
			return cl, syntaxf(cl.Number, "%s requires a value", strings.ToUpper(m[1]))
		}
		cl.Kind = LineSpeakerHeader
		cl.Name = m[1]
		return cl, nil
	}
	if strings.HasPrefix(content, "-") {
		return cl, syntaxf(cl.Number, "bullet lines must be indented under a speaker block")
	}
	if m := speakerLinePattern.FindStringSubmatch(content); m != nil {
		name := strings.TrimSpace(m[1])
		if name == "" {
			return cl, syntaxf(cl.Number, "empty speaker name")
		}
		tag, text, hasTag, err := splitTag(m[2])
		if err != nil {
			return cl, syntaxf(cl.Number, "%v", err)
		}
		if text == "" {
			return cl, syntaxf(cl.Number, "speaker line for %s has no text", name)
		}
		cl.Kind = LineSpeakerLine
		cl.Name = name
		cl.Text = text
		cl.Tag = tag
		cl.HasTag = hasTag
		return cl, nil
	}
	if keyword, rest, found := strings.Cut(content, ":"); found {
		if kind, ok := cueKeywords[strings.ToUpper(strings.TrimSpace(keyword))]; ok {
			rest = strings.TrimSpace(rest)
			if rest == "" {
				return cl, syntaxf(cl.Number, "%s requires a value", strings.ToUpper(keyword))
			}
			cl.Kind = kind
			switch kind {
			case LinePause:
				cl.Value = rest
			case LineBed:
				cl.Name = strings.ToLower(strings.TrimSpace(keyword))
				cl.Fields = strings.Fields(rest)
			default:
				cl.Fields = strings.Fields(rest)
			}
			return cl, nil
		}
	}
	if m := castMappingPattern.FindStringSubmatch(content); m != nil {
		cl.Kind = LineCastMapping
		cl.Name = strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		voice, rest, _ := strings.Cut(value, " ")
		cl.Value = voice
		tag, leftover, hasTag, err := splitTag(rest)
		if err != nil {
			return cl, syntaxf(cl.Number, "%v", err)
		}
		if leftover != "" {
			cl.Text = leftover
		}
		cl.Tag = tag
		cl.HasTag = hasTag
		return cl, nil
	}
	return cl, syntaxf(cl.Number, "unrecognized line %q", content)
}

func classifyBullet(cl ClassifiedLine, content string) (ClassifiedLine, error) {
	if !strings.HasPrefix(content, "-") {
		return cl, syntaxf(cl.Number, "expected a bullet line starting with '-'")
	}
	tag, text, hasTag, err := splitTag(content[1:])
	if err != nil {
		return cl, syntaxf(cl.Number, "%v", err)
	}
	if text == "" {
		return cl, syntaxf(cl.Number, "bullet has no text")
	}
	cl.Kind = LineBullet
	cl.Text = text
	cl.Tag = tag
	cl.HasTag = hasTag
	return cl, nil
}

// stripInlineComment drops a trailing `# ...` that starts after whitespace
// and outside double quotes. A '#' inside a word or a quoted string stays.
func stripInlineComment(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote && i > 0 && (s[i-1] == ' ' || s[i-1] == '\t') {
				return s[:i]
			}
		}
	}
	return s
}
