package sfml

import "strings"

type parseState int

const (
	stateTopLevel parseState = iota
	stateInCast
	stateInScene
	stateInSpeakerBlock
)

// speakerBlock collects bullets under a `Name:` header. A bullet whose tag
// differs from the running controls closes the current segment and opens a
// new one; untagged bullets inherit.
type speakerBlock struct {
	speaker  SpeakerName
	header   int
	segLine  int
	controls Controls
	lines    []string
	bullets  int
}

type v1Parser struct {
	doc       Document
	state     parseState
	scene     *Scene
	block     *speakerBlock
	sceneIDs  map[string]int
	castLines map[SpeakerName]int
}

// ParseV1 parses the indentation-based v1 grammar.
func ParseV1(text string, opts Options) (*Document, error) {
	p := &v1Parser{
		doc: Document{
			Format:     FormatV1,
			Directives: map[string]Value{},
			Casting:    map[SpeakerName]VoiceID{},
			Profiles:   map[SpeakerName]Controls{},
		},
		sceneIDs:  map[string]int{},
		castLines: map[SpeakerName]int{},
	}

	prevIndent := 0
	for i, raw := range splitLines(text) {
		cl, err := Classify(raw, i+1, prevIndent)
		if err != nil {
			return nil, err
		}
		if cl.Kind == LineBlank || cl.Kind == LineComment {
			continue
		}
		prevIndent = cl.Indent
		if err := p.dispatch(cl); err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	if v, ok := p.doc.Directives["title"]; ok {
		p.doc.Title = v.Raw
	}
	if err := validate(&p.doc, opts); err != nil {
		return nil, err
	}
	return &p.doc, nil
}

func (p *v1Parser) dispatch(cl ClassifiedLine) error {
	switch p.state {
	case stateInSpeakerBlock:
		if cl.Kind == LineBullet {
			return p.addBullet(cl)
		}
		if err := p.closeBlock(); err != nil {
			return err
		}
		p.state = stateInScene
		return p.dispatch(cl)
	case stateInCast:
		if cl.Indent == 0 {
			p.state = stateTopLevel
			return p.dispatch(cl)
		}
		return p.castLine(cl)
	}

	switch cl.Kind {
	case LineCastHeader:
		p.closeScene()
		p.state = stateInCast
		return nil
	case LineSceneHeader:
		return p.openScene(cl)
	case LineDirective:
		return p.addDirective(cl)
	}

	if p.scene == nil {
		return syntaxf(cl.Number, "%s outside of a scene", cl.Kind)
	}

	switch cl.Kind {
	case LineSpeakerHeader:
		p.block = &speakerBlock{speaker: SpeakerName(cl.Name), header: cl.Number, segLine: cl.Number}
		p.state = stateInSpeakerBlock
		return nil
	case LineSpeakerLine:
		ctrl, err := p.tagControls(cl)
		if err != nil {
			return err
		}
		p.appendEvent(SpeechSegment{
			Source:   Source{Line: cl.Number},
			Speaker:  SpeakerName(cl.Name),
			Lines:    []string{cl.Text},
			Controls: ctrl,
		})
		return nil
	case LinePause:
		return p.addPause(cl)
	case LineSfx:
		cue, err := parseSfxFields(cl.Fields, cl.Number)
		if err != nil {
			return err
		}
		p.appendEvent(cue)
		return nil
	case LineBed:
		change, err := parseBedFields(BedKind(cl.Name), cl.Fields, cl.Number)
		if err != nil {
			return err
		}
		p.appendEvent(change)
		return nil
	case LineCastMapping:
		return syntaxf(cl.Number, "%q is not valid inside a scene; use a speaker block or [Name] text", cl.Name+": "+cl.Value)
	case LineBullet:
		return syntaxf(cl.Number, "bullet without a speaker block")
	default:
		return syntaxf(cl.Number, "unexpected %s", cl.Kind)
	}
}

func (p *v1Parser) castLine(cl ClassifiedLine) error {
	switch cl.Kind {
	case LineCastMapping:
	case LineSpeakerHeader:
		return syntaxf(cl.Number, "cast entry %q has no voice id", cl.Name)
	default:
		return syntaxf(cl.Number, "unexpected %s in cast block", cl.Kind)
	}
	if cl.Text != "" {
		return syntaxf(cl.Number, "unexpected text %q after voice id", cl.Text)
	}
	name := SpeakerName(cl.Name)
	if prev, dup := p.castLines[name]; dup {
		return validationf(cl.Number, "speaker %q already cast on line %d", name, prev)
	}
	p.castLines[name] = cl.Number
	p.doc.Casting[name] = VoiceID(cl.Value)
	if cl.HasTag {
		ctrl, err := parseControls(cl.Tag, cl.Number)
		if err != nil {
			return err
		}
		p.doc.Profiles[name] = ctrl
	}
	return nil
}

func (p *v1Parser) openScene(cl ClassifiedLine) error {
	p.closeScene()
	if prev, dup := p.sceneIDs[cl.Name]; dup {
		return validationf(cl.Number, "scene id %q already used on line %d", cl.Name, prev)
	}
	p.sceneIDs[cl.Name] = cl.Number
	p.scene = &Scene{ID: cl.Name, Title: cl.Value, Line: cl.Number}
	p.state = stateInScene
	return nil
}

func (p *v1Parser) closeScene() {
	if p.scene != nil {
		p.doc.Scenes = append(p.doc.Scenes, *p.scene)
		p.scene = nil
	}
	p.state = stateTopLevel
}

func (p *v1Parser) addDirective(cl ClassifiedLine) error {
	value, err := directiveValue(cl.Name, cl.Value, cl.Number)
	if err != nil {
		return err
	}
	p.doc.Directives[cl.Name] = value
	return nil
}

func (p *v1Parser) addPause(cl ClassifiedLine) error {
	seconds, err := parseNumber(cl.Value)
	if err != nil {
		return syntaxf(cl.Number, "PAUSE expects decimal seconds, got %q", cl.Value)
	}
	if seconds < 0 {
		return validationf(cl.Number, "PAUSE must not be negative, got %s", cl.Value)
	}
	if err := checkSeconds(cl.Number, "PAUSE", seconds); err != nil {
		return err
	}
	p.appendEvent(Pause{Source: Source{Line: cl.Number}, Seconds: seconds})
	return nil
}

func (p *v1Parser) addBullet(cl ClassifiedLine) error {
	b := p.block
	b.bullets++
	if cl.HasTag {
		ctrl, err := parseControls(cl.Tag, cl.Number)
		if err != nil {
			return err
		}
		if len(b.lines) > 0 && ctrl != b.controls {
			p.flushBlockSegment()
			b.segLine = cl.Number
		}
		b.controls = ctrl
	}
	b.lines = append(b.lines, cl.Text)
	return nil
}

func (p *v1Parser) flushBlockSegment() {
	b := p.block
	if len(b.lines) == 0 {
		return
	}
	p.appendEvent(SpeechSegment{
		Source:   Source{Line: b.segLine},
		Speaker:  b.speaker,
		Lines:    b.lines,
		Controls: b.controls,
	})
	b.lines = nil
}

func (p *v1Parser) closeBlock() error {
	if p.block == nil {
		return nil
	}
	if p.block.bullets == 0 {
		return syntaxf(p.block.header, "speaker block %q has no bullet lines", p.block.speaker)
	}
	p.flushBlockSegment()
	p.block = nil
	return nil
}

func (p *v1Parser) finish() error {
	if p.state == stateInSpeakerBlock {
		if err := p.closeBlock(); err != nil {
			return err
		}
	}
	p.closeScene()
	return nil
}

func (p *v1Parser) appendEvent(ev Event) {
	p.scene.Events = append(p.scene.Events, ev)
}

func (p *v1Parser) tagControls(cl ClassifiedLine) (Controls, error) {
	if !cl.HasTag {
		return Controls{}, nil
	}
	return parseControls(cl.Tag, cl.Number)
}

// parseSfxFields reads `id=<id> at=<anchor> <+|-><offset> gain_db=<db>`. A
// bare first token is the id; `offset=<n>` is accepted as well.
func parseSfxFields(fields []string, line int) (SfxCue, error) {
	cue := SfxCue{Source: Source{Line: line}, Anchor: AnchorLastEnd}
	for i, field := range fields {
		key, value, found := strings.Cut(field, "=")
		if !found {
			switch {
			case i == 0 && !isSignedNumber(field):
				cue.ID = field
			case isSignedNumber(field):
				f, err := parseNumber(field)
				if err != nil {
					return SfxCue{}, syntaxf(line, "SFX offset %q is not a number", field)
				}
				if err := checkSeconds(line, "SFX offset", f); err != nil {
					return SfxCue{}, err
				}
				cue.OffsetSeconds = f
			default:
				return SfxCue{}, syntaxf(line, "unexpected SFX field %q", field)
			}
			continue
		}
		switch strings.ToLower(key) {
		case "id":
			cue.ID = value
		case "at":
			anchor, ok := ParseAnchor(value)
			if !ok {
				return SfxCue{}, validationf(line, "unknown SFX anchor %q (expected now, last_start, or last_end)", value)
			}
			cue.Anchor = anchor
		case "offset":
			f, err := parseNumber(value)
			if err != nil {
				return SfxCue{}, syntaxf(line, "SFX offset %q is not a number", value)
			}
			if err := checkSeconds(line, "SFX offset", f); err != nil {
				return SfxCue{}, err
			}
			cue.OffsetSeconds = f
		case "gain_db", "gain":
			f, err := parseNumber(value)
			if err != nil {
				return SfxCue{}, syntaxf(line, "SFX gain %q is not a number", value)
			}
			cue.GainDB = f
		default:
			return SfxCue{}, syntaxf(line, "unknown SFX field %q", key)
		}
	}
	if strings.TrimSpace(cue.ID) == "" {
		return SfxCue{}, syntaxf(line, "SFX cue is missing an id")
	}
	return cue, nil
}

// parseBedFields reads `start id=<id> [gain_db=] [loop|loop=false]
// [fade_in=] [fade_out=]` or `stop [fade_out=]`.
func parseBedFields(kind BedKind, fields []string, line int) (BedChange, error) {
	change := BedChange{Source: Source{Line: line}, Kind: kind, Loop: true}
	if len(fields) == 0 {
		return BedChange{}, syntaxf(line, "%s cue needs start or stop", strings.ToUpper(string(kind)))
	}
	switch action := BedAction(strings.ToLower(fields[0])); action {
	case BedStart, BedStop:
		change.Action = action
	default:
		return BedChange{}, syntaxf(line, "%s cue needs start or stop, got %q", strings.ToUpper(string(kind)), fields[0])
	}
	for _, field := range fields[1:] {
		key, value, found := strings.Cut(field, "=")
		key = strings.ToLower(key)
		if !found {
			switch key {
			case "loop":
				change.Loop = true
			case "noloop", "once":
				change.Loop = false
			default:
				if change.Action == BedStart && change.ID == "" {
					change.ID = field
					continue
				}
				return BedChange{}, syntaxf(line, "unexpected %s field %q", kind, field)
			}
			continue
		}
		switch key {
		case "id":
			change.ID = value
		case "loop":
			switch strings.ToLower(value) {
			case "true", "yes", "1":
				change.Loop = true
			case "false", "no", "0":
				change.Loop = false
			default:
				return BedChange{}, syntaxf(line, "loop must be true or false, got %q", value)
			}
		case "gain_db", "gain":
			f, err := parseNumber(value)
			if err != nil {
				return BedChange{}, syntaxf(line, "%s gain %q is not a number", kind, value)
			}
			change.GainDB = &f
		case "fade_in":
			f, err := parseNumber(value)
			if err != nil || f < 0 {
				return BedChange{}, validationf(line, "fade_in must be a non-negative number, got %q", value)
			}
			if err := checkSeconds(line, "fade_in", f); err != nil {
				return BedChange{}, err
			}
			change.FadeInSeconds = f
		case "fade_out":
			f, err := parseNumber(value)
			if err != nil || f < 0 {
				return BedChange{}, validationf(line, "fade_out must be a non-negative number, got %q", value)
			}
			if err := checkSeconds(line, "fade_out", f); err != nil {
				return BedChange{}, err
			}
			change.FadeOutSeconds = f
		default:
			return BedChange{}, syntaxf(line, "unknown %s field %q", kind, key)
		}
	}
	if change.Action == BedStart && strings.TrimSpace(change.ID) == "" {
		return BedChange{}, validationf(line, "%s start requires an id", kind)
	}
	if change.Action == BedStop && change.ID != "" {
		return BedChange{}, syntaxf(line, "%s stop does not take an id", kind)
	}
	return change, nil
}

func isSignedNumber(s string) bool {
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return false
	}
	_, err := parseNumber(s)
	return err == nil
}

func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
