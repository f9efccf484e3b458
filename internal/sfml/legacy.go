package sfml

import (
	"strings"
)

// legacySceneID names the single scene a v0.1 document is normalized into.
const legacySceneID = "main"

// ParseLegacy parses the flat v0.1 format:
//
//	@key: value
//	SPEAKER: text
//	PAUSE: 0.5
//	SFX: <asset> [at=<now|last_start|last_end>] [offset=0.3] [gain_db=-3]
//
// The result is normalized to the v1 shape: one scene, a cast mapping every
// speaker to a voice id equal to its name, Narrator aliased to @narrator (or
// the first speaker), and @music / @ambience turned into looping beds that
// start with the scene.
func ParseLegacy(text string, opts Options) (*Document, error) {
	doc := Document{
		Format:     FormatLegacy,
		Directives: map[string]Value{},
		Casting:    map[SpeakerName]VoiceID{},
		Profiles:   map[SpeakerName]Controls{},
	}
	scene := Scene{ID: legacySceneID, Line: 1}
	var firstSpeaker SpeakerName

	for i, raw := range splitLines(text) {
		lineNo := i + 1
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "@") {
			key, value, found := strings.Cut(line[1:], ":")
			if !found {
				return nil, syntaxf(lineNo, "directive missing ':' -> %q", raw)
			}
			key = strings.ToLower(strings.TrimSpace(key))
			v, err := directiveValue(key, value, lineNo)
			if err != nil {
				return nil, err
			}
			doc.Directives[key] = v
			continue
		}

		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "PAUSE:") {
			value := strings.TrimSpace(line[len("PAUSE:"):])
			seconds, err := parseNumber(value)
			if err != nil {
				return nil, syntaxf(lineNo, "PAUSE expects decimal seconds, got %q", value)
			}
			if seconds < 0 {
				return nil, validationf(lineNo, "PAUSE must not be negative, got %s", value)
			}
			if err := checkSeconds(lineNo, "PAUSE", seconds); err != nil {
				return nil, err
			}
			scene.Events = append(scene.Events, Pause{Source: Source{Line: lineNo}, Seconds: seconds})
			continue
		}

		if strings.HasPrefix(upper, "SFX:") {
			fields := strings.Fields(line[len("SFX:"):])
			if len(fields) == 0 {
				return nil, syntaxf(lineNo, "SFX missing asset id")
			}
			cue, err := parseSfxFields(fields, lineNo)
			if err != nil {
				return nil, err
			}
			scene.Events = append(scene.Events, cue)
			continue
		}

		if speaker, text, found := strings.Cut(line, ":"); found {
			speaker = strings.TrimSpace(speaker)
			text = strings.TrimSpace(text)
			if speaker == "" || text == "" {
				return nil, syntaxf(lineNo, "bad utterance -> %q", raw)
			}
			name := SpeakerName(speaker)
			if firstSpeaker == "" {
				firstSpeaker = name
			}
			doc.Casting[name] = VoiceID(speaker)
			scene.Events = append(scene.Events, SpeechSegment{
				Source:  Source{Line: lineNo},
				Speaker: name,
				Lines:   []string{text},
			})
			continue
		}

		return nil, syntaxf(lineNo, "unrecognized line -> %q", raw)
	}

	if v, ok := doc.Directives["title"]; ok {
		doc.Title = v.Raw
		scene.Title = v.Raw
	}

	if _, ok := doc.Casting[Narrator]; !ok {
		narrator := firstSpeaker
		if v, ok := doc.Directives["narrator"]; ok {
			narrator = SpeakerName(v.Raw)
			if _, cast := doc.Casting[narrator]; !cast {
				return nil, validationf(0, "@narrator names %q, who never speaks", narrator)
			}
		}
		if narrator != "" {
			doc.Casting[Narrator] = doc.Casting[narrator]
		}
	}

	var beds []Event
	for _, kind := range []BedKind{BedMusic, BedAmbience} {
		if v, ok := doc.Directives[string(kind)]; ok {
			beds = append(beds, BedChange{Source: Source{Line: 1}, Kind: kind, Action: BedStart, ID: v.Raw, Loop: true})
		}
	}
	if len(beds) > 0 {
		scene.Events = append(beds, scene.Events...)
	}

	doc.Scenes = []Scene{scene}
	if err := validate(&doc, opts); err != nil {
		return nil, err
	}
	return &doc, nil
}
