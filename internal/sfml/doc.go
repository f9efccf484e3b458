// Package sfml parses Storyforge Markup Language scripts into a structured
// Document.
//
// Two front-ends normalize into the same Document type: the v1 grammar
// (`cast:` block, `scene <id> "<title>":` headers, indented speaker blocks,
// bullets, PAUSE/SFX/MUSIC/AMBIENCE cues) and the legacy v0.1 line format
// (`@key: value`, `SPEAKER: text`). Parse picks the front-end by inspecting the
// text unless a format is forced through Options.
//
// Parsing is all-or-nothing. Every failure is reported as a *SyntaxError or a
// validation error carrying the 1-based line number; no partial documents are
// returned. Cross-references (speakers against the cast, voices against an
// optional resolver) are checked once the whole text has been read so casting
// entries may appear after the scenes that use them.
package sfml
