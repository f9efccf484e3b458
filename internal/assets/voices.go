package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"storyforge/internal/services"
	"storyforge/internal/sfml"
	"storyforge/internal/tts"
)

// VoiceEntry is one voice in the catalog file.
type VoiceEntry struct {
	Reference   string `yaml:"reference"`
	Engine      string `yaml:"engine,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type catalogFile struct {
	Voices map[string]VoiceEntry `yaml:"voices"`
}

// Catalog maps voice ids to engine references. A nil or empty catalog
// resolves every id to itself.
type Catalog struct {
	voices map[sfml.VoiceID]VoiceEntry
}

// LoadVoices reads a YAML catalog:
//
//	voices:
//	  maris:
//	    reference: refs/maris.wav
//
// Relative references are resolved against the catalog's directory. A blank
// path yields an empty catalog.
func LoadVoices(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return &Catalog{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: voice catalog %s", services.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read voice catalog: %w", err)
	}
	return ParseVoices(data, filepath.Dir(path))
}

// ParseVoices decodes catalog YAML. baseDir anchors relative references.
func ParseVoices(data []byte, baseDir string) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse voice catalog: %v", services.ErrConfiguration, err)
	}
	catalog := &Catalog{voices: make(map[sfml.VoiceID]VoiceEntry, len(file.Voices))}
	for id, entry := range file.Voices {
		id = strings.TrimSpace(id)
		entry.Reference = strings.TrimSpace(entry.Reference)
		if id == "" || entry.Reference == "" {
			return nil, fmt.Errorf("%w: voice catalog entry %q needs a reference", services.ErrConfiguration, id)
		}
		if looksLikePath(entry.Reference) && !filepath.IsAbs(entry.Reference) && baseDir != "" {
			entry.Reference = filepath.Join(baseDir, entry.Reference)
		}
		catalog.voices[sfml.VoiceID(id)] = entry
	}
	return catalog, nil
}

func looksLikePath(ref string) bool {
	return strings.ContainsRune(ref, '/') || filepath.Ext(ref) != ""
}

// Empty reports whether the catalog lists no voices.
func (c *Catalog) Empty() bool { return c == nil || len(c.voices) == 0 }

// IDs returns the catalog's voice ids in sorted order.
func (c *Catalog) IDs() []sfml.VoiceID {
	if c == nil {
		return nil
	}
	ids := make([]sfml.VoiceID, 0, len(c.voices))
	for id := range c.voices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Entry returns the catalog entry for id.
func (c *Catalog) Entry(id sfml.VoiceID) (VoiceEntry, bool) {
	if c == nil {
		return VoiceEntry{}, false
	}
	entry, ok := c.voices[id]
	return entry, ok
}

// HasVoice reports whether id can be resolved. Every id is accepted when the
// catalog is empty.
func (c *Catalog) HasVoice(id sfml.VoiceID) bool {
	if c.Empty() {
		return id != ""
	}
	_, ok := c.voices[id]
	return ok
}

// Resolve maps id to the reference handed to the engine.
func (c *Catalog) Resolve(id sfml.VoiceID) (tts.Voice, error) {
	if c.Empty() {
		return tts.IdentityVoices{}.ResolveVoice(id)
	}
	entry, ok := c.voices[id]
	if !ok {
		return tts.Voice{}, fmt.Errorf("%w: voice %q is not in the catalog", services.ErrNotFound, id)
	}
	return tts.Voice{ID: id, Reference: entry.Reference}, nil
}

// ResolveVoice implements tts.VoiceResolver.
func (c *Catalog) ResolveVoice(id sfml.VoiceID) (tts.Voice, error) {
	return c.Resolve(id)
}
