package assets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"storyforge/internal/services"
	"storyforge/internal/sfml"
)

const catalogYAML = `voices:
  maris:
    reference: refs/maris.wav
    description: warm narrator
  tide:
    reference: xtts:tide
`

func TestLoadVoices(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voices.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	catalog, err := LoadVoices(path)
	if err != nil {
		t.Fatalf("LoadVoices: %v", err)
	}
	if got := catalog.IDs(); !reflect.DeepEqual(got, []sfml.VoiceID{"maris", "tide"}) {
		t.Fatalf("IDs = %v", got)
	}
	voice, err := catalog.Resolve("maris")
	if err != nil || voice.Reference != filepath.Join(dir, "refs", "maris.wav") {
		t.Fatalf("Resolve(maris) = %+v, %v", voice, err)
	}
	voice, err = catalog.ResolveVoice("tide")
	if err != nil || voice.Reference != "xtts:tide" {
		t.Fatalf("Resolve(tide) = %+v, %v", voice, err)
	}
	if catalog.HasVoice("ghost") {
		t.Fatal("unknown voice reported present")
	}
	if _, err := catalog.Resolve("ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEmptyCatalogPassesThrough(t *testing.T) {
	catalog, err := LoadVoices("")
	if err != nil {
		t.Fatalf("LoadVoices: %v", err)
	}
	if !catalog.HasVoice("anything") || catalog.HasVoice("") {
		t.Fatal("empty catalog should accept any non-empty id")
	}
	voice, err := catalog.Resolve("v1")
	if err != nil || voice.Reference != "v1" {
		t.Fatalf("Resolve = %+v, %v", voice, err)
	}
}

func TestParseVoicesErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":          "voices: [",
		"missing reference": "voices:\n  maris:\n    description: x\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseVoices([]byte(body), ""); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
	if _, err := LoadVoices(filepath.Join(t.TempDir(), "absent.yaml")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
