package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"storyforge/internal/services"
)

func touch(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestResolveSearchOrder(t *testing.T) {
	root := t.TempDir()
	door := touch(t, root, "sfx/door.ogg")
	rootTheme := touch(t, root, "theme.mp3")
	touch(t, root, "music/theme.wav")
	rain := touch(t, root, "ambience/rain.flac")
	named := touch(t, root, "music/loop.wav")
	creak := touch(t, root, "sfx/door.creak.wav")
	upper := touch(t, root, "sfx/bell.WAV")

	index := NewIndex(root, nil)
	tests := []struct {
		kind, id, want string
	}{
		{"sfx", "door", door},
		{"music", "theme", rootTheme},
		{"ambience", "rain", rain},
		{"music", "loop.wav", named},
		{"sfx", "door.creak", creak},
		{"sfx", "bell.WAV", upper},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := index.Resolve(tt.kind, tt.id)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%s, %s) = %s, want %s", tt.kind, tt.id, got, tt.want)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	index := NewIndex(t.TempDir(), nil)
	tests := []struct {
		id   string
		want error
	}{
		{"missing", services.ErrNotFound},
		{"", services.ErrValidation},
		{"../etc/passwd", services.ErrValidation},
		{"/abs/path.wav", services.ErrValidation},
	}
	for _, tt := range tests {
		if _, err := index.Resolve("sfx", tt.id); !errors.Is(err, tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.id, err, tt.want)
		}
	}
}

func TestResolveAssetProbesOnce(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "music/theme.wav")
	var calls atomic.Int32
	index := NewIndex(root, func(context.Context, string) (time.Duration, int, error) {
		calls.Add(1)
		return 12 * time.Second, 48000, nil
	})
	for range 3 {
		clip, err := index.ResolveAsset("music", "theme")
		if err != nil {
			t.Fatalf("ResolveAsset: %v", err)
		}
		if clip.Duration != 12*time.Second || clip.SampleRate != 48000 {
			t.Fatalf("unexpected clip %+v", clip)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one probe, got %d", calls.Load())
	}
	if d, ok := index.BedLength("music", "theme"); !ok || d != 12*time.Second {
		t.Fatalf("BedLength = %v, %v", d, ok)
	}
	if _, ok := index.BedLength("music", "absent"); ok {
		t.Fatal("absent bed reported a length")
	}
}

func TestResolveAssetRejectsSilentFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sfx/blank.wav")
	index := NewIndex(root, func(context.Context, string) (time.Duration, int, error) { return 0, 0, nil })
	if _, err := index.ResolveAsset("sfx", "blank"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sfx/door.ogg")
	touch(t, root, "music/theme.wav")
	touch(t, root, "README.txt")
	got, err := NewIndex(root, nil).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"music/theme.wav", "sfx/door.ogg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}
