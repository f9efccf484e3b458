package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"storyforge/internal/services"
	"storyforge/internal/timeline"
)

// Extensions tried, in order, when an asset id has none.
var Extensions = []string{".wav", ".mp3", ".ogg", ".flac"}

const probeTimeout = 30 * time.Second

// Prober measures an audio file.
type Prober func(ctx context.Context, path string) (time.Duration, int, error)

// Index resolves asset ids under a root directory. Probe results are
// memoized, so an Index is cheap to query repeatedly during planning.
type Index struct {
	root  string
	probe Prober

	mu     sync.Mutex
	probed map[string]timeline.Clip
}

// NewIndex returns an Index rooted at root.
func NewIndex(root string, probe Prober) *Index {
	return &Index{root: root, probe: probe, probed: make(map[string]timeline.Clip)}
}

// Root returns the asset directory.
func (x *Index) Root() string { return x.root }

// Resolve finds the file for id, trying <root>/<id> then <root>/<kind>/<id>.
// Ids without a known audio extension are also tried with each of Extensions.
func (x *Index) Resolve(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty %s asset id", services.ErrValidation, kind)
	}
	if filepath.IsAbs(id) || strings.Contains(filepath.ToSlash(id), "../") {
		return "", fmt.Errorf("%w: %s asset id %q must be relative to the asset directory", services.ErrValidation, kind, id)
	}
	for _, base := range []string{filepath.Join(x.root, id), filepath.Join(x.root, kind, id)} {
		for _, candidate := range candidates(base) {
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s asset %q under %s", services.ErrNotFound, kind, id, x.root)
}

// candidates lists base with each known extension appended, then base
// itself, unless base already ends in one. A dotted id like "door.creak" is
// probed as "door.creak.wav" first.
func candidates(base string) []string {
	if knownExtension(base) {
		return []string{base}
	}
	out := make([]string, 0, len(Extensions)+1)
	for _, ext := range Extensions {
		out = append(out, base+ext)
	}
	return append(out, base)
}

func knownExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range Extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// ResolveAsset locates and measures an asset. It satisfies the mix planner's
// asset resolver.
func (x *Index) ResolveAsset(kind, id string) (timeline.Clip, error) {
	path, err := x.Resolve(kind, id)
	if err != nil {
		return timeline.Clip{}, err
	}
	x.mu.Lock()
	clip, ok := x.probed[path]
	x.mu.Unlock()
	if ok {
		return clip, nil
	}
	if x.probe == nil {
		return timeline.Clip{}, fmt.Errorf("%w: no prober for assets", services.ErrConfiguration)
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	duration, rate, err := x.probe(ctx, path)
	if err != nil {
		return timeline.Clip{}, fmt.Errorf("probe %s: %w", path, err)
	}
	if duration <= 0 {
		return timeline.Clip{}, fmt.Errorf("%w: %s asset %q has no audio", services.ErrValidation, kind, id)
	}
	clip = timeline.Clip{Path: path, Duration: duration, SampleRate: rate}
	x.mu.Lock()
	x.probed[path] = clip
	x.mu.Unlock()
	return clip, nil
}

// BedLength reports the natural length of a bed clip for the scheduler.
// Unresolvable beds report false and are left for the planner to reject.
func (x *Index) BedLength(kind, id string) (time.Duration, bool) {
	clip, err := x.ResolveAsset(kind, id)
	if err != nil {
		return 0, false
	}
	return clip.Duration, true
}

// List returns every audio file under the asset root, relative to it.
func (x *Index) List() ([]string, error) {
	var out []string
	err := filepath.WalkDir(x.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !knownExtension(path) {
			return nil
		}
		rel, err := filepath.Rel(x.root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return out, nil
}
