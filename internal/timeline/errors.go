package timeline

import (
	"errors"
	"fmt"

	"storyforge/internal/sfml"
)

// ErrScheduling matches every scheduling failure.
var ErrScheduling = errors.New("scheduling error")

// UnresolvedAnchorError reports a last_start/last_end anchor used before any
// speech in the current scene.
type UnresolvedAnchorError struct {
	Scene  string
	Line   int
	Anchor sfml.Anchor
}

func (e *UnresolvedAnchorError) Error() string {
	return fmt.Sprintf("timeline: scene %s line %d: anchor %s used before any speech in the scene", e.Scene, e.Line, e.Anchor)
}

func (e *UnresolvedAnchorError) Is(target error) bool { return target == ErrScheduling }

func (e *UnresolvedAnchorError) ErrorKind() string { return "scheduling" }

// SchedulingError reports any other event that cannot be placed.
type SchedulingError struct {
	Scene  string
	Line   int
	Reason string
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("timeline: scene %s line %d: %s", e.Scene, e.Line, e.Reason)
}

func (e *SchedulingError) Is(target error) bool { return target == ErrScheduling }

func (e *SchedulingError) ErrorKind() string { return "scheduling" }
