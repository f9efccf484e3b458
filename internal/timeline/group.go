package timeline

import "storyforge/internal/sfml"

// Group returns copies of the document scenes in which runs of adjacent
// speech segments by the same speaker with the same effective controls are
// collapsed into one segment. Any other event between two segments keeps them
// apart. With merge disabled the scenes are copied unchanged. The document is
// never modified.
func Group(doc *sfml.Document, merge bool) []sfml.Scene {
	if doc == nil {
		return nil
	}
	scenes := make([]sfml.Scene, 0, len(doc.Scenes))
	for _, scene := range doc.Scenes {
		out := scene
		out.Events = make([]sfml.Event, 0, len(scene.Events))
		for _, ev := range scene.Events {
			seg, ok := ev.(sfml.SpeechSegment)
			if !ok {
				out.Events = append(out.Events, ev)
				continue
			}
			seg.Lines = append([]string(nil), seg.Lines...)
			if merge && len(out.Events) > 0 {
				if prev, ok := out.Events[len(out.Events)-1].(sfml.SpeechSegment); ok && sameVoice(doc, prev, seg) {
					prev.Lines = append(prev.Lines, seg.Lines...)
					out.Events[len(out.Events)-1] = prev
					continue
				}
			}
			out.Events = append(out.Events, seg)
		}
		scenes = append(scenes, out)
	}
	return scenes
}

func sameVoice(doc *sfml.Document, a, b sfml.SpeechSegment) bool {
	return a.Speaker == b.Speaker && doc.ControlsFor(a) == doc.ControlsFor(b)
}
