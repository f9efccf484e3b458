package mixplan

import "time"

// duckWindows intersects the bed interval with the speech windows. Touching
// windows are merged so the bed is not released between back-to-back lines.
// Speech must be sorted by start.
func duckWindows(bed Window, speech []Window) []Window {
	var out []Window
	for _, w := range speech {
		start := max(w.Start, bed.Start)
		end := min(w.End, bed.End)
		if end <= start {
			continue
		}
		if n := len(out); n > 0 && start-out[n-1].End <= time.Millisecond {
			out[n-1].End = max(out[n-1].End, end)
			continue
		}
		out = append(out, Window{Start: start, End: end})
	}
	return out
}
