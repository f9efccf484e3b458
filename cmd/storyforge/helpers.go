package main

import (
	"fmt"
	"strings"
	"time"

	"storyforge/internal/sfml"
)

func parseFormatFlag(value string) (sfml.Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return sfml.FormatAuto, nil
	case "v1":
		return sfml.FormatV1, nil
	case "v0.1", "legacy":
		return sfml.FormatLegacy, nil
	default:
		return "", fmt.Errorf("unknown --format %q (want auto, v1 or legacy)", value)
	}
}

// formatClock renders d as m:ss.t, or h:mm:ss.t past an hour.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	tenths := d.Round(100*time.Millisecond) / (100 * time.Millisecond)
	h := tenths / 36000
	m := (tenths / 600) % 60
	s := (tenths / 10) % 60
	t := tenths % 10
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%d", h, m, s, t)
	}
	return fmt.Sprintf("%d:%02d.%d", m, s, t)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(text string, limit int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
