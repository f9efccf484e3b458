package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to resolve, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" || !results[2].Optional {
		t.Fatalf("unexpected blank command status: %#v", results[2])
	}
}

func TestResolveFFprobeSibling(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	ffprobe := filepath.Join(dir, executableName("ffprobe"))
	writeStub(t, ffmpeg)
	writeStub(t, ffprobe)

	if got := ResolveFFprobe(ffmpeg, "ffprobe"); got != ffprobe {
		t.Fatalf("expected sibling %q, got %q", ffprobe, got)
	}
	if got := ResolveFFprobe(ffmpeg, ""); got != ffprobe {
		t.Fatalf("expected sibling for blank probe, got %q", got)
	}
}

func TestResolveFFprobeExplicitWins(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	writeStub(t, ffmpeg)
	writeStub(t, filepath.Join(dir, executableName("ffprobe")))

	if got := ResolveFFprobe(ffmpeg, "/opt/probe/ffprobe"); got != "/opt/probe/ffprobe" {
		t.Fatalf("expected explicit path, got %q", got)
	}
}

func TestResolveFFprobeFallsBack(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	writeStub(t, ffmpeg)

	if got := ResolveFFprobe(ffmpeg, "ffprobe"); got != "ffprobe" {
		t.Fatalf("expected bare default without sibling, got %q", got)
	}
	t.Setenv("PATH", "")
	if got := ResolveFFprobe("ffmpeg", "ffprobe"); got != "ffprobe" {
		t.Fatalf("expected bare default when ffmpeg is unresolvable, got %q", got)
	}
}
