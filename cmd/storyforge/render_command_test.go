package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyforge/internal/jobs"
	"storyforge/internal/testsupport"
)

func TestRenderEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWorkingToolchain(1.5))
	script := env.script(t, bedtimeScript)
	library := filepath.Join(env.baseDir, "library")

	out, stderr, err := runCLI(t, env, "render", "--json", "--copy-to", library, script)
	if err != nil {
		t.Fatalf("render: %v\nstderr: %s", err, stderr)
	}
	var view renderView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if view.State != string(jobs.StateCompleted) || view.Segments != 3 {
		t.Fatalf("unexpected render view %+v", view)
	}
	if filepath.Dir(view.Output) != env.cfg.Paths.OutputDir || !strings.HasPrefix(filepath.Base(view.Output), "The Owl And The Moon (") {
		t.Fatalf("unexpected output path %q", view.Output)
	}
	if view.Published != filepath.Join(library, filepath.Base(view.Output)) {
		t.Fatalf("unexpected published path %q", view.Published)
	}
	if _, err := os.Stat(view.Published); err != nil {
		t.Fatalf("published copy missing: %v", err)
	}
	requireContains(t, stderr, "render completed")

	list, _, err := runCLI(t, env, "jobs", "list", "--state", "completed")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, list, view.JobID[:8])

	stats, _, err := runCLI(t, env, "cache", "stats", "--json")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, stats, `"entries": 3`)
}

func TestRenderFailureReportsJobState(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWorkingToolchain(1.5))
	script := env.script(t, "cast:\n  Narrator: v1\nscene a \"A\":\n  SFX: id=missing-bell\n  [Narrator] Hello.\n")

	_, _, err := runCLI(t, env, "render", script)
	if err == nil {
		t.Fatal("expected render to fail")
	}
	requireContains(t, err.Error(), "failed")

	out, _, err := runCLI(t, env, "jobs", "list", "--json", "--state", "failed")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	var list []jobs.Job
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ErrorKind != "mixplan" {
		t.Fatalf("expected one failed mixplan job, got %+v", list)
	}
}
