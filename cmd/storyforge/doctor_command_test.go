package main

import (
	"os"
	"testing"

	"storyforge/internal/config"
	"storyforge/internal/testsupport"
)

func TestDoctorReady(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	if err := os.MkdirAll(env.cfg.Paths.AssetsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "== Paths ==")
	requireContains(t, out, "[OK]")
	requireContains(t, out, "Ready to render")
}

func TestDoctorReportsProblems(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithOverrides(func(c *config.Config) {
		c.Tools.FFmpeg = "storyforge-missing-ffmpeg"
	}))

	out, _, err := runCLI(t, env, "doctor")
	if err == nil {
		t.Fatalf("expected doctor to fail:\n%s", out)
	}
	requireContains(t, out, "Assets directory")
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, `binary "storyforge-missing-ffmpeg" not found`)
}
