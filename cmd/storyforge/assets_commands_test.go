package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"storyforge/internal/testsupport"
)

func TestAssetsList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "assets", "list")
	if err != nil {
		t.Fatalf("assets list: %v", err)
	}
	requireContains(t, out, "No assets under")

	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.AssetsDir, "music", "lullaby.ogg"), 16)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.AssetsDir, "sfx", "bell.wav"), 16)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.AssetsDir, "notes.txt"), 16)

	out, _, err = runCLI(t, env, "assets", "list", "--json")
	if err != nil {
		t.Fatalf("assets list --json: %v", err)
	}
	var files []string
	if err := json.Unmarshal([]byte(out), &files); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(files) != 2 || files[0] != "music/lullaby.ogg" || files[1] != "sfx/bell.wav" {
		t.Fatalf("unexpected assets %v", files)
	}
}

func TestAssetsVoices(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "assets", "voices")
	if err != nil {
		t.Fatalf("assets voices: %v", err)
	}
	requireContains(t, out, "No voice catalog configured")

	env = setupCLITestEnv(t, testsupport.WithVoices("voices:\n  maris:\n    reference: refs/maris.wav\n    description: warm alto\n"))
	out, _, err = runCLI(t, env, "assets", "voices")
	if err != nil {
		t.Fatalf("assets voices: %v", err)
	}
	requireContains(t, out, "maris")
	requireContains(t, out, "warm alto")
}
