package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyforge/internal/config"
	"storyforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReadableDirectory_Blank(t *testing.T) {
	result := CheckReadableDirectory("assets", " ")
	if result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result for blank path: %#v", result)
	}
}

func TestCheckTTSNode(t *testing.T) {
	tests := []struct {
		name   string
		status int
		token  string
		passed bool
		detail string
	}{
		{name: "healthy", status: http.StatusOK, token: "good-token", passed: true, detail: "reachable"},
		{name: "no health endpoint", status: http.StatusNotFound, token: "good-token", passed: true, detail: "no health endpoint"},
		{name: "bad token", token: "wrong", detail: "auth failed"},
		{name: "server error", status: http.StatusBadGateway, token: "good-token", detail: "502"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer good-token" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				if r.URL.Path != "/v1/health" {
					w.WriteHeader(http.StatusTeapot)
					return
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			result := CheckTTSNode(context.Background(), srv.URL+"/", tc.token)
			if result.Passed != tc.passed {
				t.Fatalf("passed = %v, want %v (%s)", result.Passed, tc.passed, result.Detail)
			}
			if !strings.Contains(result.Detail, tc.detail) {
				t.Fatalf("detail %q does not mention %q", result.Detail, tc.detail)
			}
		})
	}
}

func TestCheckTTSNode_MissingURL(t *testing.T) {
	result := CheckTTSNode(context.Background(), "", "token")
	if result.Passed || !strings.Contains(result.Detail, "base_url") {
		t.Fatalf("expected missing base_url failure, got %#v", result)
	}
}

func TestCheckVoiceCatalog(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "voices.yaml")
	if err := os.WriteFile(good, []byte("voices:\n  maris:\n    reference: refs/maris.wav\n  oren:\n    reference: xtts:oren\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckVoiceCatalog(good); !result.Passed || !strings.Contains(result.Detail, "2 voices") {
		t.Fatalf("unexpected result: %#v", result)
	}
	if result := CheckVoiceCatalog(filepath.Join(dir, "missing.yaml")); result.Passed {
		t.Fatalf("expected missing catalog to fail, got %#v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, dir := range []string{cfg.Paths.AssetsDir, cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %#v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestRunAll_SkipsDisabledCacheAndReportsMissingDirs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheDisabled())

	results := RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results without cache, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 3 {
		t.Fatalf("expected missing dirs to fail, got %#v", failed)
	}
}

func TestRunAll_IncludesTTSNodeForHTTPEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithHTTPEngine(srv.URL))
	results := RunAll(context.Background(), cfg)
	last := results[len(results)-1]
	if last.Name != "TTS node" || !last.Passed {
		t.Fatalf("expected passing TTS node check last, got %#v", last)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		if !status.Available {
			t.Fatalf("expected %s to be available: %s", status.Name, status.Detail)
		}
	}
	if statuses[2].Optional {
		t.Fatal("voice generator should be required for the command engine")
	}
}

func TestCheckSystemDeps_HTTPEngineMakesVoicegenOptional(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOverrides(func(c *config.Config) {
		c.TTS.Engine = config.EngineHTTP
		c.TTS.Command = "surely-missing-voicegen"
	}))

	statuses := CheckSystemDeps(cfg)
	voicegen := statuses[2]
	if !voicegen.Optional || voicegen.Available {
		t.Fatalf("expected optional unavailable voice generator, got %#v", voicegen)
	}
}
