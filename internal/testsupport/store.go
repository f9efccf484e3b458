package testsupport

import (
	"context"
	"testing"

	"storyforge/internal/config"
	"storyforge/internal/jobs"
)

// MustOpenJobs opens the job store named by cfg and registers cleanup.
func MustOpenJobs(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()
	store, err := jobs.Open(context.Background(), cfg.JobsDBPath())
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
