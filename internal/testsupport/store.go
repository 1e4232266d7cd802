package testsupport

import (
	"context"
	"testing"

	"demix/internal/config"
	"demix/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSource creates a source record for tests using the provided store.
func NewSource(t testing.TB, store *jobs.Store, artist, title string) *jobs.Source {
	t.Helper()

	src, err := store.NewSource(context.Background(), artist, title)
	if err != nil {
		t.Fatalf("store.NewSource: %v", err)
	}
	return src
}

// NewDynamicMix creates a pending dynamic mix job for tests.
func NewDynamicMix(t testing.TB, store *jobs.Store, sourceID string) *jobs.Job {
	t.Helper()

	job, err := store.NewDynamicMix(context.Background(), sourceID, "Test Artist", "Test Title")
	if err != nil {
		t.Fatalf("store.NewDynamicMix: %v", err)
	}
	return job
}

// MustClaim claims a pending job for tests.
func MustClaim(t testing.TB, store *jobs.Store, id string) *jobs.Job {
	t.Helper()

	job, err := store.Claim(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Claim: %v", err)
	}
	return job
}
