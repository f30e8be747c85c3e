package testsupport

import (
	"testing"

	"ionbatch/internal/config"
	"ionbatch/internal/project"
)

// MustOpenStore opens the project store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *project.Store {
	t.Helper()

	store, err := project.Open(cfg.Paths.ProjectDir)
	if err != nil {
		t.Fatalf("project.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
