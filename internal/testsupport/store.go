package testsupport

import (
	"testing"

	"equirect/internal/config"
	"equirect/internal/queue"
)

// MustOpenQueue opens the request queue for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
