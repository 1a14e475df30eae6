package testsupport

import (
	"testing"

	"storyloom/internal/config"
	"storyloom/internal/store"
)

// MustOpenStore opens a store against the test config and registers
// cleanup. Fails the test on any open error.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}
