package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/stretchr/testify/require"
)

const (
	testWorkspace  = "6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f"
	otherWorkspace = "0d9e8f7a-6b5c-4d3e-8f2a-1b2c3d4e5f60"
	testUser       = "9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

// newTestStore opens a migrated SQLite store in a temp dir with a fixed clock.
func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC) }
	return s
}

func seed(t *testing.T, s *SQLStore, f types.Fixture) {
	t.Helper()
	_, err := s.ImportFixture(context.Background(), f)
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
