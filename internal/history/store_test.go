package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := History{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleModel, Text: "hi there"},
	}
	require.NoError(t, s.Save(ctx, "spaces/AAA", h))
	require.Equal(t, h, s.Load(ctx, "spaces/AAA"))

	// Overwrite, not append.
	h2 := append(h, Message{Role: RoleUser, Text: "more"})
	require.NoError(t, s.Save(ctx, "spaces/AAA", h2))
	require.Equal(t, h2, s.Load(ctx, "spaces/AAA"))
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.Empty(t, s.Load(context.Background(), "spaces/none"))
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "spaces/A", History{{Role: RoleUser, Text: "a"}}))
	require.NoError(t, s.Save(ctx, "spaces/B", History{{Role: RoleUser, Text: "b"}}))

	require.Equal(t, "a", s.Load(ctx, "spaces/A")[0].Text)
	require.Equal(t, "b", s.Load(ctx, "spaces/B")[0].Text)
}

func TestStore_SaveEmptyDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "spaces/AAA", History{{Role: RoleUser, Text: "hello"}}))
	require.NoError(t, s.Save(ctx, "spaces/AAA", History{}))

	existed, err := s.Delete(ctx, "spaces/AAA")
	require.NoError(t, err)
	require.False(t, existed, "record should already be gone")
}

func TestStore_DeleteReportsExistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	existed, err := s.Delete(ctx, "spaces/AAA")
	require.NoError(t, err)
	require.False(t, existed)

	require.NoError(t, s.Save(ctx, "spaces/AAA", History{{Role: RoleUser, Text: "x"}}))
	existed, err = s.Delete(ctx, "spaces/AAA")
	require.NoError(t, err)
	require.True(t, existed)
}

func TestStore_CorruptRecordDiscarded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Plant a record that is valid JSON but not a message sequence.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (key, value) VALUES (?, ?);`,
		storageKey("spaces/AAA"), `{"not":"an array"}`)
	require.NoError(t, err)

	require.Empty(t, s.Load(ctx, "spaces/AAA"))

	// The corrupt record was deleted as a side effect.
	existed, err := s.Delete(ctx, "spaces/AAA")
	require.NoError(t, err)
	require.False(t, existed)
}
