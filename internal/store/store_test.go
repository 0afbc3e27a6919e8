package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/recall/internal/history"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestOpenCreatesDatabase(t *testing.T) {
	s, dir := openTestStore(t)
	assert.Equal(t, filepath.Join(dir, FileName), s.Path())
	_, err := os.Stat(s.Path())
	require.NoError(t, err)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestLoadEmpty(t *testing.T) {
	s, _ := openTestStore(t)
	items, err := s.Load(context.Background(), history.DefaultName)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSaveLoadKeepsOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(time.Now().UnixMilli())

	items := []history.Item{
		{ID: "c", Text: "newest", CreatedAt: now},
		{ID: "a", Text: "multi\nline", CreatedAt: now.Add(-time.Minute)},
		{ID: "b", Text: "oldest", CreatedAt: now.Add(-time.Hour)},
	}
	require.NoError(t, s.Save(ctx, history.DefaultName, items))

	got, err := s.Load(ctx, history.DefaultName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range items {
		assert.Equal(t, items[i].ID, got[i].ID)
		assert.Equal(t, items[i].Text, got[i].Text)
		assert.True(t, items[i].CreatedAt.Equal(got[i].CreatedAt))
	}

	require.NoError(t, s.Save(ctx, history.DefaultName, items[:1]))
	got, err = s.Load(ctx, history.DefaultName)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, history.DefaultName, []history.Item{{ID: "x", Text: "kept", CreatedAt: time.Now()}}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, history.DefaultName)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)
}

func TestSaveDuplicateIDRollsBack(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, history.DefaultName, []history.Item{{ID: "a", Text: "one"}}))

	err := s.Save(ctx, history.DefaultName, []history.Item{{ID: "b", Text: "x"}, {ID: "b", Text: "y"}})
	require.Error(t, err)

	got, err := s.Load(ctx, history.DefaultName)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestHistoryPersistsThroughStore(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	h := history.New(history.DefaultConfig(), s)
	_, err := h.Add(ctx, "first")
	require.NoError(t, err)
	_, err = h.Add(ctx, "second")
	require.NoError(t, err)

	reloaded := history.New(history.DefaultConfig(), s)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 2, reloaded.Size())
	it, err := reloaded.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "second", it.Text)
}

func TestNamedHistoriesAreSeparate(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, history.DefaultName, []history.Item{{ID: "a", Text: "default"}}))
	require.NoError(t, s.Save(ctx, "work", []history.Item{{ID: "a", Text: "work"}, {ID: "b", Text: "more"}}))
	require.NoError(t, s.Save(ctx, "empty", nil))

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", history.DefaultName, "work"}, names)

	got, err := s.Load(ctx, "work")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "work", got[0].Text)

	require.NoError(t, s.Remove(ctx, "work"))
	got, err = s.Load(ctx, "work")
	require.NoError(t, err)
	assert.Empty(t, got)
	names, err = s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", history.DefaultName}, names)

	got, err = s.Load(ctx, history.DefaultName)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, s.Remove(ctx, "never-saved"))
}

func TestMigrateFromSingleHistory(t *testing.T) {
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, FileName))
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE items (
		  id         TEXT PRIMARY KEY,
		  position   INTEGER NOT NULL,
		  text       TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);
		INSERT INTO items VALUES ('old', 0, 'from v1', 0);
		PRAGMA user_version = 1;
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	got, err := s.Load(ctx, history.DefaultName)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "from v1", got[0].Text)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{history.DefaultName}, names)
}

func TestHistorySwitchThroughStore(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	h := history.New(history.DefaultConfig(), s)
	_, err := h.Add(ctx, "default item")
	require.NoError(t, err)
	require.NoError(t, h.Switch(ctx, "work"))
	_, err = h.Add(ctx, "work item")
	require.NoError(t, err)

	reloaded := history.New(history.DefaultConfig(), s)
	require.NoError(t, reloaded.Switch(ctx, "work"))
	it, err := reloaded.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "work item", it.Text)

	names, err := reloaded.Histories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{history.DefaultName, "work"}, names)
}

var _ history.Store = (*Store)(nil)
