package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stemsi/gradebook/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func names(docs []model.DocumentInfo) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

// testDocumentStore checks the behaviour every DocumentStore shares.
func testDocumentStore(t *testing.T, store DocumentStore) {
	ctx := context.Background()

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = store.Read(ctx, "Fall")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, store.Write(ctx, "Fall", []byte(`{"a": 1}`)))
	require.NoError(t, store.Write(ctx, "Spring", []byte(`{}`)))
	require.NoError(t, store.Write(ctx, "Fall", []byte(`{"a": 2}`)))

	got, err := store.Read(ctx, "Fall")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 2}`, string(got))

	docs, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fall", "Spring"}, names(docs))
	for _, d := range docs {
		assert.False(t, d.ModifiedAt.IsZero(), d.Name)
	}

	// rename
	assert.True(t, errors.Is(store.Rename(ctx, "Missing", "X"), model.ErrNotFound))
	assert.True(t, errors.Is(store.Rename(ctx, "Fall", "Spring"), model.ErrDuplicateKey))
	require.NoError(t, store.Rename(ctx, "Fall", "Fall"))
	require.NoError(t, store.Rename(ctx, "Fall", "Autumn"))

	_, err = store.Read(ctx, "Fall")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	got, err = store.Read(ctx, "Autumn")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 2}`, string(got))

	// delete
	require.NoError(t, store.Delete(ctx, "Autumn"))
	assert.True(t, errors.Is(store.Delete(ctx, "Autumn"), model.ErrNotFound))

	docs, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Spring"}, names(docs))

	// names that cannot be storage keys
	assert.True(t, errors.Is(store.Write(ctx, "  ", []byte(`{}`)), model.ErrValidation))
	assert.True(t, errors.Is(store.Write(ctx, "../escape", []byte(`{}`)), model.ErrValidation))

	// a leading dot is an ordinary name
	require.NoError(t, store.Write(ctx, ".hidden", []byte(`{}`)))
	docs, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden", "Spring"}, names(docs))
}

func TestFSDocumentRepository(t *testing.T) {
	store, err := NewFSDocumentRepository(t.TempDir())
	require.NoError(t, err)
	testDocumentStore(t, store)
}

func TestFSDocumentRepositoryReportsFileTimes(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSDocumentRepository(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "old", []byte(`{}`)))
	require.NoError(t, store.Write(ctx, "new", []byte(`{}`)))

	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, chtimes(filepath.Join(dir, "old.json"), past))
	require.NoError(t, chtimes(filepath.Join(dir, "new.json"), past.Add(time.Hour)))

	docs, err := store.List(ctx)
	require.NoError(t, err)
	latest, ok := model.MostRecent(docs)
	require.True(t, ok)
	assert.Equal(t, "new", latest.Name)

	// rename keeps the modification time
	require.NoError(t, store.Rename(ctx, "new", "renamed"))
	docs, _ = store.List(ctx)
	latest, _ = model.MostRecent(docs)
	assert.Equal(t, "renamed", latest.Name)
	assert.True(t, latest.ModifiedAt.Equal(past.Add(time.Hour)))
}

func TestFSDocumentRepositoryIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSDocumentRepository(dir)
	require.NoError(t, err)
	require.NoError(t, writeFile(filepath.Join(dir, "notes.txt"), "hi"))
	require.NoError(t, writeFile(filepath.Join(dir, ".semester-123.tmp"), "{}"))

	docs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFSDocumentRepositoryListsDotNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFSDocumentRepository(dir)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, ".hidden", []byte("{}")))
	require.NoError(t, writeFile(filepath.Join(dir, ".semester-9.tmp"), "{}"))

	docs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ".hidden", docs[0].Name)

	data, err := store.Read(ctx, ".hidden")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func newBoltStore(t *testing.T) *BoltDocumentRepository {
	t.Helper()
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "test.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewBoltDocumentRepository(db)
	require.NoError(t, err)
	return store
}

func TestBoltDocumentRepository(t *testing.T) {
	testDocumentStore(t, newBoltStore(t))
}

func TestBoltDocumentRepositoryTracksWriteTimes(t *testing.T) {
	store := newBoltStore(t)
	ctx := context.Background()

	clock := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Write(ctx, "A", []byte(`{}`)))
	clock = clock.Add(time.Minute)
	require.NoError(t, store.Write(ctx, "B", []byte(`{}`)))
	clock = clock.Add(time.Minute)
	require.NoError(t, store.Write(ctx, "A", []byte(`{"x": {}}`)))

	docs, err := store.List(ctx)
	require.NoError(t, err)
	latest, _ := model.MostRecent(docs)
	assert.Equal(t, "A", latest.Name)
	assert.True(t, latest.ModifiedAt.Equal(clock))

	require.NoError(t, store.Rename(ctx, "B", "C"))
	docs, _ = store.List(ctx)
	prev, _ := model.MostRecent(docs, "A")
	assert.Equal(t, "C", prev.Name)
	assert.True(t, prev.ModifiedAt.Equal(clock.Add(-time.Minute)))
}
