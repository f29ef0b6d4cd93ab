package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matperez/coderag/internal/store"
)

func newTestEngine(t *testing.T, root string) (*Engine, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e, err := New(Config{Root: root, MaxFileSize: 1 << 20, FastMtime: true, BatchSize: 10, Workers: 2}, s)
	require.NoError(t, err)
	return e, s
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexAddChangeDelete(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n\nfunc Bar() {}\n")

	e, s := newTestEngine(t, root)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, nil))
	n, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")
	require.NoError(t, e.Index(ctx, nil))
	n, err = s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	require.NoError(t, e.Index(ctx, nil))
	n, err = s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	corpusSize, err := s.GetMetadata(ctx, "corpus_size")
	require.NoError(t, err)
	assert.Equal(t, "0", corpusSize)
}

func TestIndexIgnoresIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")
	writeFile(t, root, "vendor/lib.go", "package lib\n\nfunc Skip() {}\n")

	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e, err := New(Config{
		Root: root, MaxFileSize: 1 << 20, FastMtime: true, BatchSize: 10, Workers: 2,
		IgnorePatterns: []string{"vendor/**"},
	}, s)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Index(ctx, nil))

	files, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.go", files[0].Path)
}

func TestIndexSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", "package a\n")

	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e, err := New(Config{Root: root, MaxFileSize: 2, FastMtime: true, BatchSize: 10, Workers: 2}, s)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Index(ctx, nil))

	files, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIndexRecomputesIDFAcrossFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "login.go", "package a\n\nfunc Authenticate() { Authenticate(); Authenticate() }\n")
	writeFile(t, root, "utils.go", "package a\n\nfunc Authenticate() {}\n")

	e, s := newTestEngine(t, root)
	ctx := context.Background()
	require.NoError(t, e.Index(ctx, nil))

	scores, err := s.AllIDF(ctx)
	require.NoError(t, err)
	assert.Contains(t, scores, "authenticate")
	assert.Equal(t, 2, scores["authenticate"].DocumentFrequency)
}

func TestIndexDeletingAFileDecrementsDocumentFrequencyForSharedTerms(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "login.go", "package a\n\nfunc Authenticate() {}\n")
	writeFile(t, root, "utils.go", "package a\n\nfunc Authenticate() {}\n")

	e, s := newTestEngine(t, root)
	ctx := context.Background()
	require.NoError(t, e.Index(ctx, nil))

	scores, err := s.AllIDF(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, scores["authenticate"].DocumentFrequency)

	require.NoError(t, os.Remove(filepath.Join(root, "login.go")))
	require.NoError(t, e.Index(ctx, nil))

	scores, err = s.AllIDF(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, scores["authenticate"].DocumentFrequency)
}

func TestIndexChangingAFileDropsStaleTermFromDocumentFrequency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Authenticate() {}\n")
	writeFile(t, root, "b.go", "package a\n\nfunc Authenticate() {}\n")

	e, s := newTestEngine(t, root)
	ctx := context.Background()
	require.NoError(t, e.Index(ctx, nil))

	scores, err := s.AllIDF(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, scores["authenticate"].DocumentFrequency)

	writeFile(t, root, "a.go", "package a\n\nfunc Renamed() {}\n")
	require.NoError(t, e.Index(ctx, nil))

	scores, err = s.AllIDF(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, scores["authenticate"].DocumentFrequency)
	assert.Contains(t, scores, "renamed")
}

func TestIndexWithHintRestrictsWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")
	writeFile(t, root, "b.go", "package a\n\nfunc Bar() {}\n")

	e, s := newTestEngine(t, root)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, []string{"a.go"}))

	files, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.go", files[0].Path)
}
