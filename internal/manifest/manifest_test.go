// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOpen_CreatesDatabase(t *testing.T) {
	_, dir := testStore(t)
	_, err := os.Stat(filepath.Join(dir, FileName))
	assert.NoError(t, err)
}

func TestOpen_CreatesMissingOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()
	assert.DirExists(t, dir)
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), Record{Source: "a.pdf", Digest: "d1", Engine: "native", MarkdownPath: "a.md"}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	r, err := s.Lookup(context.Background(), "a.pdf")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "d1", r.Digest)
}

func TestLookup_Missing(t *testing.T) {
	s, _ := testStore(t)
	r, err := s.Lookup(context.Background(), "nothing.pdf")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestPut_Upserts(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, Record{Source: "a.pdf", Digest: "old", Engine: "native", MarkdownPath: "a.md", ConvertedAt: at}))
	require.NoError(t, s.Put(ctx, Record{Source: "a.pdf", Digest: "new", Engine: "gemini", MarkdownPath: "a.md", ConvertedAt: at.Add(time.Hour)}))

	r, err := s.Lookup(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "new", r.Digest)
	assert.Equal(t, "gemini", r.Engine)
	assert.True(t, r.ConvertedAt.Equal(at.Add(time.Hour)))
}

func TestUnchanged(t *testing.T) {
	s, dir := testStore(t)
	ctx := context.Background()
	md := filepath.Join(dir, "a.md")
	writeFile(t, md, "# a\n")
	require.NoError(t, s.Put(ctx, Record{Source: "a.pdf", Digest: "d1", Engine: "native", MarkdownPath: md}))

	ok, err := s.Unchanged(ctx, "a.pdf", "d1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Unchanged(ctx, "a.pdf", "d2")
	require.NoError(t, err)
	assert.False(t, ok, "different content")

	ok, err = s.Unchanged(ctx, "b.pdf", "d1")
	require.NoError(t, err)
	assert.False(t, ok, "never recorded")

	require.NoError(t, os.Remove(md))
	ok, err = s.Unchanged(ctx, "a.pdf", "d1")
	require.NoError(t, err)
	assert.False(t, ok, "markdown deleted")
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, "hello")
	writeFile(t, b, "hello!")

	da, err := Digest(a)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", da)

	db, err := Digest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)

	_, err = Digest(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
