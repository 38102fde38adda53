package data

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"describe-service/internal/biz"
	"describe-service/internal/conf"

	"github.com/stretchr/testify/require"
)

func TestArtifactStoreGenerate(t *testing.T) {
	dir := t.TempDir()
	store := NewArtifactStore(&conf.Bootstrap{Artifact: &conf.Artifact{Dir: dir, BaseURL: "http://localhost:8000/"}}, testLogger())

	url, err := store.Generate(context.Background(), []*biz.ArtifactRow{
		{Filename: "a.png", Description: "a cat, sitting", Confidence: 95, Source: "ideogram"},
		{Filename: "b.png", Description: "a \"quoted\" dog", Confidence: 80, Source: "gemini"},
		{Filename: "=HYPERLINK(\"http://x\").png", Description: "+1 on the left, -2 on the right", Confidence: 70, Source: "@gemini"},
	}, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8000/files/descriptions-20260501-120000-"), url)

	name := strings.TrimPrefix(url, "http://localhost:8000/files/")
	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Filename", "Description", "Confidence", "Source"},
		{"a.png", "a cat, sitting", "95", "ideogram"},
		{"b.png", "a \"quoted\" dog", "80", "gemini"},
		{"'=HYPERLINK(\"http://x\").png", "'+1 on the left, -2 on the right", "70", "'@gemini"},
	}, records)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestArtifactStoreGenerateEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewArtifactStore(&conf.Bootstrap{Artifact: &conf.Artifact{Dir: dir}}, testLogger())

	url, err := store.Generate(context.Background(), nil, time.Now())
	require.NoError(t, err)
	require.Empty(t, url)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestArtifactStoreCleanup(t *testing.T) {
	dir := t.TempDir()
	store := NewArtifactStore(&conf.Bootstrap{Artifact: &conf.Artifact{Dir: dir}}, testLogger())

	fresh, err := store.Generate(context.Background(), []*biz.ArtifactRow{{Filename: "a.png"}}, time.Now())
	require.NoError(t, err)

	old := filepath.Join(dir, "descriptions-old.csv")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		past := time.Now().Add(-48 * time.Hour)
		require.NoError(t, os.Chtimes(p, past, past))
	}

	removed, err := store.Cleanup(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	require.NoFileExists(t, old)
	require.FileExists(t, other)
	require.FileExists(t, filepath.Join(dir, strings.TrimPrefix(fresh, "/files/")))
}

func TestArtifactStoreCleanupMissingDir(t *testing.T) {
	store := NewArtifactStore(&conf.Bootstrap{Artifact: &conf.Artifact{Dir: filepath.Join(t.TempDir(), "missing")}}, testLogger())
	removed, err := store.Cleanup(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 0, removed)
}
