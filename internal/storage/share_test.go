package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareResolveDirectFileURI(t *testing.T) {
	resolver := NewShareResolver(NewPlainStrategy(), t.TempDir(), nil)

	path, err := resolver.Resolve(context.Background(), "backup.json", "file:///data/backups/backup.json")

	require.NoError(t, err)
	assert.Equal(t, "/data/backups/backup.json", path)
}

func TestShareResolveGrantURICopiesIntoCache(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Documents"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Documents", "backup.json"), []byte(`{"version": 2}`), 0644))

	strategy := NewScopedStrategy(&stubPrompter{}, map[string]string{"primary": root})
	cacheDir := t.TempDir()
	resolver := NewShareResolver(strategy, cacheDir, nil)

	path, err := resolver.Resolve(context.Background(), "backup.json", "grant://primary/Documents/backup.json")

	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "backup.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"version": 2}`, string(data))

	// The copy lives in its own cache subdirectory.
	rel, err := filepath.Rel(cacheDir, path)
	require.NoError(t, err)
	assert.NotContains(t, rel, "..")
}

func TestShareResolveSkipsUnreadableCandidates(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "backup.json"), []byte("payload"), 0644))

	strategy := NewScopedStrategy(&stubPrompter{}, map[string]string{"primary": root})
	resolver := NewShareResolver(strategy, t.TempDir(), nil)

	path, err := resolver.Resolve(context.Background(), "backup.json",
		"",
		"grant://primary/missing/backup.json",
		"grant://primary/backup.json")

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestShareResolveNoUsableCandidate(t *testing.T) {
	strategy := NewScopedStrategy(&stubPrompter{}, map[string]string{"primary": t.TempDir()})
	resolver := NewShareResolver(strategy, t.TempDir(), nil)

	path, err := resolver.Resolve(context.Background(), "backup.json",
		"grant://primary/missing/backup.json", "")

	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestShareResolveDistinctCopiesDoNotCollide(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "backup.json"), []byte("one"), 0644))

	strategy := NewScopedStrategy(&stubPrompter{}, map[string]string{"primary": root})
	resolver := NewShareResolver(strategy, t.TempDir(), nil)

	first, err := resolver.Resolve(context.Background(), "backup.json", "grant://primary/backup.json")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "backup.json", "grant://primary/backup.json")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
