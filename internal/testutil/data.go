package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFamily writes raw JSON content to <dataDir>/<family>.json.
func WriteFamily(t *testing.T, dataDir, family, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, family+".json"), []byte(content), 0o644))
}

// CopyFixtures copies every *.json file from src into dataDir.
func CopyFixtures(t *testing.T, src, dataDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	matches, err := filepath.Glob(filepath.Join(src, "*.json"))
	require.NoError(t, err)
	for _, m := range matches {
		data, err := os.ReadFile(m)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, filepath.Base(m)), data, 0o644))
	}
}
