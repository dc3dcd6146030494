package updater

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	t.Run("rejects empty document", func(t *testing.T) {
		_, err := ParseManifest(nil)
		require.Error(t, err)
	})

	t.Run("rejects missing version", func(t *testing.T) {
		_, err := ParseManifest([]byte(`{"files": []}`))
		require.Error(t, err)
	})

	t.Run("rejects oversized document", func(t *testing.T) {
		huge := make([]byte, maxManifestSize+1)
		_, err := ParseManifest(huge)
		require.Error(t, err)
	})

	t.Run("parses a full manifest", func(t *testing.T) {
		raw := []byte(`{
			"version": "1.2.0",
			"update_mode": "hash",
			"files": [{"path": "a.txt", "url": "http://x/a.txt", "hash": "h1"}],
			"directories": [{"path": "mods", "url": "http://x/mods.zip", "contents": [{"path": "x.jar", "hash": "h2"}]}],
			"delete_list": ["old.txt"],
			"launcher": {"version": "0.0.2", "url": "http://x/launcher", "hash": "h3"},
			"incremental_packages": [{"from_version": "1.0.0", "to_version": "1.1.0", "archive": "http://x/d1"}]
		}`)
		m, err := ParseManifest(raw)
		require.NoError(t, err)
		assert.Equal(t, "1.2.0", m.Version)
		assert.Equal(t, UpdateMode("hash"), m.EffectiveMode(ModeVersion))
		assert.Len(t, m.Files, 1)
		assert.Len(t, m.Directories, 1)
		assert.Equal(t, []string{"old.txt"}, m.DeleteList)
		require.NotNil(t, m.Launcher)
		assert.Equal(t, "0.0.2", m.Launcher.Version)
		assert.Len(t, m.IncrementalPackages, 1)
	})
}

func TestEffectiveMode(t *testing.T) {
	m := &Manifest{Version: "1.0.0"}
	assert.Equal(t, ModeVersion, m.EffectiveMode(ModeVersion))
	m.UpdateMode = "hash"
	assert.Equal(t, ModeHash, m.EffectiveMode(ModeVersion))
}

func TestAllFileEntries(t *testing.T) {
	m := &Manifest{
		Files:       []FileEntry{{Path: "a.txt"}},
		Directories: []DirEntry{{Path: "mods", Contents: []FileEntry{{Path: "x.jar"}, {Path: "y.jar"}}}},
	}
	assert.Len(t, m.allFileEntries(), 3)
}

func TestBuildManifestFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o664))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o775))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o664))

	m, err := BuildManifestFromDir(dir, "1.0.0", "http://example.com/files", AlgoSHA256)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Len(t, m.Files, 2)

	byPath := map[string]FileEntry{}
	for _, fe := range m.Files {
		byPath[fe.Path] = fe
	}
	require.Contains(t, byPath, "a.txt")
	require.Contains(t, byPath, "sub/b.txt")
	assert.Equal(t, "http://example.com/files/a.txt", byPath["a.txt"].URL)
	assert.NotEmpty(t, byPath["a.txt"].Hash)
}

func TestManifestWriteAndReread(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Version: "2.0.0", Files: []FileEntry{{Path: "a.txt", Hash: "h1"}}}
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, m.Write(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	reread, err := ParseManifest(raw)
	require.NoError(t, err)
	assert.Equal(t, m.Version, reread.Version)
	assert.Equal(t, m.Files, reread.Files)
}
