package updater

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistencyCheck(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o664))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mods"), 0o775))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mods", "x.jar"), []byte("jarcontent"), 0o664))

	aHash, err := HashFile(filepath.Join(dir, "a.txt"), AlgoSHA256)
	require.NoError(t, err)
	xHash, err := HashFile(filepath.Join(dir, "mods", "x.jar"), AlgoSHA256)
	require.NoError(t, err)

	m := &Manifest{
		Files: []FileEntry{
			{Path: "a.txt", Hash: aHash},
			{Path: "missing.txt", Hash: "deadbeef"},
		},
		Directories: []DirEntry{
			{Path: "mods", Contents: []FileEntry{
				{Path: "x.jar", Hash: xHash},
				{Path: "y.jar", Hash: "nomatch"},
			}},
		},
	}

	var samples int
	c := NewConsistency(dir, AlgoSHA256, func(checked, total int) { samples++ })
	r := c.Check(m)

	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 3, r.OK)
	assert.Equal(t, 0, r.Mismatched)
	assert.Equal(t, 2, r.Missing)
	assert.False(t, r.AllOK())
	assert.GreaterOrEqual(t, samples, 1, "progress callback fires at least once at the final flush")
}

func TestConsistencyAllOK(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o664))
	aHash, err := HashFile(filepath.Join(dir, "a.txt"), AlgoSHA256)
	require.NoError(t, err)

	m := &Manifest{Files: []FileEntry{{Path: "a.txt", Hash: aHash}}}
	c := NewConsistency(dir, AlgoSHA256, nil)
	r := c.Check(m)
	assert.True(t, r.AllOK())
}

func TestConsistencyEmptyManifestIsNotAllOK(t *testing.T) {
	dir := t.TempDir()
	c := NewConsistency(dir, AlgoSHA256, nil)
	r := c.Check(&Manifest{})
	assert.False(t, r.AllOK(), "an empty manifest has Total==0, which AllOK treats as not-OK rather than vacuously true")
}

func TestConsistencyDirectoryOwnPathMissing(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Directories: []DirEntry{{Path: "nope", Contents: nil}}}
	c := NewConsistency(dir, AlgoSHA256, nil)
	r := c.Check(m)
	assert.Equal(t, 1, r.Total)
	assert.Equal(t, 1, r.Missing)
}
