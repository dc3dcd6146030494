package updater

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresUpdateURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "updater.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"game_directory": "./game"}`), 0o664))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "updater.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"update_url": "http://example.com/manifest.json", "game_directory": "./game"}`), 0o664))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", c.GameVer)
	assert.Equal(t, string(ModeVersion), c.UpdateMode)
	assert.True(t, c.EnableFileDeletion)
	assert.True(t, c.EnableAPICache)
}

func TestLoadConfigMissingFileToleratedWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MCUPDATER_UPDATE_URL", "http://example.com/manifest.json")
	t.Setenv("MCUPDATER_GAME_DIRECTORY", "./game")

	c, err := LoadConfig(filepath.Join(dir, "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/manifest.json", c.UpdateURL)
}

func TestConfigToSettings(t *testing.T) {
	c := NewConfig()
	c.UpdateURL = "http://example.com/manifest.json"
	c.APITimeoutSeconds = 30

	s := c.ToSettings(nil)
	assert.Equal(t, "http://example.com/manifest.json", s.UpdateURL)
	assert.Equal(t, 30*time.Second, s.APITimeout)
}

func TestConfigSetGameVersionPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "updater.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"update_url": "http://example.com/manifest.json", "game_directory": "./game"}`), 0o664))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, c.SetGameVersion("2.0.0"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, "2.0.0", onDisk["version"])
	assert.Equal(t, "2.0.0", c.GameVersion())
}

func TestConfigSetLauncherVersionPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "updater.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"update_url": "http://example.com/manifest.json", "game_directory": "./game"}`), 0o664))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, c.SetLauncherVersion("0.0.2"))
	assert.Equal(t, "0.0.2", c.LauncherVersion())
}
