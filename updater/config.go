package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IMQS/log"
	"github.com/spf13/viper"
)

// DefaultConfigPath matches spec.md §6 ("config/updater.json by default").
const DefaultConfigPath = "config/updater.json"

// Config is the on-disk representation of spec.md §6's recognized options. It is loaded
// once via LoadConfig (grounded on celestiaorg-popsigner's viper-based config.Load), then
// converted to an immutable Settings via ToSettings. Config also implements Store, so the
// two fields that get rewritten mid-run (GameVer, LauncherVer) go back through the same
// viper-backed file — this is the "key/value on disk" collaborator spec.md §1 calls out of
// scope for the synchronization engine itself, kept narrow and swappable behind Store.
type Config struct {
	GameVer               string  `mapstructure:"version" json:"version"`
	LauncherVer           string  `mapstructure:"launcher_version" json:"launcher_version"`
	UpdateURL             string  `mapstructure:"update_url" json:"update_url"`
	GameDirectory         string  `mapstructure:"game_directory" json:"game_directory"`
	AutoUpdate            bool    `mapstructure:"auto_update" json:"auto_update"`
	LogFile               string  `mapstructure:"log_file" json:"log_file"`
	UpdateMode            string  `mapstructure:"update_mode" json:"update_mode"`
	HashAlgorithm         string  `mapstructure:"hash_algorithm" json:"hash_algorithm"`
	EnableFileDeletion    bool    `mapstructure:"enable_file_deletion" json:"enable_file_deletion"`
	SkipMajorVersionCheck bool    `mapstructure:"skip_major_version_check" json:"skip_major_version_check"`
	EnableAPICache        bool    `mapstructure:"enable_api_cache" json:"enable_api_cache"`
	APITimeoutSeconds     float64 `mapstructure:"api_timeout" json:"api_timeout"`

	path string
	mu   sync.Mutex
}

// NewConfig returns a Config carrying spec.md §6's documented defaults.
func NewConfig() *Config {
	return &Config{
		GameVer:            "1.0.0",
		LauncherVer:        "0.0.1",
		GameDirectory:      "./.minecraft",
		AutoUpdate:         true,
		LogFile:            "./logs/updater.log",
		UpdateMode:         string(ModeVersion),
		HashAlgorithm:      string(AlgoMD5),
		EnableFileDeletion: true,
		EnableAPICache:     true,
		APITimeoutSeconds:  60,
	}
}

func setConfigDefaults(v *viper.Viper) {
	d := NewConfig()
	v.SetDefault("version", d.GameVer)
	v.SetDefault("launcher_version", d.LauncherVer)
	v.SetDefault("update_url", "")
	v.SetDefault("game_directory", d.GameDirectory)
	v.SetDefault("auto_update", d.AutoUpdate)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("update_mode", d.UpdateMode)
	v.SetDefault("hash_algorithm", d.HashAlgorithm)
	v.SetDefault("enable_file_deletion", d.EnableFileDeletion)
	v.SetDefault("skip_major_version_check", d.SkipMajorVersionCheck)
	v.SetDefault("enable_api_cache", d.EnableAPICache)
	v.SetDefault("api_timeout", d.APITimeoutSeconds)
}

// LoadConfig reads filename (JSON) through viper, applying defaults for any missing key
// and allowing MCUPDATER_* environment overrides, then validates the two fields spec.md §6
// calls a fatal startup error when empty.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("json")
	setConfigDefaults(v)

	v.SetEnvPrefix("MCUPDATER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, newErr(KindConfig, "config.LoadConfig", err)
		}
		// A missing config file is tolerated; defaults + env vars apply. UpdateURL and
		// GameDirectory will then fail validation below unless env vars supplied them.
	}

	c := &Config{path: filename}
	if err := v.Unmarshal(c); err != nil {
		return nil, newErr(KindConfig, "config.LoadConfig", err)
	}

	if c.UpdateURL == "" {
		return nil, newErr(KindConfig, "config.LoadConfig", fmt.Errorf("update_url is required"))
	}
	if c.GameDirectory == "" {
		return nil, newErr(KindConfig, "config.LoadConfig", fmt.Errorf("game_directory is required"))
	}
	return c, nil
}

// ToSettings builds the immutable Settings record components are constructed from.
func (c *Config) ToSettings(logger *log.Logger) Settings {
	return Settings{
		UpdateURL:             c.UpdateURL,
		GameDirectory:         filepath.Clean(c.GameDirectory),
		AutoUpdate:            c.AutoUpdate,
		LogFile:               c.LogFile,
		UpdateMode:            UpdateMode(c.UpdateMode),
		HashAlgorithm:         HashAlgorithm(c.HashAlgorithm),
		EnableFileDeletion:    c.EnableFileDeletion,
		SkipMajorVersionCheck: c.SkipMajorVersionCheck,
		EnableAPICache:        c.EnableAPICache,
		APITimeout:            time.Duration(c.APITimeoutSeconds * float64(time.Second)),
		Log:                   logger,
	}
}

// GameVersion implements Store.
func (c *Config) GameVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GameVer
}

// SetGameVersion implements Store, persisting the new value back to disk.
func (c *Config) SetGameVersion(version string) error {
	c.mu.Lock()
	c.GameVer = version
	c.mu.Unlock()
	return c.persist()
}

// LauncherVersion implements Store.
func (c *Config) LauncherVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LauncherVer
}

// SetLauncherVersion implements Store, persisting the new value back to disk.
func (c *Config) SetLauncherVersion(version string) error {
	c.mu.Lock()
	c.LauncherVer = version
	c.mu.Unlock()
	return c.persist()
}

// persist rewrites the whole config document. Best-effort: spec.md treats the config
// store as an external collaborator, so a write failure here is logged by the caller
// (Orchestrator) rather than treated as a hard synchronization failure.
func (c *Config) persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, raw, 0o644)
}
