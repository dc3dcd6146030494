package updater

import (
	"time"

	"github.com/IMQS/log"
)

// HashAlgorithm names one of the three hash primitives the Hasher understands.
type HashAlgorithm string

const (
	AlgoMD5    HashAlgorithm = "md5"
	AlgoSHA1   HashAlgorithm = "sha1"
	AlgoSHA256 HashAlgorithm = "sha256"
)

// UpdateMode is the client's preferred synchronization strategy. The manifest's own
// update_mode field, when present and non-empty, overrides this per run (spec §4.9).
type UpdateMode string

const (
	ModeHash    UpdateMode = "hash"
	ModeVersion UpdateMode = "version"
)

// Settings is the single immutable configuration record threaded into every component,
// replacing the pattern (seen in the teacher's Updater/Config pair) of passing a mutable
// *Config around and re-reading it inside every method. Construct one with
// Config.ToSettings or DefaultSettings and never mutate it after components are built from it.
type Settings struct {
	UpdateURL            string
	GameDirectory        string
	AutoUpdate           bool
	LogFile              string
	UpdateMode           UpdateMode
	HashAlgorithm        HashAlgorithm
	EnableFileDeletion   bool
	SkipMajorVersionCheck bool
	EnableAPICache       bool
	APITimeout           time.Duration

	Log *log.Logger
}

// Store is the narrow persisted key/value interface spec.md treats as an external
// collaborator (§1 "Out of scope: configuration persistence"). Anything backing it
// (a JSON file, viper, a registry key) only needs to satisfy this.
type Store interface {
	GameVersion() string
	SetGameVersion(string) error
	LauncherVersion() string
	SetLauncherVersion(string) error
}

// DefaultSettings mirrors the documented defaults in spec.md §6.
func DefaultSettings() Settings {
	return Settings{
		GameDirectory:      "./.minecraft",
		AutoUpdate:         true,
		LogFile:            "./logs/updater.log",
		UpdateMode:         ModeVersion,
		HashAlgorithm:      AlgoMD5,
		EnableFileDeletion: true,
		EnableAPICache:     true,
		APITimeout:         60 * time.Second,
	}
}
