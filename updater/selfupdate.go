package updater

// Grounded on the teacher's shell_windows.go (exec.Command-driven external helper) and
// monitors.go (the stop/start-service escalation idiom, generalized here to killing a
// lingering instance by name instead of a Windows service). The platform split follows the
// teacher's own _windows.go filename convention; the non-Windows half lives in
// selfupdate_unix.go under an explicit build tag since "unix" is not a recognized GOOS
// filename suffix.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const selfUpdateMinPayloadBytes = 1024 // spec.md §4.10: payloads < 1 KiB are treated as error pages

// SelfUpdater implements the updater's own replacement protocol (spec.md §4.10).
type SelfUpdater struct {
	fetcher *Fetcher
	algo    HashAlgorithm
}

// NewSelfUpdater builds a SelfUpdater using fetcher for the download and algo as the
// default hash primitive when a launcher hash string carries no explicit "algo:" prefix.
func NewSelfUpdater(fetcher *Fetcher, algo HashAlgorithm) *SelfUpdater {
	return &SelfUpdater{fetcher: fetcher, algo: algo}
}

// DownloadNew fetches url to <temp>/<exe-basename>_new, rejecting sub-1KiB payloads and
// verifying expectedHash if non-empty. expectedHash may carry an "algo:hex" prefix; absent
// a prefix, su.algo is assumed.
func (su *SelfUpdater) DownloadNew(ctx context.Context, url, expectedHash, expectedVersion string) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", newErr(KindSelfUpdate, "selfupdate.DownloadNew", err)
	}

	data, err := su.fetcher.DownloadToMemory(ctx, url, 0, nil)
	if err != nil {
		return "", newErr(KindSelfUpdate, "selfupdate.DownloadNew", err)
	}
	if len(data) < selfUpdateMinPayloadBytes {
		return "", newErr(KindSelfUpdate, "selfupdate.DownloadNew",
			fmt.Errorf("payload for version %s is only %d bytes, rejecting as an error page", expectedVersion, len(data)))
	}

	if expectedHash != "" {
		algo, hex := splitHashPrefix(expectedHash, su.algo)
		sum := HashBytes(data, algo)
		if sum != hex {
			return "", newErr(KindSelfUpdate, "selfupdate.DownloadNew",
				fmt.Errorf("hash mismatch for launcher version %s", expectedVersion))
		}
	}

	newPath := filepath.Join(os.TempDir(), filepath.Base(exePath)+"_new")
	if err := os.WriteFile(newPath, data, 0o755); err != nil {
		os.Remove(newPath)
		return "", newErr(KindSelfUpdate, "selfupdate.DownloadNew", err)
	}
	return newPath, nil
}

// splitHashPrefix parses an optional "algo:hex" prefix off hash, defaulting to fallback.
func splitHashPrefix(hash string, fallback HashAlgorithm) (HashAlgorithm, string) {
	if algo, hex, ok := strings.Cut(hash, ":"); ok {
		switch HashAlgorithm(algo) {
		case AlgoMD5, AlgoSHA1, AlgoSHA256:
			return HashAlgorithm(algo), hex
		}
	}
	return fallback, hash
}

// ApplyUpdate materializes and launches a detached helper that waits for this process to
// exit, replaces the running executable with newPath, relaunches it in workDir with
// configPath, and removes itself. The caller should sleep briefly and exit (spec.md §4.10).
func (su *SelfUpdater) ApplyUpdate(newPath, workDir, configPath string) error {
	exePath, err := os.Executable()
	if err != nil {
		return newErr(KindSelfUpdate, "selfupdate.ApplyUpdate", err)
	}
	if err := launchSelfUpdateHelper(os.Getpid(), exePath, newPath, workDir, configPath); err != nil {
		return newErr(KindSelfUpdate, "selfupdate.ApplyUpdate", err)
	}
	return nil
}
