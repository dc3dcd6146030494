package updater

// Orchestrator is the updater.Updater of this package: grounded on the teacher's
// Updater struct and its Run/Download/Apply loop (updater.go), generalized from a fixed
// two-directory hash-sync into the full mode-dispatching decision tree spec.md §4.9
// describes. beforeSync/afterSync's service-stop/start idiom (monitors.go) has no
// equivalent here — there is no companion service process to pause — so it is not carried
// forward; see DESIGN.md.

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/IMQS/log"
)

// Orchestrator drives check_for_updates / force_update (spec.md §4.9).
type Orchestrator struct {
	settings Settings
	store    Store
	fetcher  *Fetcher
	log      *log.Logger

	cachedManifest *Manifest
}

// NewOrchestrator builds an Orchestrator. store persists GameVersion/LauncherVersion
// across runs; it is the "external collaborator" spec.md §1 keeps out of this package's
// core scope.
func NewOrchestrator(settings Settings, store Store) *Orchestrator {
	return &Orchestrator{
		settings: settings,
		store:    store,
		fetcher:  NewFetcher(settings),
		log:      settings.Log,
	}
}

// manifest fetches and parses the remote manifest, honoring enable_api_cache within one
// Orchestrator's lifetime (spec.md §4.4).
func (o *Orchestrator) manifest(ctx context.Context) (*Manifest, error) {
	if o.settings.EnableAPICache && o.cachedManifest != nil {
		return o.cachedManifest, nil
	}
	raw, err := o.fetcher.GetText(ctx, o.settings.UpdateURL)
	if err != nil {
		return nil, newErr(KindNetwork, "orchestrator.manifest", err)
	}
	m, err := ParseManifest(raw)
	if err != nil {
		return nil, err
	}
	o.cachedManifest = m
	return m, nil
}

// invalidateCache drops the cached manifest, called after any version commit (spec.md §4.9
// "version-commit side effects: invalidate manifest cache").
func (o *Orchestrator) invalidateCache() {
	o.cachedManifest = nil
}

// LastChangelog returns the changelog entries from the most recently fetched manifest, or
// nil if no manifest has been fetched yet. Lets the CLI surface the changelog a CheckForUpdates
// call already logged, without re-fetching the manifest.
func (o *Orchestrator) LastChangelog() []string {
	if o.cachedManifest == nil {
		return nil
	}
	return o.cachedManifest.Changelog
}

// CheckForUpdates implements spec.md §4.9's check_for_updates.
func (o *Orchestrator) CheckForUpdates(ctx context.Context) (bool, error) {
	m, err := o.manifest(ctx)
	if err != nil {
		return false, err
	}

	if m.Launcher != nil && Newer(m.Launcher.Version, o.store.LauncherVersion()) {
		if err := o.runSelfUpdate(ctx, m.Launcher); err != nil {
			o.log.Errorf("Self-update failed, continuing with game update: %v", err)
		}
		// runSelfUpdate exits the process on success; reaching here means it failed and
		// rolled back, so the game update may still proceed (spec.md §7).
	}

	mode := m.EffectiveMode(o.settings.UpdateMode)
	local := o.store.GameVersion()

	o.warnIfCrossingManyVersions(m.Version, local)

	switch mode {
	case ModeHash:
		report := NewConsistency(o.settings.GameDirectory, o.settings.HashAlgorithm, nil).Check(m)
		inconsistent := !report.AllOK()
		switch {
		case Newer(m.Version, local) && inconsistent:
			return true, nil
		case m.Version == local && inconsistent:
			return true, nil
		case Newer(local, m.Version) && inconsistent:
			return o.confirmRepair(), nil
		default:
			return false, nil
		}
	default: // ModeVersion
		if Newer(m.Version, local) {
			o.logChangelog(m.Changelog)
			return true, nil
		}
		return false, nil
	}
}

// logChangelog logs the manifest's changelog entries at Info level when a newer version is
// found (spec.md's supplemental changelog-display feature, grounded on the original's
// UpdateChecker::DisplayChangelog — called only from the version-mode "remote newer" branch,
// never from hash mode, which has no equivalent call in the original either).
func (o *Orchestrator) logChangelog(changelog []string) {
	if len(changelog) == 0 {
		return
	}
	o.log.Infof("Changelog:")
	for _, line := range changelog {
		o.log.Infof("- %s", line)
	}
}

// warnIfCrossingManyVersions logs spec.md §9's informational "cross many versions"
// message; it never alters the update path (explicit Open Question decision, see
// SPEC_FULL.md §4).
func (o *Orchestrator) warnIfCrossingManyVersions(remote, local string) {
	r, l := splitTriple(remote), splitTriple(local)
	if r[0] != l[0] || (r[1]-l[1]) >= 3 {
		o.log.Infof("Update from %s to %s crosses many versions", local, remote)
	}
}

// confirmRepair prompts on stdin when remote < local but the directory is inconsistent
// (spec.md §4.9's "user confirms 'repair'" clause). It is called only from
// CheckForUpdates. When stdin is not a terminal it returns false without asking, since a
// repair decision cannot be silently assumed.
func (o *Orchestrator) confirmRepair() bool {
	if !isInteractive() {
		return false
	}
	fmt.Print("Local game version is newer than the manifest, but local files are inconsistent. Repair? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// ForceUpdate implements spec.md §4.9's force_update.
func (o *Orchestrator) ForceUpdate(ctx context.Context, forceSync bool) (bool, error) {
	m, err := o.manifest(ctx)
	if err != nil {
		return false, err
	}

	if !o.settings.AutoUpdate && !o.confirmProceed(m) {
		return false, nil
	}

	mode := m.EffectiveMode(o.settings.UpdateMode)
	var ok bool
	switch mode {
	case ModeHash:
		ok = o.forceUpdateHash(ctx, m, forceSync)
	default:
		ok = o.forceUpdateVersion(ctx, m, forceSync)
	}

	if ok {
		if err := o.store.SetGameVersion(m.Version); err != nil {
			o.log.Errorf("Failed to commit new version %s: %v", m.Version, err)
		}
		o.invalidateCache()
	}
	return ok, nil
}

func (o *Orchestrator) confirmProceed(m *Manifest) bool {
	if !isInteractive() {
		return o.settings.AutoUpdate
	}
	fmt.Printf("Update to version %s available. Apply now? [y/N]: ", m.Version)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// forceUpdateHash runs FileSync then DirSync, applying delete_list first when
// enable_file_deletion is on (spec.md §5 ordering guarantees (i) and (ii)).
func (o *Orchestrator) forceUpdateHash(ctx context.Context, m *Manifest, forceSync bool) bool {
	if o.settings.EnableFileDeletion {
		o.applyDeleteList(m.DeleteList)
	}

	fileProgress := func(path string, downloaded, total int64) {
		o.log.Debugf("%s: %d/%d", path, downloaded, total)
	}

	var fileResult FileSyncResult
	_ = RunWithMonitor(ctx, func(ctx context.Context) error {
		fs := NewFileSync(o.settings.GameDirectory, o.settings.HashAlgorithm, o.fetcher, forceSync, fileProgress)
		fileResult = fs.Run(ctx, m.Files)
		return nil
	}, func() { o.log.Infof("Still syncing files under %s", o.settings.GameDirectory) })

	if !fileResult.AllOK() && forceSync {
		o.log.Errorf("FileSync aborted under force_sync")
		return false
	}

	var dirResult DirSyncResult
	_ = RunWithMonitor(ctx, func(ctx context.Context) error {
		ds := NewDirSync(o.settings.GameDirectory, o.settings.HashAlgorithm, o.fetcher, forceSync, o.settings.EnableFileDeletion, fileProgress)
		dirResult = ds.Run(ctx, m.Directories)
		return nil
	}, func() { o.log.Infof("Still syncing directories under %s", o.settings.GameDirectory) })

	if !dirResult.AllOK() && forceSync {
		o.log.Errorf("DirSync aborted under force_sync")
		return false
	}

	return fileResult.AllOK() && dirResult.AllOK()
}

// applyDeleteList removes every path the manifest names, relative to the game directory.
func (o *Orchestrator) applyDeleteList(paths []string) {
	for _, rel := range paths {
		full := o.settings.GameDirectory + string(os.PathSeparator) + rel
		if err := os.RemoveAll(full); err != nil && !os.IsNotExist(err) {
			o.log.Warnf("Failed to delete %s: %v", rel, err)
		}
	}
}

// forceUpdateVersion implements the version-mode branch: prefer an incremental chain when
// one is available and reachable, falling back to a full version-mode update on any
// incremental failure (spec.md §4.9, §7 PlanError is non-fatal).
func (o *Orchestrator) forceUpdateVersion(ctx context.Context, m *Manifest, forceSync bool) bool {
	local := o.store.GameVersion()
	if len(m.IncrementalPackages) > 0 && Newer(m.Version, local) {
		chain := PlanIncremental(m.IncrementalPackages, local, m.Version)
		if len(chain) > 0 {
			packages := resolvePackages(m.IncrementalPackages, chain)
			applier := NewIncrementalApplier(o.settings.GameDirectory, o.settings.HashAlgorithm, o.fetcher)
			progress := func(step, total int) { o.log.Infof("Applying incremental package %d/%d", step, total) }
			if err := applier.ApplyChain(ctx, packages, progress); err == nil {
				return true
			} else {
				o.log.Warnf("Incremental update failed, falling back to full update: %v", err)
			}
		}
	}
	return o.forceUpdateFull(ctx, m, forceSync)
}

// resolvePackages maps the archive URLs PlanIncremental returned back to their full
// Package records, preserving order.
func resolvePackages(all []Package, archives []string) []Package {
	byArchive := make(map[string]Package, len(all))
	for _, p := range all {
		byArchive[p.Archive] = p
	}
	out := make([]Package, 0, len(archives))
	for _, a := range archives {
		if p, ok := byArchive[a]; ok {
			out = append(out, p)
		}
	}
	return out
}

// forceUpdateFull implements the legacy full version-mode path: directory-shaped
// FileEntries (type == "directory") are downloaded and extracted, plain files are backed
// up and downloaded, and every DirEntry is downloaded and extracted (spec.md §4.9).
func (o *Orchestrator) forceUpdateFull(ctx context.Context, m *Manifest, forceSync bool) bool {
	allOK := true

	for _, fe := range m.Files {
		if fe.Type == "directory" {
			if err := o.downloadAndExtract(ctx, fe.URL, fe.Path); err != nil {
				o.log.Errorf("Failed to update directory entry %s: %v", fe.Path, err)
				allOK = false
				if forceSync {
					return false
				}
				continue
			}
			continue
		}

		full := o.settings.GameDirectory + string(os.PathSeparator) + fe.Path
		_ = backupFile(full)
		if err := o.fetcher.DownloadToFile(ctx, fe.URL, full, fe.Size, nil); err != nil {
			o.log.Errorf("Failed to download %s: %v", fe.Path, err)
			allOK = false
			if forceSync {
				return false
			}
		}
	}

	for _, de := range m.Directories {
		if err := o.downloadAndExtract(ctx, de.URL, de.Path); err != nil {
			o.log.Errorf("Failed to update directory %s: %v", de.Path, err)
			allOK = false
			if forceSync {
				return false
			}
		}
	}

	return allOK
}

func (o *Orchestrator) downloadAndExtract(ctx context.Context, url, relPath string) error {
	staging, err := newStagingDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	data, err := o.fetcher.DownloadToMemory(ctx, url, 0, nil)
	if err != nil {
		return err
	}
	archivePath := staging + string(os.PathSeparator) + "archive.zip"
	if err := os.WriteFile(archivePath, data, 0o664); err != nil {
		return newErr(KindFilesystem, "orchestrator.downloadAndExtract", err)
	}

	target := o.settings.GameDirectory + string(os.PathSeparator) + relPath
	return ExtractArchive(archivePath, target)
}

// runSelfUpdate implements spec.md §4.10's launcher-update sequence: download, verify,
// commit launcher_version, apply, exit. A failure anywhere before apply leaves
// launcher_version untouched; a failure in apply rolls the commit back.
func (o *Orchestrator) runSelfUpdate(ctx context.Context, launcher *Launcher) error {
	su := NewSelfUpdater(o.fetcher, o.settings.HashAlgorithm)

	newPath, err := su.DownloadNew(ctx, launcher.URL, launcher.Hash, launcher.Version)
	if err != nil {
		return err
	}

	previous := o.store.LauncherVersion()
	if err := o.store.SetLauncherVersion(launcher.Version); err != nil {
		os.Remove(newPath)
		return newErr(KindSelfUpdate, "orchestrator.runSelfUpdate", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}
	if err := su.ApplyUpdate(newPath, workDir, DefaultConfigPath); err != nil {
		if rerr := o.store.SetLauncherVersion(previous); rerr != nil {
			o.log.Errorf("Failed to roll back launcher_version after apply failure: %v", rerr)
		}
		return err
	}

	o.log.Infof("Self-update to %s staged, exiting", launcher.Version)
	os.Exit(0)
	return nil
}
