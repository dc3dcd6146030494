package updater

// Grounded on the teacher's syncdir.go (the LocalPath/LocalPathNext staging concept) and
// updater.go's directory orchestration, generalized to spec.md §4.7's archive-based
// DirSync: download archive, extract to staging, hash-verify, copy into target, delete
// orphans, clean staging.

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

var stagingCounter uint64

// nextStagingCounter hands out a monotonically increasing id for newStagingDir, so two
// staging directories created within the same process in the same nanosecond still differ.
func nextStagingCounter() uint64 {
	return atomic.AddUint64(&stagingCounter, 1)
}

// DirResult is the per-directory outcome of a DirSync pass.
type DirResult struct {
	Path            string
	Removed         []string // orphan files deleted, relative to Path
	MismatchedPaths []string // staged files whose hash didn't match the manifest (warning, not fatal)
	Err             error
}

// DirSyncResult aggregates a DirSync.Run pass.
type DirSyncResult struct {
	Results []DirResult
}

// AllOK mirrors FileSyncResult.AllOK for symmetry in the Orchestrator.
func (r DirSyncResult) AllOK() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// DirSync drives per-directory updates in hash mode (spec.md §4.7).
type DirSync struct {
	root               string
	algo               HashAlgorithm
	fetcher            *Fetcher
	forceSync          bool
	enableFileDeletion bool
	progress           func(path string, downloaded, total int64)
}

// NewDirSync builds a DirSync rooted at gameDirectory.
func NewDirSync(gameDirectory string, algo HashAlgorithm, fetcher *Fetcher, forceSync, enableFileDeletion bool, progress func(path string, downloaded, total int64)) *DirSync {
	return &DirSync{
		root:               gameDirectory,
		algo:               algo,
		fetcher:            fetcher,
		forceSync:          forceSync,
		enableFileDeletion: enableFileDeletion,
		progress:           progress,
	}
}

// Run processes every DirEntry, in order, per spec.md §4.7 and §5 ordering guarantee (ii):
// this is always called after FileSync completes in hash mode.
func (ds *DirSync) Run(ctx context.Context, entries []DirEntry) DirSyncResult {
	var out DirSyncResult
	for _, de := range entries {
		res := ds.syncOne(ctx, de)
		out.Results = append(out.Results, res)
		if res.Err != nil && ds.forceSync {
			break
		}
	}
	return out
}

func (ds *DirSync) syncOne(ctx context.Context, de DirEntry) DirResult {
	res := DirResult{Path: de.Path}
	target := filepath.Join(ds.root, de.Path)

	staging, err := newStagingDir()
	if err != nil {
		res.Err = newErr(KindFilesystem, "dirsync.syncOne", err)
		return res
	}
	defer os.RemoveAll(staging)

	var progress ProgressFunc
	if ds.progress != nil {
		throttle := NewThrottle(func(downloaded, total int64) { ds.progress(de.Path, downloaded, total) })
		progress = throttle.Report
	}

	archiveBytes, err := ds.fetcher.DownloadToMemory(ctx, de.URL, 0, progress)
	if err != nil {
		res.Err = err
		return res
	}

	archivePath := filepath.Join(staging, "archive.zip")
	if err := os.WriteFile(archivePath, archiveBytes, 0o664); err != nil {
		res.Err = newErr(KindFilesystem, "dirsync.syncOne", err)
		return res
	}

	extractDir := filepath.Join(staging, "extracted")
	if err := ExtractArchive(archivePath, extractDir); err != nil {
		res.Err = err
		return res
	}

	if err := os.MkdirAll(target, 0o775); err != nil {
		res.Err = newErr(KindFilesystem, "dirsync.syncOne", err)
		return res
	}

	expected := make(map[string]bool, len(de.Contents))
	for _, fe := range de.Contents {
		normalized := filepath.ToSlash(fe.Path)
		expected[normalized] = true

		stagedPath := filepath.Join(extractDir, filepath.FromSlash(fe.Path))
		if _, err := os.Stat(stagedPath); err != nil {
			res.Err = newErr(KindFilesystem, "dirsync.syncOne", fmt.Errorf("staged file missing: %s", fe.Path))
			if ds.forceSync {
				return res
			}
			continue
		}
		if fe.Hash != "" {
			if sum, err := HashFile(stagedPath, ds.algo); err != nil || sum != fe.Hash {
				// warning only, per spec.md §7 — copy proceeds regardless, and any real
				// res.Err already set earlier in this loop (e.g. a missing staged file)
				// must survive rather than be cleared here.
				res.MismatchedPaths = append(res.MismatchedPaths, fe.Path)
			}
		}

		destPath := filepath.Join(target, filepath.FromSlash(fe.Path))
		if err := os.MkdirAll(filepath.Dir(destPath), 0o775); err != nil {
			res.Err = newErr(KindFilesystem, "dirsync.syncOne", err)
			if ds.forceSync {
				return res
			}
			continue
		}
		if err := copyFileOverwrite(stagedPath, destPath); err != nil {
			res.Err = newErr(KindFilesystem, "dirsync.syncOne", err)
			if ds.forceSync {
				return res
			}
		}
	}

	if ds.enableFileDeletion {
		removed, err := removeOrphans(target, expected)
		if err != nil {
			res.Err = newErr(KindFilesystem, "dirsync.syncOne", err)
		}
		res.Removed = removed
	}

	return res
}

// removeOrphans deletes every regular file under root not named in expected (relative
// paths normalized to "/", per spec.md §4.7 step 5). Files ending in ".backup" are never
// removed.
func removeOrphans(root string, expected map[string]bool) ([]string, error) {
	var removed []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if strings.HasSuffix(rel, ".backup") {
			return nil
		}
		if !expected[rel] {
			if rerr := os.Remove(path); rerr == nil {
				removed = append(removed, rel)
			}
		}
		return nil
	})
	return removed, err
}

func copyFileOverwrite(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o664)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// newStagingDir creates a unique temp-local tree, namespaced by process id, a monotonic
// counter, and a uuid for extra collision resistance (spec.md §6; uuid usage grounded on
// google/uuid across the wider example pack — see SPEC_FULL.md §1).
func newStagingDir() (string, error) {
	name := fmt.Sprintf("mcupdater-%d-%d-%s", os.Getpid(), nextStagingCounter(), uuid.NewString())
	dir := filepath.Join(os.TempDir(), name)
	if err := os.MkdirAll(dir, 0o775); err != nil {
		return "", err
	}
	return dir, nil
}
