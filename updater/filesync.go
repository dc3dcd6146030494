package updater

// Grounded on the teacher's updater.go:downloadContentHttp (per-file reuse/copy/download
// loop), generalized to spec.md §4.6's hash-mode FileSync: write-permission probe,
// skip-if-match, download with a size-derived timeout, post-verify-as-warning, backup.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileResult is the per-entry outcome of a FileSync pass.
type FileResult struct {
	Path      string
	Skipped   bool
	Mismatch  bool // downloaded, but post-verify hash didn't match (warning, not fatal)
	Err       error
}

// FileSyncResult aggregates a FileSync.Run pass.
type FileSyncResult struct {
	Results []FileResult
}

// AllOK reports spec.md §4.6's "all_ok only if no entry was marked error".
func (r FileSyncResult) AllOK() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// FileSync drives per-file updates in hash mode (spec.md §4.6).
type FileSync struct {
	root       string
	algo       HashAlgorithm
	fetcher    *Fetcher
	forceSync  bool
	progress   func(path string, downloaded, total int64)
}

// NewFileSync builds a FileSync rooted at gameDirectory.
func NewFileSync(gameDirectory string, algo HashAlgorithm, fetcher *Fetcher, forceSync bool, progress func(path string, downloaded, total int64)) *FileSync {
	return &FileSync{root: gameDirectory, algo: algo, fetcher: fetcher, forceSync: forceSync, progress: progress}
}

// Run processes every FileEntry in order, stopping at the first failure if forceSync is
// true, otherwise recording the failure on that entry and continuing (spec.md §4.9).
func (fs *FileSync) Run(ctx context.Context, entries []FileEntry) FileSyncResult {
	var out FileSyncResult
	for _, fe := range entries {
		res := fs.syncOne(ctx, fe)
		out.Results = append(out.Results, res)
		if res.Err != nil && fs.forceSync {
			break
		}
	}
	return out
}

func (fs *FileSync) syncOne(ctx context.Context, fe FileEntry) FileResult {
	full := filepath.Join(fs.root, fe.Path)
	res := FileResult{Path: fe.Path}

	parent := filepath.Dir(full)
	if err := os.MkdirAll(parent, 0o775); err != nil {
		res.Err = newErr(KindFilesystem, "filesync.syncOne", err)
		return res
	}
	if err := probeWritable(parent); err != nil {
		res.Err = newErr(KindFilesystem, "filesync.syncOne", err)
		return res
	}

	if fe.Hash != "" {
		if sum, err := HashFile(full, fs.algo); err == nil && sum == fe.Hash {
			res.Skipped = true
			return res
		}
	}

	if err := backupFile(full); err != nil {
		// Best-effort per spec.md §3 invariant 5; not fatal.
		_ = err
	}

	var progress ProgressFunc
	if fs.progress != nil {
		throttle := NewThrottle(func(downloaded, total int64) { fs.progress(fe.Path, downloaded, total) })
		progress = throttle.Report
	}

	if err := fs.fetcher.DownloadToFile(ctx, fe.URL, full, fe.Size, progress); err != nil {
		res.Err = err
		return res
	}

	if fe.Hash != "" {
		sum, err := HashFile(full, fs.algo)
		if err != nil || sum != fe.Hash {
			// spec.md §7: a hash mismatch after download is a warning, the file is kept.
			res.Mismatch = true
		}
	}
	return res
}

// probeWritable implements spec.md §4.6's write-permission probe: create and delete a
// sentinel file in dir.
func probeWritable(dir string) error {
	sentinel := filepath.Join(dir, fmt.Sprintf(".write-probe-%d", time.Now().UnixNano()))
	f, err := os.Create(sentinel)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(sentinel)
}

// backupFile copies path to path+".backup" before it is overwritten (spec.md §3
// invariant 5). Failure is non-fatal by design; callers ignore the error.
func backupFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil // nothing to back up yet
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path+".backup", data, 0o664)
}
