package updater

// Grounded on the teacher's manifest.go:hashEqualsDiskFile, generalized to report a
// three-way status (present+match, present+mismatch, missing) and aggregate totals per
// spec.md §4.5, instead of the teacher's plain bool.

import (
	"os"
	"path/filepath"
)

// EntryStatus is the per-entry verdict Consistency reports.
type EntryStatus int

const (
	StatusOK EntryStatus = iota
	StatusMismatched
	StatusMissing
)

// EntryResult pairs a manifest entry's path with its verdict.
type EntryResult struct {
	Path   string
	Status EntryStatus
}

// Report aggregates a full consistency pass over a manifest.
type Report struct {
	Total      int
	Missing    int
	Mismatched int
	OK         int
	Entries    []EntryResult
}

// AllOK reports whether every entry in the manifest was in-sync.
func (r Report) AllOK() bool {
	return r.Total > 0 && r.OK == r.Total
}

// progressEvery matches spec.md §4.5 ("Emits progress every 50 entries").
const progressEvery = 50

// Consistency drives the check(manifest) -> Report operation from spec.md §4.5.
type Consistency struct {
	root     string
	algo     HashAlgorithm
	progress func(checked, total int)
}

// NewConsistency builds a Consistency checker rooted at gameDirectory, hashing with algo.
// progress, if non-nil, is invoked every 50 entries.
func NewConsistency(gameDirectory string, algo HashAlgorithm, progress func(checked, total int)) *Consistency {
	return &Consistency{root: gameDirectory, algo: algo, progress: progress}
}

// Check walks every FileEntry in m.Files and every DirEntry's Contents (resolved under the
// DirEntry's own path), plus one entry per DirEntry for the directory itself (Missing when
// absent, spec.md §4.5's independent rule, OK when present), returning the aggregate Report.
func (c *Consistency) Check(m *Manifest) Report {
	var r Report
	checked := 0

	emit := func() {
		checked++
		if c.progress != nil && checked%progressEvery == 0 {
			c.progress(checked, r.Total)
		}
	}

	r.Total = len(m.Files)
	for _, d := range m.Directories {
		r.Total++ // the directory's own path contributes independently
		r.Total += len(d.Contents)
	}

	for _, fe := range m.Files {
		status := c.checkOne(fe)
		r.record(fe.Path, status)
		emit()
	}

	for _, d := range m.Directories {
		if _, err := os.Stat(filepath.Join(c.root, d.Path)); err != nil {
			r.record(d.Path, StatusMissing)
		} else {
			r.record(d.Path, StatusOK)
		}
		emit()

		for _, fe := range d.Contents {
			// Contents paths are relative to the directory entry, as DirSync writes them.
			nested := fe
			nested.Path = filepath.ToSlash(filepath.Join(d.Path, fe.Path))
			status := c.checkOne(nested)
			r.record(nested.Path, status)
			emit()
		}
	}

	if c.progress != nil {
		c.progress(checked, r.Total)
	}
	return r
}

func (c *Consistency) checkOne(fe FileEntry) EntryStatus {
	full := filepath.Join(c.root, fe.Path)
	if _, err := os.Stat(full); err != nil {
		return StatusMissing
	}
	sum, err := HashFile(full, c.algo)
	if err != nil || sum == "" {
		return StatusMismatched
	}
	if sum == fe.Hash {
		return StatusOK
	}
	return StatusMismatched
}

func (r *Report) record(path string, status EntryStatus) {
	r.Entries = append(r.Entries, EntryResult{Path: path, Status: status})
	switch status {
	case StatusOK:
		r.OK++
	case StatusMismatched:
		r.Mismatched++
	case StatusMissing:
		r.Missing++
	}
}
