package updater

// This deals with parsing the remote manifest JSON into typed records. Grounded on the
// teacher's own manifest.go (BuildManifest / ReadManifest / JSON-tagged structs), generalized
// from a flat {Files} shape into the full record set spec.md §3 describes.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxManifestSize is the 10 MiB ceiling spec.md §4.4 applies to a fetched manifest document.
const maxManifestSize = 10 * 1024 * 1024

// FileEntry is one file the manifest declares, whether standalone or nested under a
// DirEntry's Contents.
type FileEntry struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Hash string `json:"hash"`
	Size int64  `json:"size,omitempty"`
	// Type distinguishes a directory-shaped "file" entry in the legacy version-mode full
	// update path (spec.md §4.9: "for each FileEntry, if type == 'directory', invoke a
	// download-and-extract"). Empty means a regular file.
	Type string `json:"type,omitempty"`
}

// DirEntry is one archive-backed directory the manifest declares.
type DirEntry struct {
	Path     string      `json:"path"`
	URL      string      `json:"url"`
	Contents []FileEntry `json:"contents"`
}

// Launcher describes a replacement for the updater binary itself.
type Launcher struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	Hash    string `json:"hash"`
}

// Package is one incremental (delta) archive between two versions.
type Package struct {
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
	Archive     string `json:"archive"`
	Hash        string `json:"hash,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Manifest is the immutable snapshot fetched per orchestration run (spec.md §3).
type Manifest struct {
	Version              string      `json:"version"`
	UpdateMode           string      `json:"update_mode,omitempty"`
	Files                []FileEntry `json:"files,omitempty"`
	Directories          []DirEntry  `json:"directories,omitempty"`
	DeleteList           []string    `json:"delete_list,omitempty"`
	Launcher             *Launcher   `json:"launcher,omitempty"`
	IncrementalPackages  []Package   `json:"incremental_packages,omitempty"`
	Changelog            []string    `json:"changelog,omitempty"`
}

// Write marshals m as indented JSON to path.
func (m *Manifest) Write(path string) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return newErr(KindManifest, "manifest.Write", err)
	}
	return os.WriteFile(path, raw, 0o664)
}

// ParseManifest parses raw JSON into a Manifest, rejecting documents larger than
// maxManifestSize, empty bodies, and documents missing a version (spec.md §4.4).
func ParseManifest(raw []byte) (*Manifest, error) {
	if len(raw) == 0 {
		return nil, newErr(KindManifest, "manifest.ParseManifest", fmt.Errorf("empty manifest document"))
	}
	if len(raw) > maxManifestSize {
		return nil, newErr(KindManifest, "manifest.ParseManifest", fmt.Errorf("manifest exceeds %d bytes", maxManifestSize))
	}
	m := &Manifest{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, newErr(KindManifest, "manifest.ParseManifest", err)
	}
	if m.Version == "" {
		return nil, newErr(KindManifest, "manifest.ParseManifest", fmt.Errorf("manifest missing required field: version"))
	}
	return m, nil
}

// EffectiveMode resolves spec.md §4.9's mode override: the manifest's own update_mode wins
// when present and non-empty, otherwise the client's configured preference applies.
func (m *Manifest) EffectiveMode(configured UpdateMode) UpdateMode {
	if m.UpdateMode != "" {
		return UpdateMode(m.UpdateMode)
	}
	return configured
}

// allFileEntries returns every FileEntry the manifest names, standalone and nested under
// directories, in manifest order. Nested entries keep their directory-relative paths.
func (m *Manifest) allFileEntries() []FileEntry {
	out := make([]FileEntry, 0, len(m.Files))
	out = append(out, m.Files...)
	for _, d := range m.Directories {
		out = append(out, d.Contents...)
	}
	return out
}

// BuildManifestFromDir scans rootDir recursively and produces a Manifest whose Files list
// every regular file found, hashed with algo, with URL set relative to baseURL. Grounded on
// the teacher's manifest.go (scanPathRecursive/calculateHashes), generalized from a flat
// hash-only record into the full FileEntry shape this package's Manifest uses. Used by the
// buildmanifest command to produce a manifest a real deployment would publish.
func BuildManifestFromDir(rootDir, version, baseURL string, algo HashAlgorithm) (*Manifest, error) {
	m := &Manifest{Version: version}
	err := filepath.Walk(rootDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		sum, err := HashFile(p, algo)
		if err != nil {
			return err
		}
		m.Files = append(m.Files, FileEntry{
			Path: rel,
			URL:  joinURL(baseURL, rel),
			Hash: sum,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, newErr(KindFilesystem, "manifest.BuildManifestFromDir", err)
	}
	return m, nil
}

func joinURL(base, rel string) string {
	if base == "" {
		return rel
	}
	return strings.TrimSuffix(base, "/") + "/" + rel
}
