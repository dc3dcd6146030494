package updater

// New component: the teacher synchronized raw directory trees via robocopy and never dealt
// with an archive format. This is built fresh against spec.md §4.3, using the standard
// library's ZIP reader — see DESIGN.md / SPEC_FULL.md §1 for why no pack dependency applies
// here (the other repos' archive formats are Nix-specific: xz/zstd/brotli/lz4, not ZIP).

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const archiveChunkSize = 64 * 1024

var (
	zipNonEmptyMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	zipEmptyMagic    = []byte{0x50, 0x4B, 0x05, 0x06}
)

// minExtractSuccessRatio is the 80% floor spec.md §4.3 sets for a "successful" extraction.
const minExtractSuccessRatio = 0.8

// IsValidArchive reads the leading bytes of path and reports whether it looks like a ZIP
// archive (non-empty or empty-central-directory), per spec.md §4.3.
func IsValidArchive(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false
	}
	if info.Size() == 0 {
		return true
	}
	head := make([]byte, 4)
	n, _ := io.ReadFull(f, head)
	if n < 4 {
		// A short file is only valid if it is exactly the 22-byte empty-central-directory
		// record, which is itself at least 4 bytes; n < 4 here means neither case applies.
		return false
	}
	if bytes.Equal(head, zipNonEmptyMagic) {
		return true
	}
	if bytes.Equal(head, zipEmptyMagic) && info.Size() == 22 {
		return true
	}
	return false
}

// ExtractArchive extracts archivePath into destDir, two passes as spec.md §4.3 requires:
// all directory entries are created first, then every file entry is streamed to disk. An
// entry name that is not a safe relative path (see safeEntryName), or whose file cannot be
// created under its own name, is written as "file_<index>.dat" instead. A 0-byte file or an
// archive with no entries at all extracts to an empty destDir. Returns an *Error wrapping
// KindIntegrity if the archive cannot be opened, declares entries but no file entries, or
// the extraction success rate falls under 80%.
func ExtractArchive(archivePath, destDir string) error {
	info, err := os.Stat(archivePath)
	if err != nil {
		return newErr(KindIntegrity, "archive.ExtractArchive", err)
	}
	if info.Size() == 0 {
		// spec.md §8: "Download of a 0-byte payload... results in an empty directory being
		// created at the target (not a failure)."
		return os.MkdirAll(destDir, 0o775)
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return newErr(KindIntegrity, "archive.ExtractArchive", err)
	}
	defer r.Close()

	// len(r.File) == 0 is the 22-byte empty-central-directory-record case: no entries at
	// all, directory or file. spec.md §8 requires this to extract to an empty directory,
	// not an error — unlike an archive that declares entries but none of them are files
	// (handled after pass 2 below, which is the "zero entries" ArchiveError case).
	if len(r.File) == 0 {
		return os.MkdirAll(destDir, 0o775)
	}

	if err := os.MkdirAll(destDir, 0o775); err != nil {
		return newErr(KindIntegrity, "archive.ExtractArchive", err)
	}

	// Pass 1: create every directory, including implied parents of file entries, so pass 2
	// never races on parent creation.
	for i, f := range r.File {
		name := safeEntryName(f.Name, i)
		target := filepath.Join(destDir, name)
		if strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o775); err != nil {
				return newErr(KindIntegrity, "archive.ExtractArchive", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o775); err != nil {
			return newErr(KindIntegrity, "archive.ExtractArchive", err)
		}
	}

	// Pass 2: stream-decompress every file entry.
	totalFiles := 0
	extracted := 0
	for i, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		totalFiles++
		name := safeEntryName(f.Name, i)
		target := filepath.Join(destDir, name)
		if extractOne(f, target) == nil {
			extracted++
		} else if extractOne(f, filepath.Join(destDir, fmt.Sprintf("file_%d.dat", i))) == nil {
			// The entry's own name could not be created on this filesystem.
			extracted++
		}
	}

	if totalFiles == 0 {
		return newErr(KindIntegrity, "archive.ExtractArchive", fmt.Errorf("archive has zero entries"))
	}
	if float64(extracted)/float64(totalFiles) < minExtractSuccessRatio {
		return newErr(KindIntegrity, "archive.ExtractArchive",
			fmt.Errorf("only %d/%d files extracted", extracted, totalFiles))
	}
	return nil
}

func extractOne(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o664)
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, archiveChunkSize)
	_, err = io.CopyBuffer(out, rc, buf)
	return err
}

// safeEntryName returns a filesystem-safe relative path for a ZIP entry name. Go's
// archive/zip hands names over as stored (UTF-8, or raw bytes when the UTF-8 flag is
// unset); this function does not transcode them. A name that cleans to empty, ".", "..",
// or a path escaping the destination falls back to an index-based name per spec.md §4.3;
// names the filesystem rejects are handled by ExtractArchive's second attempt.
func safeEntryName(name string, index int) string {
	clean := filepath.FromSlash(strings.TrimPrefix(name, "/"))
	clean = filepath.Clean(clean)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == "" {
		return fmt.Sprintf("file_%d.dat", index)
	}
	return clean
}
