package updater

import "strings"

// BaselineVersion is the sentinel meaning "full baseline package" for incremental packages.
const BaselineVersion = "0.0.0"

// Newer reports whether remote is considered newer than local, using the same
// lexicographic string comparison the original client used. This is a known
// compatibility wart: "1.10.0" compares as older than "1.9.0" under this scheme,
// since '1' < '9' byte-wise at the first differing rune of the minor component.
// spec.md §9 asks that this be preserved verbatim rather than silently "fixed",
// so that a port stays bug-compatible with manifests already published against it.
// CompareNumeric below implements the numeric-triple comparison spec.md suggests
// as the correct replacement, for callers that want it explicitly.
func Newer(remote, local string) bool {
	return remote > local
}

// CompareNumeric compares two MAJOR.MINOR.PATCH strings numerically, returning
// -1, 0, or 1. Non-numeric or short components compare as 0. Not used by the
// Orchestrator by default — see Newer's doc comment.
func CompareNumeric(a, b string) int {
	pa, pb := splitTriple(a), splitTriple(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func splitTriple(v string) [3]int {
	var out [3]int
	parts := strings.SplitN(v, ".", 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		n := 0
		for _, r := range parts[i] {
			if r < '0' || r > '9' {
				n = 0
				break
			}
			n = n*10 + int(r-'0')
		}
		out[i] = n
	}
	return out
}
