package updater

import "fmt"

// ErrorKind classifies a failure so callers (and force_sync policy) can decide whether
// a run should abort or merely skip the offending entry. See spec §7.
type ErrorKind int

const (
	// KindConfig covers missing or invalid configuration. Fatal at startup.
	KindConfig ErrorKind = iota
	// KindNetwork covers transport/timeout failures from the Fetcher.
	KindNetwork
	// KindManifest covers JSON parse failures or a manifest missing its version field.
	KindManifest
	// KindIntegrity covers hash mismatches after download and invalid archives.
	KindIntegrity
	// KindFilesystem covers permission, missing-path, and copy failures.
	KindFilesystem
	// KindPlan covers an incremental planner failing to find a path.
	KindPlan
	// KindSelfUpdate covers failures in the self-replacement protocol.
	KindSelfUpdate
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindNetwork:
		return "NetworkError"
	case KindManifest:
		return "ManifestError"
	case KindIntegrity:
		return "IntegrityError"
	case KindFilesystem:
		return "FilesystemError"
	case KindPlan:
		return "PlanError"
	case KindSelfUpdate:
		return "SelfUpdateError"
	default:
		return "UnknownError"
	}
}

// Error is the typed error carried through the sync pipeline. Wrap with fmt.Errorf's
// %w verb when more context is needed; Kind survives unwrapping via errors.As.
type Error struct {
	Kind ErrorKind
	Op   string // component/operation that produced the error, e.g. "fetcher.download_to_file"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v: %v: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
