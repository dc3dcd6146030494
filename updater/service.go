package updater

// RunAsService wraps the platform-specific service entry point, grounded on the teacher's
// Updater.RunAsService/runService pair. The Windows implementation (service_windows.go)
// still uses the svc control-loop shape the teacher had; the non-Windows implementation
// (service_unix.go) is a plain foreground fallback, since there is no portable service
// manager in the standard library or the rest of the example pack to drive one with.

import "github.com/IMQS/log"

// RunAsService returns true if it detected a supervised, non-interactive environment and
// ran handler under it; this function does not return until that supervisor stops the
// process. Returns false immediately if no such environment was detected, in which case the
// caller should run handler in the foreground itself.
func RunAsService(logger *log.Logger, handler func()) bool {
	return runService(logger, handler)
}
