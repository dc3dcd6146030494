//go:build !windows

package updater

// Non-Windows half of RunAsService. There is no portable service-manager equivalent in the
// standard library or the rest of the example pack (systemd/launchd integration would need
// a platform-specific dependency this spec's domain has no other use for), so this side
// always defers to the foreground runner — see DESIGN.md.

import "github.com/IMQS/log"

func runService(logger *log.Logger, handler func()) bool {
	return false
}
