//go:build !windows

package updater

// Non-Windows half of the detached-helper protocol. There is no teacher file to ground
// this on directly (shell_windows.go is Windows-only), so it mirrors the same shape —
// wait, delete-with-escalating-retries, copy, relaunch, self-remove — expressed as a POSIX
// shell script instead of a batch file.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

func launchSelfUpdateHelper(pid int, oldExe, newExe, workDir, configPath string) error {
	exeName := filepath.Base(oldExe)
	helperPath := filepath.Join(os.TempDir(), fmt.Sprintf("mcupdater-helper-%d.sh", pid))

	script := fmt.Sprintf(`#!/bin/sh
while kill -0 %d 2>/dev/null; do
  sleep 1
done
retries=0
while [ -e "%s" ]; do
  rm -f "%s" 2>/dev/null
  if [ -e "%s" ]; then
    retries=$((retries + 1))
    if [ "$retries" -ge 10 ]; then
      pkill -f "%s" 2>/dev/null
      sleep 1
    fi
    if [ "$retries" -ge 20 ]; then
      break
    fi
    sleep 1
  fi
done
cp "%s" "%s"
chmod +x "%s"
cd "%s"
"%s" "%s" &
rm -f "$0"
`, pid, oldExe, oldExe, oldExe, exeName, newExe, oldExe, oldExe, workDir, oldExe, configPath)

	if err := os.WriteFile(helperPath, []byte(script), 0o755); err != nil {
		return err
	}

	// "Elevated privileges if available, falling back to the invoking user's privileges"
	// (spec.md §4.10): use sudo when it works non-interactively, otherwise run as-is.
	cmd := exec.Command("sh", helperPath)
	if exec.Command("sudo", "-n", "true").Run() == nil {
		cmd = exec.Command("sudo", "-n", "sh", helperPath)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd.Start()
}
