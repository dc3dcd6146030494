package updater

// Detached-helper generation for Windows, grounded on the teacher's shell_windows.go
// (exec.Command-driven external tooling) and monitors.go's escalating stop/start-service
// loop, adapted here to waiting out the current process and killing a lingering instance
// by image name instead of a service name.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

func launchSelfUpdateHelper(pid int, oldExe, newExe, workDir, configPath string) error {
	exeName := filepath.Base(oldExe)
	helperPath := filepath.Join(os.TempDir(), fmt.Sprintf("mcupdater-helper-%d.bat", pid))

	script := fmt.Sprintf(`@echo off
setlocal enabledelayedexpansion
set RETRIES=0
:waitloop
tasklist /FI "PID eq %d" | find "%d" >nul
if not errorlevel 1 (
  timeout /T 1 /NOBREAK >nul
  goto waitloop
)
:delloop
del /F /Q "%s" >nul 2>&1
if exist "%s" (
  set /a RETRIES+=1
  if !RETRIES! GEQ 10 (
    taskkill /F /IM "%s" >nul 2>&1
    timeout /T 1 /NOBREAK >nul
  )
  if !RETRIES! LSS 20 (
    timeout /T 1 /NOBREAK >nul
    goto delloop
  )
)
copy /Y "%s" "%s" >nul
cd /D "%s"
start "" "%s" "%s"
del /F /Q "%%~f0"
`, pid, pid, oldExe, oldExe, exeName, newExe, oldExe, workDir, oldExe, configPath)

	if err := os.WriteFile(helperPath, []byte(script), 0o755); err != nil {
		return err
	}

	cmd := exec.Command("powershell", "-NoProfile", "-Command",
		fmt.Sprintf("Start-Process -FilePath '%s' -WindowStyle Hidden -Verb RunAs", helperPath))
	// Run waits only for PowerShell's Start-Process to return, not for the helper itself, so
	// a refused or unavailable elevation shows up here as a non-zero exit.
	if err := cmd.Run(); err != nil {
		// Elevation unavailable or refused; fall back to the invoking user's own
		// privileges (spec.md §4.10: "falling back to the invoking user's privileges").
		cmd = exec.Command("cmd", "/C", "start", "", "/B", helperPath)
		return cmd.Start()
	}
	return nil
}
