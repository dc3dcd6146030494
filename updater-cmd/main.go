package main

// Grounded on the teacher's updater-cmd/main.go (stdlib flag, no subcommand framework) and
// server-cmd/main.go (github.com/IMQS/cli's App/AddCommand/DefaultExec shape). The
// subcommand framework is adopted from server-cmd since it is the richer of the two CLI
// idioms in the pack; the commands themselves are rebuilt against the Orchestrator rather
// than the old two-directory Updater.

import (
	"context"
	"fmt"
	"os"

	"github.com/IMQS/cli"
	"github.com/IMQS/log"
	"github.com/olekukonko/tablewriter"
	"github.com/robfig/cron/v3"

	"github.com/Rei-kumo/McUpdaterClient/updater"
)

const pollSchedule = "@every 5m"

var logger *log.Logger

func main() {
	app := cli.App{}
	app.Description = "McUpdaterClient [options] command config-file"
	app.DefaultExec = run
	app.AddCommand("run", "Run in the foreground, polling for updates on a schedule", "config-file")
	app.AddCommand("service", "Run as a background service", "config-file")
	app.AddCommand("check", "Check for an available update and report, without applying it", "config-file")
	app.AddCommand("force", "Force an update now", "config-file")
	app.AddCommand("buildmanifest", "Build a manifest.json describing a directory tree", "dir", "version", "base-url")
	app.Run()
}

func run(name string, args []string, options cli.OptionSet) {
	var err error
	switch name {
	case "run":
		err = runForeground(args[0])
	case "service":
		err = runAsService(args[0])
	case "check":
		err = runCheck(args[0])
	case "force":
		err = runForce(args[0])
	case "buildmanifest":
		err = runBuildManifest(args[0], args[1], args[2])
	}
	if err != nil {
		if logger != nil {
			logger.Errorf("%v", err)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func loadOrchestrator(configPath string) (*updater.Orchestrator, *updater.InstanceLock, error) {
	cfg, err := updater.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger = log.New(cfg.LogFile)
	settings := cfg.ToSettings(logger)

	lock, err := updater.AcquireInstanceLock(settings.GameDirectory)
	if err != nil {
		return nil, nil, err
	}
	return updater.NewOrchestrator(settings, cfg), lock, nil
}

func runForeground(configPath string) error {
	orch, lock, err := loadOrchestrator(configPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	poll := func() {
		ctx := context.Background()
		available, err := orch.CheckForUpdates(ctx)
		if err != nil {
			logger.Errorf("check_for_updates failed: %v", err)
			return
		}
		if !available {
			logger.Infof("No update available")
			return
		}
		logger.Infof("Update available, applying")
		if _, err := orch.ForceUpdate(ctx, false); err != nil {
			logger.Errorf("force_update failed: %v", err)
		}
	}

	poll()
	c := cron.New()
	if _, err := c.AddFunc(pollSchedule, poll); err != nil {
		return err
	}
	c.Run()
	return nil
}

func runAsService(configPath string) error {
	orch, lock, err := loadOrchestrator(configPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	handler := func() {
		ctx := context.Background()
		available, err := orch.CheckForUpdates(ctx)
		if err == nil && available {
			orch.ForceUpdate(ctx, false)
		}
	}

	if !updater.RunAsService(logger, handler) {
		return runForeground(configPath)
	}
	return nil
}

func runCheck(configPath string) error {
	orch, lock, err := loadOrchestrator(configPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	available, err := orch.CheckForUpdates(context.Background())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Check", "Result"})
	table.Append([]string{"update available", fmt.Sprintf("%v", available)})
	table.Render()

	if changelog := orch.LastChangelog(); len(changelog) > 0 {
		fmt.Println("\nChangelog:")
		for _, line := range changelog {
			fmt.Println("- " + line)
		}
	}
	return nil
}

func runForce(configPath string) error {
	orch, lock, err := loadOrchestrator(configPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	ok, err := orch.ForceUpdate(context.Background(), true)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Force update", "Result"})
	table.Append([]string{"all_ok", fmt.Sprintf("%v", ok)})
	table.Render()
	if !ok {
		os.Exit(1)
	}
	return nil
}

func runBuildManifest(dir, version, baseURL string) error {
	m, err := updater.BuildManifestFromDir(dir, version, baseURL, updater.AlgoSHA256)
	if err != nil {
		return err
	}
	return m.Write(dir + "/manifest.json")
}
