// Package main provides the entry point for vpndial, a VPN connection
// manager for Linux built on top of NetworkManager.
//
// Features:
//   - Server catalog with per-profile credentials
//   - Single-session connection orchestration
//   - Secret storage in the system keyring with an encrypted fallback
//   - Connection history in a local database
//   - Desktop notifications on connection changes
//   - Terminal interface plus command-line flags for scripting
//
// Usage:
//
//	vpndial [options]
//
// Environment:
//
//	The application requires NetworkManager (nmcli) to be installed
//	on the system.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vpndial/cli"
	"vpndial/common"
	"vpndial/config"
	"vpndial/history"
	"vpndial/notify"
	"vpndial/ui"
	"vpndial/vpn"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

var (
	// General flags
	showVersion = flag.Bool("version", false, "Show version and exit")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showHelp    = flag.Bool("help", false, "Show help message")

	// CLI flags
	listProfiles   = flag.Bool("list", false, "List all server profiles")
	addProfile     = flag.Bool("add", false, "Add a server profile (requires --address)")
	profileName    = flag.String("name", "", "Display name for --add")
	profileAddress = flag.String("address", "", "Server address for --add")
	profileUser    = flag.String("user", "", "Username for --add")
	profileCountry = flag.String("country", "", "Country code for --add")
	saveSecret     = flag.Bool("save-secret", true, "Store the secret in the system keyring with --add")
	removeProfile  = flag.String("remove", "", "Remove a server profile by name or ID")
	connectProfile = flag.String("connect", "", "Connect to a server profile by name or ID")
	disconnectVPN  = flag.Bool("disconnect", false, "Disconnect the active connection")
	showStatus     = flag.Bool("status", false, "Show current connection status")
	showHistory    = flag.Int("history", 0, "Show the N most recent connection attempts")
)

func main() {
	flag.Parse()

	// Handle help flag
	if *showHelp {
		cli.PrintHelp()
		os.Exit(0)
	}

	// Handle version flag
	if *showVersion {
		fmt.Printf("%s v%s\n", common.AppName, appVersion)
		if buildTime != "unknown" {
			fmt.Printf("  Build:  %s\n", buildTime)
			fmt.Printf("  Commit: %s\n", commitSHA)
		}
		os.Exit(0)
	}

	// Initialize logger with structured logging and file output
	logLevel := common.LevelInfo
	if *verbose {
		logLevel = common.LevelDebug
	}

	if err := common.InitLogger(common.LogConfig{
		Level:       logLevel,
		EnableFile:  true,
		MaxFileSize: 5 * 1024 * 1024, // 5MB
		MaxBackups:  5,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
	defer common.CloseLogger()

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals (SIGINT, SIGTERM)
	setupSignalHandler(cancel)

	// Settings are advisory: a broken file falls back to defaults.
	cfg, err := config.Load()
	if err != nil {
		common.LogWarn("Cannot load settings, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	// Verify the NetworkManager CLI is available
	driver, err := vpn.NewExecDriver()
	if err != nil {
		common.LogError("NetworkManager is not available: %v", err)
		fmt.Fprintln(os.Stderr, "Error: nmcli was not found; install NetworkManager first.")
		os.Exit(1)
	}

	storePath, err := vpn.DefaultStorePath()
	if err != nil {
		common.LogError("Cannot resolve the profile store path: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	registry := vpn.NewRegistry(vpn.NewStore(storePath))

	orch := vpn.NewOrchestrator(driver)
	orch.SetDialTimeout(cfg.DialTimeout())

	// Connection history is optional: without it everything except the
	// history listing still works.
	var recorder *history.Recorder
	if path, err := history.DefaultPath(); err != nil {
		common.LogWarn("Connection history unavailable: %v", err)
	} else if recorder, err = history.Open(path); err != nil {
		common.LogWarn("Connection history unavailable: %v", err)
		recorder = nil
	} else {
		defer recorder.Close()
		go recorder.Follow(orch.Subscribe())
	}

	if cfg.ShowNotifications {
		if notifier, err := notify.NewDesktopNotifier(); err != nil {
			common.LogWarn("Desktop notifications unavailable: %v", err)
		} else {
			defer notifier.Close()
			go notify.Watch(orch.Subscribe(), notifier)
		}
	}

	// Check if any CLI mode flag is set
	if *listProfiles || *addProfile || *removeProfile != "" || *connectProfile != "" ||
		*disconnectVPN || *showStatus || *showHistory > 0 {
		runCLI(ctx, cli.New(registry, orch, recorder, cfg))
		return
	}

	// Start the terminal interface
	common.LogInfo("Starting %s v%s", common.AppName, appVersion)
	if err := ui.Run(registry, orch, cfg); err != nil {
		common.LogError("Terminal interface failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	shutdown(orch, cfg)
}

// runCLI handles command-line interface operations. Connections made
// here outlive the process: the tunnel belongs to the OS, and a later
// invocation or the interface can hang it up.
func runCLI(ctx context.Context, app *cli.CLI) {
	// Check if context is already cancelled before proceeding
	select {
	case <-ctx.Done():
		common.LogInfo("Operation cancelled before execution")
		return
	default:
	}

	var err error

	switch {
	case *listProfiles:
		err = app.ListProfiles()
	case *addProfile:
		err = app.AddProfile(*profileName, *profileAddress, *profileUser, *profileCountry, *saveSecret)
	case *removeProfile != "":
		err = app.RemoveProfile(*removeProfile)
	case *connectProfile != "":
		err = app.Connect(*connectProfile)
	case *disconnectVPN:
		err = app.Disconnect()
	case *showStatus:
		err = app.Status()
	case *showHistory > 0:
		err = app.History(*showHistory)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// shutdown applies the exit policy after the interface closes: hang up
// the session when configured to, then clear stale instances so an
// orphaned process cannot keep a tunnel open.
func shutdown(orch *vpn.Orchestrator, cfg *config.Config) {
	if cfg.AutoDisconnectOnExit {
		ctx, cancel := context.WithTimeout(context.Background(), common.ShutdownTimeout)
		if err := orch.Shutdown(ctx); err != nil {
			common.LogWarn("Shutdown incomplete: %v", err)
		}
		cancel()
	}

	if cfg.KillStaleOnExit {
		if n := common.TerminateStaleInstances(common.StaleInstanceWait); n > 0 {
			common.LogInfo("Terminated %d stale instance(s)", n)
		}
	}
}

// setupSignalHandler configures graceful shutdown on SIGINT/SIGTERM.
// When a signal is received, it cancels the context to allow cleanup.
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		common.LogInfo("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
		// In CLI mode the cancellation is checked before dispatch; the
		// terminal interface reads ctrl+c itself and exits on its own.
	}()
}
