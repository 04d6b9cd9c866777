// Package cli provides command-line operations for vpndial. It lets
// users manage the server catalog and drive connections from scripts
// or a terminal without launching the interactive UI.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"vpndial/common"
	"vpndial/config"
	"vpndial/history"
	"vpndial/keyring"
	"vpndial/vpn"
)

// CLI bundles the long-lived components the one-shot commands operate
// on. All dependencies are injected; the CLI owns none of them.
type CLI struct {
	registry *vpn.Registry
	orch     *vpn.Orchestrator
	recorder *history.Recorder
	cfg      *config.Config
}

// New creates a CLI over the given components. The recorder may be nil
// when the history database could not be opened.
func New(registry *vpn.Registry, orch *vpn.Orchestrator, recorder *history.Recorder, cfg *config.Config) *CLI {
	return &CLI{
		registry: registry,
		orch:     orch,
		recorder: recorder,
		cfg:      cfg,
	}
}

// ListProfiles lists all configured server profiles.
func (c *CLI) ListProfiles() error {
	profiles := c.registry.List()

	if len(profiles) == 0 {
		fmt.Println("No server profiles configured.")
		fmt.Println("Add one with: vpndial --add --name NAME --address HOST --user USER")
		return nil
	}

	session := c.orch.Session()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOUNTRY\tADDRESS\tCONNECTION\tSTATUS")
	fmt.Fprintln(w, "--\t----\t-------\t-------\t----------\t------")

	for _, p := range profiles {
		status := "-"
		if session.ActiveProfileID == p.ID {
			status = session.State.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Label(), p.CountryCode, p.Address, p.ConnectionName, status)
	}

	w.Flush()
	return nil
}

// AddProfile creates a profile from the given fields and stores it in
// the registry. The secret is read interactively with echo disabled;
// with saveSecret the secret goes to the keyring instead of the
// profile file.
func (c *CLI) AddProfile(name, address, username, country string, saveSecret bool) error {
	if strings.TrimSpace(address) == "" {
		return errors.New("an address is required (--address)")
	}
	if country == "" {
		country = c.cfg.DefaultCountry
	}

	secret, err := promptSecret(fmt.Sprintf("Secret for %s (empty to skip): ", address))
	if err != nil {
		return fmt.Errorf("cannot read secret: %w", err)
	}

	profile := vpn.NewServerProfile(name, address, username, secret, country)
	if saveSecret && secret != "" {
		if err := keyring.Store(profile.ID, secret); err != nil {
			return fmt.Errorf("cannot save secret to keyring: %w", err)
		}
		// The profile file never sees the secret.
		profile.Secret = ""
	}

	if err := c.registry.Add(profile); err != nil {
		return fmt.Errorf("cannot add profile: %w", err)
	}

	fmt.Printf("✓ Added %s (%s)\n", profile.Label(), profile.ConnectionName)
	return nil
}

// RemoveProfile deletes a profile by name, address or ID, along with
// any secret the keyring holds for it.
func (c *CLI) RemoveProfile(nameOrID string) error {
	profile := c.findProfile(nameOrID)
	if profile == nil {
		return fmt.Errorf("profile not found: %s", nameOrID)
	}

	// Best-effort: the keyring may never have held this profile.
	_ = keyring.Delete(profile.ID)

	if !c.registry.Remove(profile) {
		return fmt.Errorf("profile not found: %s", nameOrID)
	}

	fmt.Printf("✓ Removed %s\n", profile.Label())
	return nil
}

// Connect dials the profile matching nameOrID and waits for the
// attempt to settle.
func (c *CLI) Connect(nameOrID string) error {
	profile := c.findProfile(nameOrID)
	if profile == nil {
		return fmt.Errorf("profile not found: %s", nameOrID)
	}

	if s := c.orch.Session(); s.State == vpn.StateConnected {
		return fmt.Errorf("already connected to %s; disconnect first", s.ActiveProfile.Label())
	}

	// Profiles saved without a secret resolve it from the keyring at
	// connect time. The stored profile itself stays untouched.
	dial := *profile
	if dial.Secret == "" {
		if secret, err := keyring.Get(profile.ID); err == nil {
			dial.Secret = secret
		}
	}

	fmt.Printf("Connecting to %s...\n", profile.Label())
	if err := c.orch.Connect(&dial); err != nil {
		return fmt.Errorf("connection not started: %w", err)
	}

	// Wait for the attempt to settle (with timeout).
	timeout := time.After(common.ConnectWaitTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return errors.New("connection timed out")
		case <-ticker.C:
			switch s := c.orch.Session(); s.State {
			case vpn.StateConnected:
				fmt.Printf("✓ %s\n", s.LastMessage)
				return nil
			case vpn.StateFailed:
				return errors.New(s.LastMessage)
			}
		}
	}
}

// Disconnect hangs up the active connection.
func (c *CLI) Disconnect() error {
	s := c.orch.Session()
	if s.State != vpn.StateConnected {
		fmt.Println("No active VPN connection.")
		return nil
	}

	fmt.Printf("Disconnecting from %s...\n", s.ActiveProfile.Label())
	if err := c.orch.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	fmt.Println("✓ Disconnected")
	return nil
}

// Status shows the current session state.
func (c *CLI) Status() error {
	s := c.orch.Session()

	if s.State == vpn.StateIdle && s.ActiveProfile == nil {
		fmt.Println("No active VPN connection.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tSTATE\tUPTIME\tSTATUS")
	fmt.Fprintln(w, "-------\t-----\t------\t------")

	name := "-"
	if s.ActiveProfile != nil {
		name = s.ActiveProfile.Label()
	}
	uptime := "-"
	if s.State == vpn.StateConnected {
		uptime = formatDuration(c.orch.Uptime())
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, s.State, uptime, s.LastMessage)

	w.Flush()
	return nil
}

// History prints the most recent connection attempts.
func (c *CLI) History(n int) error {
	if c.recorder == nil {
		return errors.New("connection history is unavailable")
	}

	entries, err := c.recorder.Recent(n)
	if err != nil {
		return fmt.Errorf("cannot read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No connection history yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPROFILE\tADDRESS\tOUTCOME\tDURATION\tDETAIL")
	fmt.Fprintln(w, "----\t-------\t-------\t-------\t--------\t------")

	for _, e := range entries {
		outcome := e.Outcome
		if outcome == "" {
			outcome = "in flight"
		}
		duration := "-"
		if !e.ConnectedAt.IsZero() && !e.EndedAt.IsZero() {
			duration = formatDuration(e.EndedAt.Sub(e.ConnectedAt))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.ProfileName, e.Address, outcome, duration, e.Detail)
	}

	w.Flush()
	return nil
}

// findProfile finds a profile by display name, address, connection
// name or ID (exact or prefix), case-insensitively.
func (c *CLI) findProfile(nameOrID string) *vpn.ServerProfile {
	nameOrID = strings.ToLower(strings.TrimSpace(nameOrID))
	if nameOrID == "" {
		return nil
	}

	for _, profile := range c.registry.List() {
		id := strconv.FormatInt(profile.ID, 10)
		if strings.ToLower(profile.DisplayName) == nameOrID ||
			strings.ToLower(profile.Address) == nameOrID ||
			strings.ToLower(profile.ConnectionName) == nameOrID ||
			id == nameOrID ||
			strings.HasPrefix(id, nameOrID) {
			return profile
		}
	}

	return nil
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// promptSecret reads a secret from the terminal with echo disabled.
// When stdin is not a terminal (pipes, scripts) it falls back to a
// plain line read.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PrintHelp prints CLI usage help.
func PrintHelp() {
	fmt.Println(`vpndial - VPN server catalog and connection dialer

Usage:
  vpndial [OPTIONS]

Options:
  --version           Show version and exit
  --verbose           Enable verbose logging
  --list              List all server profiles
  --add               Add a profile (with --name, --address, --user, --country)
  --save-secret       With --add: store the secret in the keyring, not the file
  --remove NAME       Remove a profile by name, address or ID
  --connect NAME      Connect to a server profile
  --disconnect        Disconnect the active connection
  --status            Show current connection status
  --history N         Show the N most recent connection attempts
  --help              Show this help message

Examples:
  vpndial --list
  vpndial --add --name "VPNBook US16" --address us16.vpnbook.com --user vpnbook
  vpndial --connect us16.vpnbook.com
  vpndial --disconnect
  vpndial --history 10

Run without options to launch the interactive terminal UI.`)
}
