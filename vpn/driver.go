// Package vpn provides the server catalog and connection orchestration.
// This file contains the TransportDriver boundary and its NetworkManager
// implementation.
package vpn

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vpndial/common"
)

// TransportDriver abstracts the OS tooling that registers VPN network
// profiles and dials or hangs up connections. Every call blocks until
// the external tool exits and reports a verdict plus the tool's
// captured textual output. Failures are values, not errors: the
// Orchestrator decides what each outcome means for the session.
type TransportDriver interface {
	// EnsureNetworkProfile makes sure an OS network profile exists
	// under connectionName for the given endpoint address. Re-invoking
	// it for an already configured profile must succeed.
	EnsureNetworkProfile(ctx context.Context, connectionName, address string) (bool, string)
	// Dial brings the named connection up with the given credentials.
	Dial(ctx context.Context, connectionName, username, secret string) (bool, string)
	// HangUp takes the named connection down.
	HangUp(ctx context.Context, connectionName string) (bool, string)
}

// ExecDriver drives VPN connections through the NetworkManager CLI.
// It shells out to nmcli for every operation and captures combined
// output for the Orchestrator's success-marker check.
type ExecDriver struct {
	nmcli string
}

// NewExecDriver locates the NetworkManager CLI and returns a driver
// bound to it.
func NewExecDriver() (*ExecDriver, error) {
	path, err := exec.LookPath("nmcli")
	if err != nil {
		return nil, fmt.Errorf("%w: nmcli not found in PATH", common.ErrDriverUnavailable)
	}
	return &ExecDriver{nmcli: path}, nil
}

// EnsureNetworkProfile creates the OS network profile if it is not
// already registered. The connection name is derived deterministically
// from the address, so a second call for the same endpoint finds the
// existing profile and succeeds without touching anything.
func (d *ExecDriver) EnsureNetworkProfile(ctx context.Context, connectionName, address string) (bool, string) {
	out, err := d.run(ctx, "-t", "-f", "NAME", "connection", "show")
	if err == nil {
		for _, line := range strings.Split(out, "\n") {
			if strings.TrimSpace(line) == connectionName {
				return true, "network profile already present"
			}
		}
	}

	out, err = d.run(ctx, "connection", "add",
		"type", "vpn",
		"con-name", connectionName,
		"ifname", "--",
		"vpn-type", "l2tp",
		"vpn.data", "gateway="+address)
	return err == nil, out
}

// Dial brings the connection up. The secret never appears on the
// command line; it is staged in a short-lived passwd-file that nmcli
// reads and that is removed as soon as the call returns.
func (d *ExecDriver) Dial(ctx context.Context, connectionName, username, secret string) (bool, string) {
	if username != "" {
		if out, err := d.run(ctx, "connection", "modify", connectionName, "vpn.user-name", username); err != nil {
			return false, out
		}
	}

	args := []string{"connection", "up", connectionName}
	if secret != "" {
		credFile, err := stageSecret(secret)
		if err != nil {
			return false, "cannot stage credentials: " + err.Error()
		}
		defer os.Remove(credFile)
		args = append(args, "passwd-file", credFile)
	}

	out, err := d.run(ctx, args...)
	return err == nil, out
}

// HangUp takes the connection down.
func (d *ExecDriver) HangUp(ctx context.Context, connectionName string) (bool, string) {
	out, err := d.run(ctx, "connection", "down", connectionName)
	return err == nil, out
}

// run executes nmcli with the given arguments and returns its combined
// output. When the tool produces no output on failure, the process
// error stands in so the caller always gets something to log.
func (d *ExecDriver) run(ctx context.Context, args ...string) (string, error) {
	common.LogDebug("Transport: nmcli %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, d.nmcli, args...)
	out, err := cmd.CombinedOutput()

	text := strings.TrimSpace(string(out))
	if err != nil && text == "" {
		text = err.Error()
	}
	return text, err
}

// stageSecret writes the secret to a private temp file in nmcli
// passwd-file format and returns its path. The caller removes it.
func stageSecret(secret string) (string, error) {
	tmpDir := filepath.Join(os.TempDir(), common.AppName)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", err
	}

	path := filepath.Join(tmpDir, fmt.Sprintf("cred-%d", time.Now().UnixNano()))
	content := fmt.Sprintf("vpn.secrets.password:%s\n", secret)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", err
	}
	return path, nil
}
