package vpn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vpndial/common"
)

func TestNewExecDriver_MissingTool(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := NewExecDriver()
	if !errors.Is(err, common.ErrDriverUnavailable) {
		t.Errorf("NewExecDriver() = %v, want ErrDriverUnavailable", err)
	}
}

// fakeNmcli installs a stand-in nmcli that echoes its arguments and
// exits with the given status, then returns a driver bound to it.
func fakeNmcli(t *testing.T, exitCode int) *ExecDriver {
	t.Helper()

	dir := t.TempDir()
	script := filepath.Join(dir, "nmcli")
	body := fmt.Sprintf("#!/bin/sh\necho \"$@\"\nexit %d\n", exitCode)
	if err := os.WriteFile(script, []byte(body), 0700); err != nil {
		t.Fatal(err)
	}
	return &ExecDriver{nmcli: script}
}

func TestExecDriver_HangUpArgs(t *testing.T) {
	d := fakeNmcli(t, 0)

	ok, out := d.HangUp(context.Background(), "VPNBook_US16")
	if !ok {
		t.Fatalf("HangUp() ok = false, output %q", out)
	}
	if out != "connection down VPNBook_US16" {
		t.Errorf("HangUp args = %q, want %q", out, "connection down VPNBook_US16")
	}
}

func TestExecDriver_DialWithoutSecret(t *testing.T) {
	d := fakeNmcli(t, 0)

	ok, out := d.Dial(context.Background(), "VPNBook_US16", "", "")
	if !ok {
		t.Fatalf("Dial() ok = false, output %q", out)
	}
	if out != "connection up VPNBook_US16" {
		t.Errorf("Dial args = %q, want %q", out, "connection up VPNBook_US16")
	}
}

func TestExecDriver_DialSecretNotOnCommandLine(t *testing.T) {
	d := fakeNmcli(t, 0)

	ok, out := d.Dial(context.Background(), "VPNBook_US16", "vpnbook", "m4mkacr")
	if !ok {
		t.Fatalf("Dial() ok = false, output %q", out)
	}
	if strings.Contains(out, "m4mkacr") {
		t.Errorf("secret leaked onto the command line: %q", out)
	}
	if !strings.Contains(out, "passwd-file") {
		t.Errorf("Dial should stage the secret via passwd-file, got %q", out)
	}
}

func TestExecDriver_FailureReportsOutput(t *testing.T) {
	d := fakeNmcli(t, 1)

	ok, out := d.HangUp(context.Background(), "VPNBook_US16")
	if ok {
		t.Error("HangUp() ok = true, want false on non-zero exit")
	}
	if out == "" {
		t.Error("HangUp() should capture output on failure")
	}
}

func TestStageSecret(t *testing.T) {
	path, err := stageSecret("m4mkacr")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "vpn.secrets.password:m4mkacr\n" {
		t.Errorf("passwd-file content = %q", string(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("passwd-file mode = %v, want 0600", info.Mode().Perm())
	}
}
