// Package common provides shared constants, types, and utilities
// used across the vpndial application.
package common

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// TerminateStaleInstances finds other running processes with the
// application's command name and asks them to exit, so an orphaned
// instance cannot keep a tunnel open after the current one quits.
// Each process gets SIGTERM, then up to wait to go away, then SIGKILL.
// Everything here is best-effort; failures are logged and swallowed.
// Returns the number of instances signalled.
func TerminateStaleInstances(wait time.Duration) int {
	pids := findInstancePIDs()
	if len(pids) == 0 {
		return 0
	}

	for _, pid := range pids {
		LogInfo("Terminating stale instance (pid %d)", pid)
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			LogWarn("Failed to signal pid %d: %v", pid, err)
		}
	}

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if !anyAlive(pids) {
			return len(pids)
		}
		time.Sleep(100 * time.Millisecond)
	}

	for _, pid := range pids {
		if processAlive(pid) {
			LogWarn("Stale instance (pid %d) did not exit, killing", pid)
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
	}
	return len(pids)
}

// findInstancePIDs scans /proc for other processes whose command name
// matches AppName. The calling process is excluded.
func findInstancePIDs() []int {
	self := os.Getpid()

	entries, err := os.ReadDir("/proc")
	if err != nil {
		LogWarn("Cannot scan /proc: %v", err)
		return nil
	}

	var pids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == AppName {
			pids = append(pids, pid)
		}
	}
	return pids
}

func anyAlive(pids []int) bool {
	for _, pid := range pids {
		if processAlive(pid) {
			return true
		}
	}
	return false
}

// processAlive reports whether pid still exists, using the null signal.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
