// Package common provides shared constants, types, and utilities
// used across the vpndial application.
package common

import "time"

// Application metadata.
const (
	// AppName is the display name of the application.
	AppName = "vpndial"
	// ConfigDirName is the name of the per-user configuration directory.
	ConfigDirName = "vpndial"
)

// File names used by the application.
const (
	ProfilesFileName    = "servers.yaml"
	ConfigFileName      = "config.yaml"
	CredentialsFileName = ".credentials"
	LogFileName         = "vpndial.log"
	HistoryFileName     = "history.db"
)

// Default timeouts and intervals.
const (
	// EnsureTimeout bounds the network-profile creation call.
	EnsureTimeout = 30 * time.Second
	// DialTimeout bounds a single dial invocation of the transport tool.
	DialTimeout = 60 * time.Second
	// HangUpTimeout bounds a hang-up invocation.
	HangUpTimeout = 15 * time.Second
	// ConnectWaitTimeout is how long CLI callers wait for a connect outcome.
	ConnectWaitTimeout = 75 * time.Second
	// ShutdownTimeout bounds the best-effort disconnect on application exit.
	ShutdownTimeout = 3 * time.Second
	// StaleInstanceWait is the grace period given to a stale instance
	// between SIGTERM and SIGKILL.
	StaleInstanceWait = 2 * time.Second
)

// DialSuccessMarker is matched case-insensitively against the transport
// tool's output. Dialers are inconsistent about how they report success:
// rasdial prints "Successfully connected to ..." and nmcli prints
// "Connection successfully activated", while exit codes vary by tool and
// version. A zero exit status and this marker are both accepted.
const DialSuccessMarker = "successfully"

// ElevationHint is surfaced when a dial failure looks like a privilege
// problem rather than bad credentials or an unreachable server.
const ElevationHint = "retry as an elevated user"

// DefaultCountryCode is assumed when a stored profile carries no country.
const DefaultCountryCode = "US"
