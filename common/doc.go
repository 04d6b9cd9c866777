// Package common provides shared constants, types, utilities, and interfaces
// used throughout the vpndial application.
//
// This package holds the cross-cutting pieces the rest of the application
// builds on:
//
//   - Constants: application identity, file names, timeouts, and the
//     transport success marker
//   - Errors: sentinel errors for consistent error handling across packages
//   - Interfaces: small abstractions for logging and desktop notification
//   - Logger: leveled logging with file rotation and compression
//   - Utils: per-user directory resolution and file helpers
//   - Proc: best-effort cleanup of stale application instances
//
// # Usage
//
// Import the package to access shared functionality:
//
//	import "vpndial/common"
//
//	// Use constants
//	timeout := common.DialTimeout
//
//	// Use logger
//	common.LogInfo("Connecting to %s", profile.DisplayName)
//
//	// Check errors
//	if errors.Is(err, common.ErrConnectionBusy) {
//	    // A connection attempt is already in flight
//	}
package common
