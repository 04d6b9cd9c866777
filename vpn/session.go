// Package vpn provides the server catalog and connection orchestration.
// This file contains the session state types shared by the Orchestrator
// and its observers.
package vpn

import "time"

// SessionState represents the current state of the connection session.
type SessionState int

const (
	// StateIdle indicates no connection and no attempt in flight.
	StateIdle SessionState = iota
	// StateConfiguring indicates the OS network profile is being
	// created or verified.
	StateConfiguring
	// StateDialing indicates the transport is dialing the endpoint.
	StateDialing
	// StateConnected indicates an established connection.
	StateConnected
	// StateDisconnecting indicates the connection is being torn down.
	StateDisconnecting
	// StateFailed indicates the last connection attempt failed.
	StateFailed
)

// String returns a human-readable representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConfiguring:
		return "Configuring transport..."
	case StateDialing:
		return "Dialing..."
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting..."
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// LogEntry is one timestamped line in the session log. Entries are
// append-only for the lifetime of the process.
type LogEntry struct {
	// Time is when the transition happened.
	Time time.Time
	// Event is the trigger that caused the transition.
	Event string
	// State is the state the session ended up in.
	State SessionState
	// Message is the human-readable status for display.
	Message string
}

// StateEvent is published to observers after every session transition.
type StateEvent struct {
	// AttemptID identifies the connection attempt this event belongs
	// to. All events from one Connect..Idle cycle share an ID.
	AttemptID string
	// State is the state the session transitioned into.
	State SessionState
	// Profile is the profile the session is acting on, when any.
	Profile *ServerProfile
	// Message is the status line recorded with the transition.
	Message string
	// Time is when the transition happened.
	Time time.Time
}

// Session is a point-in-time snapshot of the orchestrator's state.
type Session struct {
	// State is the current session state.
	State SessionState
	// AttemptID identifies the current or most recent attempt.
	AttemptID string
	// ActiveProfileID is the connected profile's ID, zero when none.
	ActiveProfileID int64
	// ActiveProfile is the connected profile, nil when none.
	ActiveProfile *ServerProfile
	// LastMessage is the most recent status line.
	LastMessage string
	// ConnectedAt is when the connection was established, zero when
	// not connected.
	ConnectedAt time.Time
}
