// Package vpn provides the server catalog and connection orchestration
// for vpndial.
//
// This package implements the core functionality:
//
//   - Server profiles: named VPN endpoints plus the credentials and the
//     OS connection name used to dial them
//   - Store: durable YAML persistence of the profile collection
//   - Registry: the in-memory source of truth over the Store, with
//     save-on-mutation and change notifications
//   - TransportDriver: the boundary over the OS-level VPN tooling
//   - Orchestrator: the state machine that drives the TransportDriver
//     through configure, dial and hang-up, and tracks the session
//
// # Connection Flow
//
// A typical connection flow:
//
//  1. Caller picks a ServerProfile from the Registry
//  2. Caller invokes Orchestrator.Connect() with the profile
//  3. Orchestrator ensures the OS network profile exists, then dials
//  4. Orchestrator appends to the session log and publishes state events
//  5. Disconnect() hangs up and returns the session to idle
//
// # Thread Safety
//
// Registry and Orchestrator are safe for concurrent use. They hold
// independent locks, so catalog edits never wait on a dial in flight.
package vpn
