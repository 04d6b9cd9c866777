// Package vpn provides the server catalog and connection orchestration.
// This file contains the Orchestrator, the state machine that drives
// the TransportDriver through connect and disconnect.
package vpn

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vpndial/common"
)

// Common errors - re-exported from common package for convenience.
var (
	ErrConnectionBusy = common.ErrConnectionBusy
	ErrNotConnected   = common.ErrNotConnected
)

// Orchestrator owns the single connection session and serializes all
// state transitions, so at most one connection attempt is ever in
// flight. Connect reserves the session synchronously and then drives
// the TransportDriver from a worker goroutine; Disconnect blocks until
// the hang-up completes. Every transition appends to the session log
// and is published to subscribers.
//
// The Orchestrator's lock is independent of the Registry's, so a dial
// in flight never delays catalog reads or edits.
type Orchestrator struct {
	mu        sync.Mutex
	driver    TransportDriver
	state     SessionState
	active    *ServerProfile
	attemptID string
	lastMsg   string
	startedAt time.Time
	entries   []LogEntry
	events    *broadcaster[StateEvent]
	wg        sync.WaitGroup

	ensureTimeout time.Duration
	dialTimeout   time.Duration
	hangUpTimeout time.Duration
}

// NewOrchestrator creates an idle Orchestrator over the given driver.
func NewOrchestrator(driver TransportDriver) *Orchestrator {
	return &Orchestrator{
		driver:        driver,
		state:         StateIdle,
		events:        newBroadcaster[StateEvent](),
		ensureTimeout: common.EnsureTimeout,
		dialTimeout:   common.DialTimeout,
		hangUpTimeout: common.HangUpTimeout,
	}
}

// Connect starts a connection attempt for the given profile. It is
// accepted only when the session is Idle or Failed; any other state
// means an attempt is in flight or a connection is up, and the call is
// rejected without touching the session. On acceptance the session
// moves to configuring before Connect returns, and the driver work
// runs on a worker goroutine.
func (o *Orchestrator) Connect(profile *ServerProfile) error {
	if profile == nil {
		common.LogWarn("Orchestrator: ignoring Connect with nil profile")
		return ErrInvalidProfile
	}
	if err := profile.Validate(); err != nil {
		common.LogWarn("Orchestrator: ignoring Connect with invalid profile: %v", err)
		return err
	}

	o.mu.Lock()
	if o.state != StateIdle && o.state != StateFailed {
		state := o.state
		o.mu.Unlock()
		common.LogWarn("Orchestrator: Connect rejected, session is %s", state)
		return ErrConnectionBusy
	}

	o.attemptID = uuid.NewString()
	o.transitionLocked("connect", StateConfiguring,
		fmt.Sprintf("Configuring transport for %s", profile.Label()), profile)
	o.wg.Add(1)
	o.mu.Unlock()

	go o.runConnect(profile)
	return nil
}

// runConnect executes one connection attempt.
func (o *Orchestrator) runConnect(profile *ServerProfile) {
	defer o.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), o.ensureTimeout)
	ok, msg := o.driver.EnsureNetworkProfile(ctx, profile.ConnectionName, profile.Address)
	cancel()
	if !ok {
		// Some tools report an already configured profile as a
		// failure; the dial is the true verdict, so this is only a
		// warning.
		common.LogWarn("Orchestrator: ensure network profile: %s", msg)
	}

	o.mu.Lock()
	o.transitionLocked("dial", StateDialing,
		fmt.Sprintf("Dialing %s", profile.Label()), profile)
	dialTimeout := o.dialTimeout
	o.mu.Unlock()

	ctx, cancel = context.WithTimeout(context.Background(), dialTimeout)
	ok, msg = o.driver.Dial(ctx, profile.ConnectionName, profile.Username, profile.Secret)
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	if dialSucceeded(ok, msg) {
		o.active = profile
		o.startedAt = time.Now()
		o.transitionLocked("connected", StateConnected,
			fmt.Sprintf("Connected to %s", profile.Label()), profile)
		return
	}
	o.transitionLocked("dial-failed", StateFailed, failureMessage(msg), profile)
}

// SetDialTimeout overrides how long a dial may run before the driver
// is cut off. Values of zero or less keep the current timeout.
func (o *Orchestrator) SetDialTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	o.mu.Lock()
	o.dialTimeout = d
	o.mu.Unlock()
}

// Disconnect hangs up the active connection and returns the session to
// Idle. The hang-up outcome does not matter: whether the driver
// reports success or failure, the session is idle afterwards, because
// a connection the OS already dropped must not stay Connected here.
// Calling Disconnect in any state other than Connected is a harmless
// no-op, so shutdown paths can always invoke it.
func (o *Orchestrator) Disconnect() error {
	o.mu.Lock()
	if o.state != StateConnected {
		state := o.state
		o.mu.Unlock()
		common.LogDebug("Orchestrator: Disconnect in state %s is a no-op", state)
		return nil
	}

	profile := o.active
	o.transitionLocked("disconnect", StateDisconnecting,
		fmt.Sprintf("Disconnecting from %s", profile.Label()), profile)
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), o.hangUpTimeout)
	ok, msg := o.driver.HangUp(ctx, profile.ConnectionName)
	cancel()
	if !ok {
		common.LogWarn("Orchestrator: hang-up reported failure: %s", msg)
	}

	o.mu.Lock()
	o.active = nil
	o.startedAt = time.Time{}
	o.transitionLocked("disconnected", StateIdle, "Disconnected", profile)
	o.mu.Unlock()
	return nil
}

// Shutdown drives the session toward Idle within the context's budget.
// It waits for an in-flight attempt to settle, then hangs up whatever
// is connected. When the context expires first, shutdown proceeds
// anyway and the error reports the abandoned wait.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		common.LogWarn("Orchestrator: shutdown wait expired with an attempt in flight")
		return ctx.Err()
	}
	return o.Disconnect()
}

// transitionLocked records a state transition: it updates the session,
// appends one log entry, reports to the diagnostic sink and publishes
// a StateEvent. Must be called with o.mu held.
func (o *Orchestrator) transitionLocked(event string, state SessionState, message string, profile *ServerProfile) {
	o.state = state
	o.lastMsg = message

	entry := LogEntry{Time: time.Now(), Event: event, State: state, Message: message}
	o.entries = append(o.entries, entry)
	common.LogInfo("Orchestrator: %s: %s", event, message)

	o.events.publish(StateEvent{
		AttemptID: o.attemptID,
		State:     state,
		Profile:   profile,
		Message:   message,
		Time:      entry.Time,
	})
}

// Session returns a snapshot of the current session.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Session{
		State:       o.state,
		AttemptID:   o.attemptID,
		LastMessage: o.lastMsg,
		ConnectedAt: o.startedAt,
	}
	if o.active != nil {
		s.ActiveProfileID = o.active.ID
		s.ActiveProfile = o.active
	}
	return s
}

// State returns the current session state.
func (o *Orchestrator) State() SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Uptime returns how long the connection has been up, zero when not
// connected.
func (o *Orchestrator) Uptime() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateConnected {
		return 0
	}
	return time.Since(o.startedAt)
}

// Log returns a copy of the session log in transition order.
func (o *Orchestrator) Log() []LogEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	entries := make([]LogEntry, len(o.entries))
	copy(entries, o.entries)
	return entries
}

// Subscribe registers an observer for session transitions. Events are
// delivered on a buffered channel and dropped rather than blocking the
// Orchestrator when the observer falls behind.
func (o *Orchestrator) Subscribe() <-chan StateEvent {
	return o.events.subscribe()
}

// Unsubscribe removes an observer and closes its channel.
func (o *Orchestrator) Unsubscribe(ch <-chan StateEvent) {
	o.events.unsubscribe(ch)
}

// dialSucceeded applies the double success criterion: some transport
// tools report success through their exit status, others only in
// message text, so either signal counts.
func dialSucceeded(ok bool, output string) bool {
	if ok {
		return true
	}
	return strings.Contains(strings.ToLower(output), common.DialSuccessMarker)
}

// failureMessage folds the driver's output into the status line shown
// to the user. Privilege problems get an explicit hint since they are
// the most common cause of a refused dial.
func failureMessage(output string) string {
	lower := strings.ToLower(output)
	if strings.Contains(lower, "permission") ||
		strings.Contains(lower, "denied") ||
		strings.Contains(lower, "not authorized") {
		return "Connection failed; " + common.ElevationHint
	}
	if line := firstLine(output); line != "" {
		return "Connection failed: " + line
	}
	return "Connection failed"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
