package vpn

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"vpndial/common"
)

// stubDriver is a scriptable TransportDriver for orchestrator tests.
type stubDriver struct {
	mu          sync.Mutex
	ensureOK    bool
	ensureMsg   string
	dialOK      bool
	dialMsg     string
	hangUpOK    bool
	hangUpMsg   string
	ensureCalls int
	dialCalls   int
	hangUpCalls int
	dialGate    chan struct{} // when set, Dial blocks until closed
}

func okDriver() *stubDriver {
	return &stubDriver{ensureOK: true, dialOK: true, hangUpOK: true}
}

func (d *stubDriver) EnsureNetworkProfile(ctx context.Context, connectionName, address string) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensureCalls++
	return d.ensureOK, d.ensureMsg
}

func (d *stubDriver) Dial(ctx context.Context, connectionName, username, secret string) (bool, string) {
	d.mu.Lock()
	d.dialCalls++
	gate := d.dialGate
	ok, msg := d.dialOK, d.dialMsg
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return ok, msg
}

func (d *stubDriver) HangUp(ctx context.Context, connectionName string) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hangUpCalls++
	return d.hangUpOK, d.hangUpMsg
}

func (d *stubDriver) setDial(ok bool, msg string) {
	d.mu.Lock()
	d.dialOK, d.dialMsg = ok, msg
	d.mu.Unlock()
}

func (d *stubDriver) calls() (ensure, dial, hangUp int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureCalls, d.dialCalls, d.hangUpCalls
}

func testProfile() *ServerProfile {
	return &ServerProfile{
		ID:             1,
		DisplayName:    "VPNBook US16",
		Address:        "us16.vpnbook.com",
		Username:       "vpnbook",
		Secret:         "m4mkacr",
		ConnectionName: "VPNBook_US16",
		CountryCode:    "US",
	}
}

func waitForState(t *testing.T, o *Orchestrator, want SessionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session state = %v, want %v", o.State(), want)
}

func TestOrchestrator_ConnectSuccess(t *testing.T) {
	d := okDriver()
	o := NewOrchestrator(d)

	p := testProfile()
	if err := o.Connect(p); err != nil {
		t.Fatalf("Connect() = %v, want nil", err)
	}
	waitForState(t, o, StateConnected)

	s := o.Session()
	if s.ActiveProfileID != p.ID {
		t.Errorf("ActiveProfileID = %d, want %d", s.ActiveProfileID, p.ID)
	}
	if s.LastMessage != "Connected to VPNBook US16" {
		t.Errorf("LastMessage = %q, want %q", s.LastMessage, "Connected to VPNBook US16")
	}

	ensure, dial, _ := d.calls()
	if ensure != 1 || dial != 1 {
		t.Errorf("driver calls ensure=%d dial=%d, want 1 and 1", ensure, dial)
	}
}

func TestOrchestrator_EnsureFailureIsNotFatal(t *testing.T) {
	d := okDriver()
	d.ensureOK = false
	d.ensureMsg = "profile already exists"
	o := NewOrchestrator(d)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateConnected)

	_, dial, _ := d.calls()
	if dial != 1 {
		t.Errorf("dial calls = %d, want 1 despite ensure failure", dial)
	}
}

func TestOrchestrator_DialFailureThenRetry(t *testing.T) {
	d := okDriver()
	d.setDial(false, "Remote peer refused the connection")
	o := NewOrchestrator(d)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateFailed)

	s := o.Session()
	if s.ActiveProfileID != 0 {
		t.Errorf("ActiveProfileID = %d after failed dial, want 0", s.ActiveProfileID)
	}
	if !strings.HasPrefix(s.LastMessage, "Connection failed") {
		t.Errorf("LastMessage = %q, want a connection-failed status", s.LastMessage)
	}

	// Failed is a retryable state.
	d.setDial(true, "")
	if err := o.Connect(testProfile()); err != nil {
		t.Fatalf("Connect() after failure = %v, want nil", err)
	}
	waitForState(t, o, StateConnected)
}

func TestOrchestrator_MarkerOverridesExitStatus(t *testing.T) {
	d := okDriver()
	d.setDial(false, "Connection Successfully activated on device tun0")
	o := NewOrchestrator(d)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateConnected)
}

func TestOrchestrator_ElevationHint(t *testing.T) {
	d := okDriver()
	d.setDial(false, "Error: Permission denied by polkit")
	o := NewOrchestrator(d)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateFailed)

	if got := o.Session().LastMessage; !strings.Contains(got, common.ElevationHint) {
		t.Errorf("LastMessage = %q, want elevation hint", got)
	}
}

func TestOrchestrator_ConnectWhileDialingIsNoOp(t *testing.T) {
	d := okDriver()
	d.dialGate = make(chan struct{})
	o := NewOrchestrator(d)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateDialing)

	other := testProfile()
	other.ID = 2
	if err := o.Connect(other); !errors.Is(err, common.ErrConnectionBusy) {
		t.Errorf("Connect() while dialing = %v, want ErrConnectionBusy", err)
	}

	if got := o.Session().ActiveProfileID; got != 0 {
		t.Errorf("ActiveProfileID = %d while dialing, want 0", got)
	}
	_, dial, _ := d.calls()
	if dial != 1 {
		t.Errorf("dial calls = %d, want 1 (no restart)", dial)
	}

	close(d.dialGate)
	waitForState(t, o, StateConnected)

	if got := o.Session().ActiveProfileID; got != 1 {
		t.Errorf("ActiveProfileID = %d, want the first profile", got)
	}
}

func TestOrchestrator_ConnectNilProfile(t *testing.T) {
	o := NewOrchestrator(okDriver())

	if err := o.Connect(nil); !errors.Is(err, common.ErrInvalidProfile) {
		t.Errorf("Connect(nil) = %v, want ErrInvalidProfile", err)
	}
	if o.State() != StateIdle {
		t.Errorf("state = %v after Connect(nil), want Idle", o.State())
	}
}

func TestOrchestrator_ConnectInvalidProfile(t *testing.T) {
	o := NewOrchestrator(okDriver())

	if err := o.Connect(&ServerProfile{ID: 1}); !errors.Is(err, common.ErrInvalidProfile) {
		t.Errorf("Connect(invalid) = %v, want ErrInvalidProfile", err)
	}
	if o.State() != StateIdle {
		t.Errorf("state = %v, want Idle", o.State())
	}
}

func TestOrchestrator_DisconnectAlwaysReachesIdle(t *testing.T) {
	tests := []struct {
		name     string
		hangUpOK bool
	}{
		{"hang-up succeeds", true},
		{"hang-up fails", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := okDriver()
			d.hangUpOK = tt.hangUpOK
			d.hangUpMsg = "hang-up output"
			o := NewOrchestrator(d)

			if err := o.Connect(testProfile()); err != nil {
				t.Fatal(err)
			}
			waitForState(t, o, StateConnected)

			if err := o.Disconnect(); err != nil {
				t.Fatalf("Disconnect() = %v, want nil", err)
			}

			s := o.Session()
			if s.State != StateIdle {
				t.Errorf("state = %v, want Idle", s.State)
			}
			if s.ActiveProfileID != 0 {
				t.Errorf("ActiveProfileID = %d, want 0", s.ActiveProfileID)
			}
			if s.LastMessage != "Disconnected" {
				t.Errorf("LastMessage = %q, want Disconnected", s.LastMessage)
			}

			_, _, hangUp := d.calls()
			if hangUp != 1 {
				t.Errorf("hang-up calls = %d, want 1", hangUp)
			}
		})
	}
}

func TestOrchestrator_DisconnectFromIdleIsNoOp(t *testing.T) {
	d := okDriver()
	o := NewOrchestrator(d)

	if err := o.Disconnect(); err != nil {
		t.Errorf("Disconnect() from Idle = %v, want nil", err)
	}
	if o.State() != StateIdle {
		t.Errorf("state = %v, want Idle", o.State())
	}
	if len(o.Log()) != 0 {
		t.Errorf("log has %d entries after no-op Disconnect, want 0", len(o.Log()))
	}
	if _, _, hangUp := d.calls(); hangUp != 0 {
		t.Errorf("hang-up calls = %d, want 0", hangUp)
	}
}

func TestOrchestrator_LogRecordsEveryTransition(t *testing.T) {
	o := NewOrchestrator(okDriver())

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateConnected)
	if err := o.Disconnect(); err != nil {
		t.Fatal(err)
	}

	entries := o.Log()
	wantEvents := []string{"connect", "dial", "connected", "disconnect", "disconnected"}
	wantStates := []SessionState{StateConfiguring, StateDialing, StateConnected, StateDisconnecting, StateIdle}

	if len(entries) != len(wantEvents) {
		t.Fatalf("log has %d entries, want %d", len(entries), len(wantEvents))
	}
	for i, e := range entries {
		if e.Event != wantEvents[i] {
			t.Errorf("entry %d event = %q, want %q", i, e.Event, wantEvents[i])
		}
		if e.State != wantStates[i] {
			t.Errorf("entry %d state = %v, want %v", i, e.State, wantStates[i])
		}
		if e.Time.IsZero() {
			t.Errorf("entry %d has zero timestamp", i)
		}
		if i > 0 && e.Time.Before(entries[i-1].Time) {
			t.Errorf("entry %d is out of order", i)
		}
	}
}

func TestOrchestrator_EventsShareAttemptID(t *testing.T) {
	o := NewOrchestrator(okDriver())
	events := o.Subscribe()
	defer o.Unsubscribe(events)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateConnected)

	var got []StateEvent
	for len(got) < 3 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("received %d events, want 3", len(got))
		}
	}

	if got[0].State != StateConfiguring || got[1].State != StateDialing || got[2].State != StateConnected {
		t.Errorf("event states = %v %v %v", got[0].State, got[1].State, got[2].State)
	}
	if got[0].AttemptID == "" {
		t.Error("attempt ID should not be empty")
	}
	for i := 1; i < 3; i++ {
		if got[i].AttemptID != got[0].AttemptID {
			t.Errorf("event %d attempt ID %q differs from %q", i, got[i].AttemptID, got[0].AttemptID)
		}
	}
	if got[2].Profile == nil || got[2].Profile.ID != 1 {
		t.Error("connected event should carry the profile")
	}
}

func TestOrchestrator_NewAttemptGetsNewID(t *testing.T) {
	d := okDriver()
	d.setDial(false, "no route to host")
	o := NewOrchestrator(d)
	events := o.Subscribe()
	defer o.Unsubscribe(events)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateFailed)

	first := o.Session().AttemptID

	d.setDial(true, "")
	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateConnected)

	second := o.Session().AttemptID
	if first == "" || second == "" || first == second {
		t.Errorf("attempt IDs should differ: %q vs %q", first, second)
	}
}

func TestOrchestrator_Uptime(t *testing.T) {
	o := NewOrchestrator(okDriver())
	if o.Uptime() != 0 {
		t.Error("Uptime() should be 0 when idle")
	}

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateConnected)

	time.Sleep(20 * time.Millisecond)
	if o.Uptime() <= 0 {
		t.Error("Uptime() should grow while connected")
	}

	if err := o.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if o.Uptime() != 0 {
		t.Error("Uptime() should be 0 after disconnect")
	}
}

func TestOrchestrator_SetDialTimeout(t *testing.T) {
	o := NewOrchestrator(okDriver())

	o.SetDialTimeout(5 * time.Second)
	if o.dialTimeout != 5*time.Second {
		t.Errorf("dialTimeout = %v, want 5s", o.dialTimeout)
	}

	// Zero and negative values keep the current timeout.
	o.SetDialTimeout(0)
	o.SetDialTimeout(-time.Second)
	if o.dialTimeout != 5*time.Second {
		t.Errorf("dialTimeout = %v, want unchanged 5s", o.dialTimeout)
	}
}

func TestOrchestrator_ShutdownBounded(t *testing.T) {
	d := okDriver()
	d.dialGate = make(chan struct{})
	o := NewOrchestrator(d)

	if err := o.Connect(testProfile()); err != nil {
		t.Fatal(err)
	}
	waitForState(t, o, StateDialing)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := o.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown() took %v, want a bounded wait", elapsed)
	}

	// Let the attempt finish and shut down cleanly this time.
	close(d.dialGate)
	waitForState(t, o, StateConnected)

	if err := o.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
	if o.State() != StateIdle {
		t.Errorf("state = %v after shutdown, want Idle", o.State())
	}
}

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state    SessionState
		expected string
	}{
		{StateIdle, "Idle"},
		{StateConfiguring, "Configuring transport..."},
		{StateDialing, "Dialing..."},
		{StateConnected, "Connected"},
		{StateDisconnecting, "Disconnecting..."},
		{StateFailed, "Failed"},
		{SessionState(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("SessionState.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDialSucceeded(t *testing.T) {
	tests := []struct {
		name     string
		ok       bool
		output   string
		expected bool
	}{
		{"exit ok", true, "", true},
		{"exit ok with noise", true, "some output", true},
		{"marker only", false, "Connection successfully activated", true},
		{"marker case-insensitive", false, "SUCCESSFULLY CONNECTED", true},
		{"plain failure", false, "no route to host", false},
		{"empty failure", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dialSucceeded(tt.ok, tt.output); got != tt.expected {
				t.Errorf("dialSucceeded(%v, %q) = %v, want %v", tt.ok, tt.output, got, tt.expected)
			}
		})
	}
}
