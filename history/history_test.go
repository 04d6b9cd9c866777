package history

import (
	"path/filepath"
	"testing"
	"time"

	"vpndial/vpn"
)

func tempRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func testProfile() *vpn.ServerProfile {
	return &vpn.ServerProfile{
		ID:             1,
		DisplayName:    "VPNBook US16",
		Address:        "us16.vpnbook.com",
		ConnectionName: "VPNBook_US16",
		CountryCode:    "US",
	}
}

func event(attemptID string, state vpn.SessionState, at time.Time, msg string) vpn.StateEvent {
	return vpn.StateEvent{
		AttemptID: attemptID,
		State:     state,
		Profile:   testProfile(),
		Message:   msg,
		Time:      at,
	}
}

func TestRecorder_ConnectedCycle(t *testing.T) {
	r := tempRecorder(t)
	start := time.Unix(1756100000, 0)

	r.HandleEvent(event("attempt-1", vpn.StateConfiguring, start, "Configuring"))
	r.HandleEvent(event("attempt-1", vpn.StateDialing, start.Add(time.Second), "Dialing"))
	r.HandleEvent(event("attempt-1", vpn.StateConnected, start.Add(3*time.Second), "Connected to VPNBook US16"))
	r.HandleEvent(event("attempt-1", vpn.StateDisconnecting, start.Add(60*time.Second), "Disconnecting"))
	r.HandleEvent(event("attempt-1", vpn.StateIdle, start.Add(61*time.Second), "Disconnected"))

	entries, err := r.Recent(10)
	if err != nil {
		t.Fatalf("Recent() = %v, want nil", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.AttemptID != "attempt-1" {
		t.Errorf("AttemptID = %q, want attempt-1", e.AttemptID)
	}
	if e.ProfileName != "VPNBook US16" || e.Address != "us16.vpnbook.com" {
		t.Errorf("profile fields = %q/%q", e.ProfileName, e.Address)
	}
	if e.ConnectedAt.IsZero() {
		t.Error("ConnectedAt should be stamped")
	}
	if e.Outcome != OutcomeDisconnected {
		t.Errorf("Outcome = %q, want %q", e.Outcome, OutcomeDisconnected)
	}
	if e.EndedAt.Before(e.StartedAt) {
		t.Error("EndedAt precedes StartedAt")
	}
}

func TestRecorder_FailedCycle(t *testing.T) {
	r := tempRecorder(t)
	start := time.Unix(1756100000, 0)

	r.HandleEvent(event("attempt-1", vpn.StateDialing, start, "Dialing"))
	r.HandleEvent(event("attempt-1", vpn.StateFailed, start.Add(2*time.Second), "Connection failed: no route to host"))

	entries, err := r.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want %q", e.Outcome, OutcomeFailed)
	}
	if e.Detail != "Connection failed: no route to host" {
		t.Errorf("Detail = %q", e.Detail)
	}
	if !e.ConnectedAt.IsZero() {
		t.Error("ConnectedAt should stay empty for a failed dial")
	}
}

func TestRecorder_OpenAttemptHasNoOutcome(t *testing.T) {
	r := tempRecorder(t)

	r.HandleEvent(event("attempt-1", vpn.StateDialing, time.Now(), "Dialing"))

	entries, err := r.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(entries))
	}
	if entries[0].Outcome != "" {
		t.Errorf("Outcome = %q for an open attempt, want empty", entries[0].Outcome)
	}
	if !entries[0].EndedAt.IsZero() {
		t.Error("EndedAt should be zero for an open attempt")
	}
}

func TestRecorder_RecentOrderAndLimit(t *testing.T) {
	r := tempRecorder(t)
	base := time.Unix(1756100000, 0)

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		at := base.Add(time.Duration(i) * time.Minute)
		r.HandleEvent(event(id, vpn.StateDialing, at, "Dialing"))
		r.HandleEvent(event(id, vpn.StateIdle, at.Add(30*time.Second), "Disconnected"))
	}

	entries, err := r.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(entries))
	}
	// Newest first.
	for i := 1; i < len(entries); i++ {
		if entries[i].StartedAt.After(entries[i-1].StartedAt) {
			t.Errorf("entries out of order: %v before %v", entries[i-1].StartedAt, entries[i].StartedAt)
		}
	}
	if entries[0].AttemptID != "e" {
		t.Errorf("newest attempt = %q, want e", entries[0].AttemptID)
	}
}

func TestRecorder_IgnoresUnknownAndEmptyAttempts(t *testing.T) {
	r := tempRecorder(t)

	// Updates for attempts that were never opened are silent no-ops.
	r.HandleEvent(event("ghost", vpn.StateConnected, time.Now(), ""))
	r.HandleEvent(event("", vpn.StateDialing, time.Now(), ""))

	entries, err := r.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Recent() returned %d entries, want 0", len(entries))
	}
}

func TestRecorder_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r.HandleEvent(event("attempt-1", vpn.StateDialing, time.Unix(1756100000, 0), "Dialing"))
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after close = %v, want nil", err)
	}
	defer reopened.Close()

	entries, err := reopened.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Recent() after reopen returned %d entries, want 1", len(entries))
	}
}
