package vpn

import "testing"

func TestBroadcaster_PublishReachesSubscribers(t *testing.T) {
	b := newBroadcaster[int]()
	first := b.subscribe()
	second := b.subscribe()

	b.publish(42)

	if got := <-first; got != 42 {
		t.Errorf("first subscriber got %d, want 42", got)
	}
	if got := <-second; got != 42 {
		t.Errorf("second subscriber got %d, want 42", got)
	}
}

func TestBroadcaster_PublishNeverBlocks(t *testing.T) {
	b := newBroadcaster[int]()
	ch := b.subscribe()

	// Publish past the buffer without draining; extra events are
	// dropped for the slow subscriber instead of blocking publish.
	for i := 0; i < eventBuffer*2; i++ {
		b.publish(i)
	}

	if len(ch) != eventBuffer {
		t.Errorf("buffered %d events, want %d", len(ch), eventBuffer)
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := newBroadcaster[int]()
	ch := b.subscribe()
	b.unsubscribe(ch)

	// The channel is closed and no longer receives events.
	b.publish(1)
	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}

	// Unsubscribing twice is harmless.
	b.unsubscribe(ch)
}

func TestRegistryEventKind_String(t *testing.T) {
	tests := []struct {
		kind     RegistryEventKind
		expected string
	}{
		{ProfileAdded, "added"},
		{ProfileRemoved, "removed"},
		{RegistryEventKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}
