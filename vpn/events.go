// Package vpn provides the server catalog and connection orchestration.
// This file contains the event fan-out used for change notifications.
package vpn

import "sync"

// eventBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind than this starts losing events.
const eventBuffer = 16

// RegistryEventKind identifies what changed in the Registry.
type RegistryEventKind int

const (
	// ProfileAdded means a profile was added to the collection.
	ProfileAdded RegistryEventKind = iota
	// ProfileRemoved means a profile was removed from the collection.
	ProfileRemoved
)

// String returns a human-readable representation of the event kind.
func (k RegistryEventKind) String() string {
	switch k {
	case ProfileAdded:
		return "added"
	case ProfileRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// RegistryEvent is published after every successful Registry mutation.
// By the time an observer sees it, the store already matches the
// in-memory collection.
type RegistryEvent struct {
	Kind    RegistryEventKind
	Profile *ServerProfile
}

// broadcaster fans events out to subscribers over buffered channels.
// Publish never blocks: when a subscriber's buffer is full the event
// is dropped for that subscriber, so a stalled observer cannot stall
// the publishing component.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[chan T]struct{})}
}

func (b *broadcaster[T]) subscribe() chan T {
	ch := make(chan T, eventBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster[T]) unsubscribe(ch <-chan T) {
	b.mu.Lock()
	for sub := range b.subs {
		if (<-chan T)(sub) == ch {
			delete(b.subs, sub)
			close(sub)
			break
		}
	}
	b.mu.Unlock()
}

func (b *broadcaster[T]) publish(event T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
