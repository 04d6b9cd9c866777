// Package vpn provides the server catalog and connection orchestration.
// This file contains the Registry, the in-memory source of truth for
// the profile collection.
package vpn

import (
	"fmt"
	"sync"

	"vpndial/common"
)

// Common errors - re-exported from common package for convenience.
var (
	ErrInvalidProfile  = common.ErrInvalidProfile
	ErrDuplicateID     = common.ErrDuplicateID
	ErrProfileNotFound = common.ErrProfileNotFound
)

// Registry owns the in-memory profile collection and funnels every
// mutation through Add and Remove, so the persisted store can never be
// bypassed. Each successful mutation saves the full collection first
// and then publishes a change event; an observer reacting to the event
// can always trust that the file matches what it now sees.
//
// The Registry holds its own lock, independent of the Orchestrator, so
// catalog edits never wait on a connection attempt in flight.
type Registry struct {
	mu       sync.Mutex
	store    *Store
	profiles []*ServerProfile
	events   *broadcaster[RegistryEvent]
}

// NewRegistry creates a Registry over the given store and synchronously
// loads the persisted collection before first use.
func NewRegistry(store *Store) *Registry {
	return &Registry{
		store:    store,
		profiles: store.Load(),
		events:   newBroadcaster[RegistryEvent](),
	}
}

// Add appends a profile to the collection, persists the full collection
// and notifies observers, in that order, atomically with respect to
// other mutations. Nil or malformed profiles and duplicate IDs leave
// the collection untouched and are reported back to the caller.
func (r *Registry) Add(profile *ServerProfile) error {
	if profile == nil {
		common.LogWarn("Registry: ignoring Add of nil profile")
		return ErrInvalidProfile
	}
	if err := profile.Validate(); err != nil {
		common.LogWarn("Registry: ignoring Add of invalid profile: %v", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.profiles {
		if existing.ID == profile.ID {
			common.LogWarn("Registry: ignoring Add with duplicate ID %d", profile.ID)
			return fmt.Errorf("%w: %d", ErrDuplicateID, profile.ID)
		}
	}

	r.profiles = append(r.profiles, profile)
	r.store.Save(r.profiles)
	r.events.publish(RegistryEvent{Kind: ProfileAdded, Profile: profile})

	common.LogInfo("Registry: added profile %q (%s)", profile.Label(), profile.ConnectionName)
	return nil
}

// Remove deletes a profile by ID equality. Removing a profile that is
// not in the collection is a harmless no-op. Returns whether anything
// was removed.
func (r *Registry) Remove(profile *ServerProfile) bool {
	if profile == nil {
		return false
	}
	return r.RemoveByID(profile.ID)
}

// RemoveByID deletes the profile with the given ID, persists and
// notifies. Returns false when no profile matched.
func (r *Registry) RemoveByID(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.profiles {
		if p.ID == id {
			r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
			r.store.Save(r.profiles)
			r.events.publish(RegistryEvent{Kind: ProfileRemoved, Profile: p})
			common.LogInfo("Registry: removed profile %q", p.Label())
			return true
		}
	}
	return false
}

// Get retrieves a profile by ID.
func (r *Registry) Get(id int64) (*ServerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrProfileNotFound
}

// List returns a snapshot of the collection in insertion order. The
// returned slice is the caller's to keep; mutating it does not touch
// the Registry.
func (r *Registry) List() []*ServerProfile {
	r.mu.Lock()
	defer r.mu.Unlock()

	profiles := make([]*ServerProfile, len(r.profiles))
	copy(profiles, r.profiles)
	return profiles
}

// Len returns the number of profiles in the collection.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}

// Subscribe registers an observer for collection changes. Events are
// delivered on a buffered channel and dropped rather than blocking the
// Registry when the observer falls behind.
func (r *Registry) Subscribe() <-chan RegistryEvent {
	return r.events.subscribe()
}

// Unsubscribe removes an observer and closes its channel.
func (r *Registry) Unsubscribe(ch <-chan RegistryEvent) {
	r.events.unsubscribe(ch)
}
