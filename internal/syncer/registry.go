package syncer

import (
	"sync"
	"sync/atomic"

	"splice/internal/library"
	"splice/internal/timeline"
)

// Scenario tags what kind of consumer a registration serves.
type Scenario string

const (
	ScenarioTimeline Scenario = "timeline"
	ScenarioCommand  Scenario = "command"
)

// RegistrationKey identifies one consumer's interest in one media item.
// Registering the same key again replaces the previous registration.
type RegistrationKey struct {
	ConsumerID  string
	MediaItemID string
}

// registration is one live subscription bridging a media item to its
// consumer. done flips exactly once, either when a terminal status is
// handled or when the registration is cleaned up externally.
type registration struct {
	key      RegistrationKey
	scenario Scenario
	item     *library.Item

	placed   *timeline.Item // ScenarioTimeline
	cmd      Command        // ScenarioCommand
	placedID string         // timeline item id the command refers to

	done atomic.Bool

	mu    sync.Mutex
	unsub func()
}

// setUnsub stores the unsubscribe closure unless the registration already
// finished, in which case the caller must run it directly.
func (r *registration) setUnsub(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done.Load() {
		return false
	}
	r.unsub = fn
	return true
}

// takeUnsub hands out the unsubscribe closure at most once.
func (r *registration) takeUnsub() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn := r.unsub
	r.unsub = nil
	return fn
}

// registry is the process-wide map of live registrations.
type registry struct {
	mu   sync.Mutex
	regs map[RegistrationKey]*registration
}

func newRegistry() *registry {
	return &registry{regs: make(map[RegistrationKey]*registration)}
}

// put stores reg under its key and returns any registration it displaced.
func (r *registry) put(reg *registration) *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.regs[reg.key]
	r.regs[reg.key] = reg
	return old
}

// take removes and returns the registration under key, if any.
func (r *registry) take(key RegistrationKey) *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := r.regs[key]
	if reg != nil {
		delete(r.regs, key)
	}
	return reg
}

// removeIf removes key only while it still maps to reg, so a registration
// finishing itself never evicts a replacement registered in the meantime.
func (r *registry) removeIf(key RegistrationKey, reg *registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.regs[key] == reg {
		delete(r.regs, key)
	}
}

// has reports whether key maps to a live registration.
func (r *registry) has(key RegistrationKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.regs[key]
	return ok
}

// len reports the number of live registrations.
func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}

// keysForMedia returns every key registered against the given media item.
func (r *registry) keysForMedia(mediaItemID string) []RegistrationKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]RegistrationKey, 0)
	for key := range r.regs {
		if key.MediaItemID == mediaItemID {
			keys = append(keys, key)
		}
	}
	return keys
}
