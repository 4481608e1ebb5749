package lockout

import "context"

// Status is a point-in-time view of an identifier's lockout state
type Status struct {
	Locked            bool `json:"locked"`
	AttemptsRemaining int  `json:"attempts_remaining"`
	MinutesRemaining  int  `json:"minutes_remaining"`
}

// Store persists failed attempts. Implementations must apply the same sliding
// window as Tracker and must not lose concurrent failures for one identifier.
//
// RecordFailure returns the status that includes the new failure. triggered is true
// for exactly one failure per transition into the locked state, even under concurrency.
type Store interface {
	RecordFailure(ctx context.Context, identifier string) (status Status, triggered bool, err error)
	Status(ctx context.Context, identifier string) (Status, error)
	Reset(ctx context.Context, identifier string) error
}

// MemoryStore adapts a Tracker to the Store interface. State lives in process
// memory: it is lost on restart and is not shared between replicas.
type MemoryStore struct {
	tracker *Tracker
}

// NewMemoryStore creates a Store backed by tracker
func NewMemoryStore(tracker *Tracker) *MemoryStore {
	return &MemoryStore{tracker: tracker}
}

// RecordFailure records a failed attempt. It never fails.
func (m *MemoryStore) RecordFailure(_ context.Context, identifier string) (Status, bool, error) {
	status, triggered := m.tracker.RecordFailureStatus(identifier)
	return status, triggered, nil
}

// Status returns the lock state for identifier. It never fails.
func (m *MemoryStore) Status(_ context.Context, identifier string) (Status, error) {
	return m.tracker.Status(identifier), nil
}

// Reset clears identifier. It never fails.
func (m *MemoryStore) Reset(_ context.Context, identifier string) error {
	m.tracker.Reset(identifier)
	return nil
}
