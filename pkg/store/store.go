// Copyright 2025 Certen Protocol
//
// In-memory state store for attestations, verification receipts, and
// idempotency keys. Concurrent readers, serialized per-identifier writers.

package store

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("store: record not found")
	ErrConflict = errors.New("store: conflicting update")
)

// Attestation is the store's record shape. Callers (pkg/pipeline) own the
// field semantics; the store only guarantees atomic whole-record reads and
// per-identifier serialized updates, each of which bumps Revision.
type Attestation struct {
	ID             string
	State          string
	CreatedAt      time.Time
	CompletedAt    *time.Time
	Control        interface{}
	Interpretation interface{}
	Evidence       interface{}
	Proof          interface{}
	Package        interface{}
	Anchor         interface{}
	Metadata       interface{}
	ErrorReason    string
	Events         []Event
	Revision       uint64
}

// Event is one entry in an attestation's bounded transition log.
type Event struct {
	From     string
	To       string
	At       time.Time
	Reason   string
	PrevHash string
	Hash     string
}

const maxEvents = 32

// Receipt is a stored, immutable verification receipt.
type Receipt struct {
	ID            string
	AttestationID string
	CreatedAt     time.Time
	Body          interface{}
}

// idempotencyEntry binds a client-chosen key to the attestation it created.
type idempotencyEntry struct {
	AttestationID string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Store is the concurrent in-memory backing for attestation state. Every
// exported method is safe to call from multiple goroutines.
type Store struct {
	mu           sync.RWMutex
	attestations map[string]*Attestation
	receipts     map[string]*Receipt
	idempotency  map[string]*idempotencyEntry
	attestMu     map[string]*sync.Mutex // per-identifier update_with serialization
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		attestations: make(map[string]*Attestation),
		receipts:     make(map[string]*Receipt),
		idempotency:  make(map[string]*idempotencyEntry),
		attestMu:     make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.attestMu[id]
	if !ok {
		m = &sync.Mutex{}
		s.attestMu[id] = m
	}
	return m
}

// PutAttestation inserts a new attestation. Returns ErrConflict if the
// identifier is already present.
func (s *Store) PutAttestation(a *Attestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attestations[a.ID]; exists {
		return ErrConflict
	}
	cp := *a
	s.attestations[a.ID] = &cp
	return nil
}

// GetAttestation returns a copy of the attestation so callers can never
// mutate stored state without going through UpdateAttestation.
func (s *Store) GetAttestation(id string) (*Attestation, error) {
	s.mu.RLock()
	a, ok := s.attestations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	cp.Events = append([]Event(nil), a.Events...)
	return &cp, nil
}

// UpdateFn mutates a copy of the current attestation in place. Returning an
// error aborts the update without touching the stored record.
type UpdateFn func(a *Attestation) error

// UpdateAttestation performs a compare-and-set update: it serializes
// concurrent updates to the same identifier, applies fn to a private copy,
// appends any new trailing events to the bounded log, bumps the revision
// counter, and publishes the result atomically.
func (s *Store) UpdateAttestation(id string, fn UpdateFn) (*Attestation, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.attestations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	working := *current
	working.Events = append([]Event(nil), current.Events...)

	if err := fn(&working); err != nil {
		return nil, err
	}

	if len(working.Events) > maxEvents {
		working.Events = working.Events[len(working.Events)-maxEvents:]
	}
	working.Revision = current.Revision + 1

	s.mu.Lock()
	s.attestations[id] = &working
	s.mu.Unlock()

	cp := working
	cp.Events = append([]Event(nil), working.Events...)
	return &cp, nil
}

// ListFilter narrows List results; zero values mean "no filter".
type ListFilter struct {
	State  string
	Limit  int
	Offset int
}

// List returns attestations ordered by CreatedAt ascending, applying the
// filter's state predicate, offset, and limit (capped at 200).
func (s *Store) List(f ListFilter) []*Attestation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Attestation, 0, len(s.attestations))
	for _, a := range s.attestations {
		if f.State != "" && a.State != f.State {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	out := make([]*Attestation, end-offset)
	for i, a := range all[offset:end] {
		cp := *a
		cp.Events = append([]Event(nil), a.Events...)
		out[i] = &cp
	}
	return out
}

// PutReceipt stores an immutable verification receipt.
func (s *Store) PutReceipt(r *Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.receipts[r.ID] = &cp
}

// GetReceipt returns the stored receipt or ErrNotFound.
func (s *Store) GetReceipt(id string) (*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// PutIfAbsentIdempotency resolves the at-most-once-per-key race: it stores
// (key -> attestationID) if key is unseen or its prior entry has expired,
// and otherwise returns the winning attestationID and ok=false.
func (s *Store) PutIfAbsentIdempotency(key, attestationID string, now time.Time, ttl time.Duration) (winnerID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, found := s.idempotency[key]; found && now.Before(existing.ExpiresAt) {
		return existing.AttestationID, false
	}

	s.idempotency[key] = &idempotencyEntry{
		AttestationID: attestationID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	return attestationID, true
}

// ExpireIdempotency drops idempotency entries whose TTL has elapsed as of
// now. Returns the number of entries removed.
func (s *Store) ExpireIdempotency(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, v := range s.idempotency {
		if !now.Before(v.ExpiresAt) {
			delete(s.idempotency, k)
			removed++
		}
	}
	return removed
}

// ResetAll clears every record. Demo-mode only; never called from request
// handling paths.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attestations = make(map[string]*Attestation)
	s.receipts = make(map[string]*Receipt)
	s.idempotency = make(map[string]*idempotencyEntry)
	s.attestMu = make(map[string]*sync.Mutex)
}
