package store

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newAttestation(id string) *Attestation {
	return &Attestation{
		ID:        id,
		State:     "pending",
		CreatedAt: time.Now(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	if err := s.PutAttestation(newAttestation("ATT-1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetAttestation("ATT-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "ATT-1" || got.State != "pending" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestPutDuplicateConflicts(t *testing.T) {
	s := New()
	_ = s.PutAttestation(newAttestation("ATT-1"))
	if err := s.PutAttestation(newAttestation("ATT-1")); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetMissingNotFound(t *testing.T) {
	s := New()
	if _, err := s.GetAttestation("nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateWithConcurrentSerializesPerIdentifier(t *testing.T) {
	s := New()
	_ = s.PutAttestation(newAttestation("ATT-1"))

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateAttestation("ATT-1", func(a *Attestation) error {
				a.Events = append(a.Events, Event{From: a.State, To: "computing_commitment"})
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.GetAttestation("ATT-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Revision != n {
		t.Fatalf("expected revision %d, got %d", n, got.Revision)
	}
}

func TestEventLogBounded(t *testing.T) {
	s := New()
	_ = s.PutAttestation(newAttestation("ATT-1"))

	for i := 0; i < 50; i++ {
		_, err := s.UpdateAttestation("ATT-1", func(a *Attestation) error {
			a.Events = append(a.Events, Event{From: "x", To: fmt.Sprintf("y%d", i)})
			return nil
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, _ := s.GetAttestation("ATT-1")
	if len(got.Events) != 32 {
		t.Fatalf("expected bounded log of 32, got %d", len(got.Events))
	}
	if got.Events[len(got.Events)-1].To != "y49" {
		t.Fatalf("expected most recent event retained, got %+v", got.Events[len(got.Events)-1])
	}
}

func TestPutIfAbsentIdempotencyResolvesRace(t *testing.T) {
	s := New()
	now := time.Now()

	const n = 50
	var wg sync.WaitGroup
	winners := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			winnerID, _ := s.PutIfAbsentIdempotency("k-1", fmt.Sprintf("ATT-%d", i), now, time.Hour)
			winners[i] = winnerID
		}(i)
	}
	wg.Wait()

	first := winners[0]
	for _, w := range winners {
		if w != first {
			t.Fatalf("expected all callers to observe the same winner, got %v", winners)
		}
	}
}

func TestPutIfAbsentIdempotencyExpires(t *testing.T) {
	s := New()
	now := time.Now()

	winner, ok := s.PutIfAbsentIdempotency("k-1", "ATT-1", now, time.Second)
	if !ok || winner != "ATT-1" {
		t.Fatalf("expected fresh key to win, got %s/%v", winner, ok)
	}

	later := now.Add(2 * time.Second)
	winner2, ok2 := s.PutIfAbsentIdempotency("k-1", "ATT-2", later, time.Second)
	if !ok2 || winner2 != "ATT-2" {
		t.Fatalf("expected expired key to be replaced, got %s/%v", winner2, ok2)
	}
}

func TestExpireIdempotency(t *testing.T) {
	s := New()
	now := time.Now()
	s.PutIfAbsentIdempotency("k-1", "ATT-1", now, time.Second)

	removed := s.ExpireIdempotency(now.Add(2 * time.Second))
	if removed != 1 {
		t.Fatalf("expected 1 expired entry, got %d", removed)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		a := newAttestation(fmt.Sprintf("ATT-%d", i))
		a.CreatedAt = time.Now().Add(time.Duration(i) * time.Millisecond)
		if i%2 == 0 {
			a.State = "valid"
		}
		_ = s.PutAttestation(a)
	}

	valid := s.List(ListFilter{State: "valid"})
	if len(valid) != 3 {
		t.Fatalf("expected 3 valid attestations, got %d", len(valid))
	}

	page := s.List(ListFilter{Limit: 2, Offset: 1})
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
}

func TestResetAllClearsEverything(t *testing.T) {
	s := New()
	_ = s.PutAttestation(newAttestation("ATT-1"))
	s.PutReceipt(&Receipt{ID: "R-1", AttestationID: "ATT-1"})
	s.PutIfAbsentIdempotency("k-1", "ATT-1", time.Now(), time.Hour)

	s.ResetAll()

	if _, err := s.GetAttestation("ATT-1"); err != ErrNotFound {
		t.Fatal("expected attestations cleared")
	}
	if _, err := s.GetReceipt("R-1"); err != ErrNotFound {
		t.Fatal("expected receipts cleared")
	}
}
