package anchor

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubAdapter struct {
	failuresBeforeSuccess int
	permanent             bool
	calls                 int
}

func (s *stubAdapter) Submit(ctx context.Context, noteBytes []byte) (*Record, error) {
	s.calls++
	if s.permanent {
		return nil, &PermanentError{Err: errors.New("insufficient funds")}
	}
	if s.calls <= s.failuresBeforeSuccess {
		return nil, &TransientError{Err: errors.New("connection reset")}
	}
	return &Record{Chain: "evm", TransactionID: "0xabc"}, nil
}

func (s *stubAdapter) Lookup(ctx context.Context, transactionID string) ([]byte, error) {
	return nil, nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxElapsed: time.Second}
}

func TestDispatcherSucceedsAfterTransientFailures(t *testing.T) {
	adapter := &stubAdapter{failuresBeforeSuccess: 2}
	d := NewDispatcher(adapter, fastRetryConfig())

	record, err := d.Submit(context.Background(), Note{AttestationID: "ATT-1"}, []byte("note"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.TransactionID != "0xabc" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if adapter.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", adapter.calls)
	}
}

func TestDispatcherStopsOnPermanentFailure(t *testing.T) {
	adapter := &stubAdapter{permanent: true}
	d := NewDispatcher(adapter, fastRetryConfig())

	_, err := d.Submit(context.Background(), Note{AttestationID: "ATT-1"}, []byte("note"))
	var perm *PermanentError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermanentError, got %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("expected exactly 1 attempt for a permanent failure, got %d", adapter.calls)
	}
}

func TestDispatcherExhaustsRetriesOnPersistentTransientFailure(t *testing.T) {
	adapter := &stubAdapter{failuresBeforeSuccess: 100}
	d := NewDispatcher(adapter, fastRetryConfig())

	_, err := d.Submit(context.Background(), Note{AttestationID: "ATT-1"}, []byte("note"))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if adapter.calls != 5 {
		t.Fatalf("expected 5 attempts (MaxAttempts), got %d", adapter.calls)
	}
}

func TestNullAdapterAlwaysFailsPermanently(t *testing.T) {
	var a Adapter = NullAdapter{}
	_, err := a.Submit(context.Background(), []byte("note"))
	var perm *PermanentError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermanentError, got %v", err)
	}
}
