// Copyright 2025 Certen Protocol
//
// Anchor Dispatcher
// Submits package digests to a ledger adapter with exponential backoff,
// classifying failures as transient (retried) or permanent (recorded).

package anchor

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/metrics"
)

// Note is the canonical payload submitted to a ledger adapter.
type Note struct {
	Protocol      string `json:"protocol"`
	Version       string `json:"version"`
	AttestationID string `json:"attestation_id"`
	MerkleRoot    string `json:"merkle_root"`
	PackageHash   string `json:"package_hash"`
	Timestamp     string `json:"timestamp"`
}

// Record is the outcome of a successful submission, stored on the
// attestation's anchor field.
type Record struct {
	Chain         string `json:"chain"`
	Network       string `json:"network"`
	TransactionID string `json:"transaction_id"`
	BlockHeight   int64  `json:"block_height"`
	Confirmations int    `json:"confirmations"`
	ExplorerURL   string `json:"explorer_url"`
}

// FailureRecord is stored when every retry attempt is exhausted or a
// permanent failure is classified.
type FailureRecord struct {
	Error string `json:"error"`
}

// TransientError wraps a submission failure the dispatcher should retry.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a submission failure the dispatcher must not retry
// (malformed key, insufficient funds, rejection by the chain).
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Adapter is the abstract ledger collaborator. Implementations: an EVM
// adapter (zero-value self-transfer carrying note bytes as calldata), any
// other chain with an opaque memo field, or NullAdapter, which rejects
// every submission.
type Adapter interface {
	Submit(ctx context.Context, noteBytes []byte) (*Record, error)
	Lookup(ctx context.Context, transactionID string) ([]byte, error)
}

// RetryConfig governs the dispatcher's backoff schedule.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxElapsed  time.Duration
}

// DefaultRetryConfig matches the default backoff schedule: base 500ms,
// cap 30s total elapsed.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxElapsed: 30 * time.Second}
}

// Dispatcher retries an Adapter's Submit call under the configured backoff
// schedule and classifies terminal failures.
type Dispatcher struct {
	adapter Adapter
	retry   RetryConfig
	logger  *log.Logger
}

// NewDispatcher wraps adapter with retry/backoff semantics. A nil adapter
// means anchoring is disabled; callers should skip the dispatcher entirely
// in that case; the state machine moves straight to valid without it.
func NewDispatcher(adapter Adapter, retry RetryConfig) *Dispatcher {
	return &Dispatcher{
		adapter: adapter,
		retry:   retry,
		logger:  log.New(os.Stdout, "[Anchor] ", log.LstdFlags),
	}
}

// Submit retries adapter.Submit on transient failures, backing off
// exponentially with the configured base delay and a factor of 2, until
// MaxAttempts is reached or MaxElapsed has passed. Permanent failures
// return immediately without further attempts.
func (d *Dispatcher) Submit(ctx context.Context, note Note, noteBytes []byte) (*Record, error) {
	start := time.Now()
	delay := d.retry.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
		record, err := d.adapter.Submit(ctx, noteBytes)
		if err == nil {
			return record, nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			d.logger.Printf("anchor submission permanently failed for %s: %v", note.AttestationID, perm)
			metrics.AnchorFailures.WithLabelValues("permanent").Inc()
			return nil, perm
		}

		lastErr = err
		metrics.AnchorRetries.Inc()
		d.logger.Printf("anchor submission attempt %d/%d failed for %s: %v", attempt, d.retry.MaxAttempts, note.AttestationID, err)

		if time.Since(start) >= d.retry.MaxElapsed || attempt == d.retry.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	metrics.AnchorFailures.WithLabelValues("transient").Inc()
	return nil, &PermanentError{Err: errors.New("anchor: retries exhausted: " + lastErr.Error())}
}

// NullAdapter rejects every submission with a PermanentError. When no
// ledger is configured the dispatcher is not invoked at all; NullAdapter
// exists so call sites that always hold an Adapter reference can still be
// exercised in tests.
type NullAdapter struct{}

func (NullAdapter) Submit(ctx context.Context, noteBytes []byte) (*Record, error) {
	return nil, &PermanentError{Err: errors.New("anchor: no adapter configured")}
}

func (NullAdapter) Lookup(ctx context.Context, transactionID string) ([]byte, error) {
	return nil, errors.New("anchor: no adapter configured")
}
