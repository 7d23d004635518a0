// Copyright 2025 Certen Protocol

package pipeline

import "errors"

// Sentinel error kinds returned by the pipeline façade. Callers should use
// errors.Is against these rather than matching on message text.
var (
	ErrInvalidRequest        = errors.New("pipeline: invalid request")
	ErrNotFound              = errors.New("pipeline: attestation not found")
	ErrConflict              = errors.New("pipeline: conflicting idempotency key")
	ErrIdentifierCollision   = errors.New("pipeline: identifier collision")
	ErrInvalidTransition     = errors.New("pipeline: invalid state transition")
	ErrInvalidEvidence       = errors.New("pipeline: invalid evidence")
	ErrProofFailure          = errors.New("pipeline: proof generation failed")
	ErrAnchorTransientFailure = errors.New("pipeline: anchor submission failed transiently")
	ErrAnchorPermanentFailure = errors.New("pipeline: anchor submission failed permanently")
	ErrSignatureFailure      = errors.New("pipeline: signature verification failed")
	ErrCancelled             = errors.New("pipeline: attestation cancelled")
	ErrInternal              = errors.New("pipeline: internal error")
)
