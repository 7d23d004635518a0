// Copyright 2025 Certen Protocol
//
// Pipeline Façade
// The single entry point orchestrating control interpretation, evidence
// commitment, and attestation lifecycle across the synchronous and
// background phases of request handling.

package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/anchor"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/assembly"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/evidence"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/interpreter"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/lifecycle"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/metrics"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/proof"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/store"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/verification"
)

// maxIDCollisionRetries bounds how many times createWithID will mint a
// fresh identifier after a store.ErrConflict before giving up.
const maxIDCollisionRetries = 3

// newIdentifier mints a human-readable, time-sortable identifier of the
// form PREFIX-YYYYMMDDHHMMSS-XXXXXX: a seconds-precision UTC timestamp
// followed by 6 hex characters drawn from a CSPRNG.
func newIdentifier(prefix string, now time.Time) (string, error) {
	var suffix [3]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("generate identifier suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), hex.EncodeToString(suffix[:])), nil
}

// Config governs the façade's synchronous behavior.
type Config struct {
	IssuerID       string
	ValidityPeriod time.Duration
	IdempotencyTTL time.Duration
	CreateTimeout  time.Duration
}

// Pipeline is the request-handling façade. It owns the synchronous portion of request
// handling (validation, evidence commitment, interpretation) and hands the
// rest to the lifecycle engine.
type Pipeline struct {
	store       *store.Store
	engine      *lifecycle.Engine
	interpreter *interpreter.Interpreter
	signer      *signing.Signer
	verifier    proof.Verifier
	cfg         Config
	logger      *log.Logger
}

// New constructs a Pipeline. The engine must already be started by the
// caller (it has its own lifecycle independent of request handling).
func New(st *store.Store, engine *lifecycle.Engine, interp *interpreter.Interpreter, signer *signing.Signer, cfg Config) *Pipeline {
	if cfg.ValidityPeriod <= 0 {
		cfg.ValidityPeriod = 90 * 24 * time.Hour
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = 5 * time.Second
	}
	return &Pipeline{
		store:       st,
		engine:      engine,
		interpreter: interp,
		signer:      signer,
		verifier:    proof.CommitmentV1Verifier{},
		cfg:         cfg,
		logger:      log.New(os.Stdout, "[Pipeline] ", log.LstdFlags),
	}
}

// Create validates the request, computes the evidence commitment and
// control interpretation synchronously, persists the attestation in
// computing_commitment, and enqueues it for background processing. If
// idempotencyKey is non-empty and has already been used, the prior
// attestation is returned instead of creating a new one.
func (p *Pipeline) Create(ctx context.Context, req model.CreateRequest, idempotencyKey string) (*store.Attestation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CreateTimeout)
	defer cancel()

	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := time.Now()

	if idempotencyKey != "" {
		provisionalID, err := newIdentifier("ATT", now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		winnerID, created := p.store.PutIfAbsentIdempotency(idempotencyKey, provisionalID, now, p.cfg.IdempotencyTTL)
		if !created {
			existing, err := p.store.GetAttestation(winnerID)
			if err != nil {
				return nil, fmt.Errorf("%w: idempotency key resolved to missing attestation", ErrInternal)
			}
			return existing, nil
		}
		return p.createWithID(ctx, winnerID, req, now)
	}

	id, err := newIdentifier("ATT", now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return p.createWithID(ctx, id, req, now)
}

func (p *Pipeline) createWithID(ctx context.Context, id string, req model.CreateRequest, now time.Time) (*store.Attestation, error) {
	items := make([]evidence.Item, len(req.Evidence))
	for i, e := range req.Evidence {
		items[i] = evidence.Item{URI: e.URI, Hash: e.Hash, Type: e.Type}
	}

	commitment, err := evidence.Commit(items, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvidence, err)
	}

	interp := p.interpreter.Interpret(ctx, req.Control.Statement, req.Control.Framework, req.Control.ControlID)

	meta := &model.AttestationMetadata{
		Policy:      req.Policy,
		IssuedAt:    now,
		ValidUntil:  now.Add(p.cfg.ValidityPeriod),
		IssuerID:    p.cfg.IssuerID,
		CallbackURL: req.CallbackURL,
	}
	control := req.Control

	att := &store.Attestation{
		ID:             id,
		State:          lifecycle.StatePending,
		CreatedAt:      now,
		Control:        &control,
		Interpretation: &interp,
		Evidence:       commitment,
		Metadata:       meta,
		Revision:       0,
	}

	var putErr error
	for attempt := 0; attempt < maxIDCollisionRetries; attempt++ {
		att.ID = id
		putErr = p.store.PutAttestation(att)
		if putErr == nil {
			break
		}
		if !errors.Is(putErr, store.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrInternal, putErr)
		}
		id, err = newIdentifier("ATT", time.Now())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}
	if putErr != nil {
		return nil, fmt.Errorf("%w: exhausted %d identifier collision retries", ErrIdentifierCollision, maxIDCollisionRetries)
	}

	updated, err := p.store.UpdateAttestation(id, func(a *store.Attestation) error {
		if !lifecycle.CanTransition(a.State, lifecycle.StateComputingCommitment) {
			return fmt.Errorf("invalid initial transition from %s", a.State)
		}
		a.State = lifecycle.StateComputingCommitment
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	metrics.AttestationsCreated.Inc()
	p.engine.Enqueue(id)
	return updated, nil
}

func validateRequest(req model.CreateRequest) error {
	if len(req.Evidence) == 0 {
		return fmt.Errorf("at least one evidence item is required")
	}
	if req.Control.Statement == "" {
		return fmt.Errorf("control statement is required")
	}
	if req.Control.Framework == "" {
		return fmt.Errorf("control framework is required")
	}
	if req.Policy == "" {
		return fmt.Errorf("policy is required")
	}
	return nil
}

// Get returns the current attestation record.
func (p *Pipeline) Get(id string) (*store.Attestation, error) {
	att, err := p.store.GetAttestation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return att, nil
}

// List returns attestations matching f.
func (p *Pipeline) List(f store.ListFilter) []*store.Attestation {
	return p.store.List(f)
}

// Cancel requests cooperative cancellation of an in-flight attestation.
func (p *Pipeline) Cancel(id string) error {
	if _, err := p.store.GetAttestation(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.engine.Cancel(id)
	return nil
}

// Revoke transitions a valid attestation to revoked.
func (p *Pipeline) Revoke(id string) error {
	if err := p.engine.Revoke(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return nil
}

// Verify runs the named checks (or all six, if requestedChecks is empty)
// against the current state of the named attestation and signs the result
// into a receipt.
func (p *Pipeline) Verify(id string, requestedChecks []verification.CheckName) (*verification.Receipt, error) {
	att, err := p.store.GetAttestation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	commitment, _ := att.Evidence.(*evidence.Commitment)
	artifact, _ := att.Proof.(*proof.Artifact)
	assembled, _ := att.Package.(*assembly.Assembled)
	meta, _ := att.Metadata.(*model.AttestationMetadata)

	anchorErr := ""
	var anchorRecord *anchor.Record
	if anchorState, ok := att.Anchor.(*model.AnchorState); ok {
		anchorErr = anchorState.Error
		anchorRecord, _ = anchorState.Record.(*anchor.Record)
	}

	in := verification.Input{
		AttestationID:   id,
		State:           att.State,
		Verifier:        p.verifier,
		AnchorError:     anchorErr,
		AnchorRecord:    anchorRecord,
		RequestedChecks: requestedChecks,
	}
	if commitment != nil {
		in.MerkleRoot = commitment.MerkleRoot
	}
	if artifact != nil {
		in.ProofBytes = artifact.ProofBytes
		in.ProofDigest = artifact.ProofDigest
	}
	if meta != nil {
		in.ValidUntil = meta.ValidUntil
	}
	if assembled != nil {
		in.Package = assembled.Package
		in.Signature = assembled.Signature
	}

	result := verification.Run(in, time.Now())
	receipt, err := verification.Sign(result, p.signer, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	receiptID, err := newIdentifier("RCP", time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	p.store.PutReceipt(&store.Receipt{
		ID:            receiptID,
		AttestationID: id,
		CreatedAt:     time.Now(),
		Body:          receipt,
	})

	return receipt, nil
}

// GetReceipt returns a previously issued receipt by ID.
func (p *Pipeline) GetReceipt(receiptID string) (*store.Receipt, error) {
	r, err := p.store.GetReceipt(receiptID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, receiptID)
	}
	return r, nil
}
