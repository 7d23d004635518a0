// Copyright 2025 Certen Protocol
//
// Lifecycle Engine
// Drives an attestation through the background portion of its state
// machine on a bounded worker pool, appending a hash-chained event log and
// dispatching webhooks on every transition.

package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/anchor"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/assembly"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/evidence"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/interpreter"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/metrics"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/proof"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/store"
)

// Config governs worker pool size, demo pacing, and optional anchoring.
type Config struct {
	WorkerCount         int
	FastDemoMode        bool
	ExpirySweepInterval time.Duration
	AnchorEnabled       bool
	AnchorDispatcher    *anchor.Dispatcher
	IssuerID            string
}

// StateChangeFunc is notified after every successful transition, used to
// drive optional Firestore sync independently of webhook delivery.
type StateChangeFunc func(attestationID, from, to string, at time.Time)

// Engine is the background lifecycle processor.
type Engine struct {
	store   *store.Store
	signer  *signing.Signer
	cfg     Config
	logger  *log.Logger
	webhook *webhookDispatcher

	workQueue chan string
	stopCh    chan struct{}
	wg        sync.WaitGroup

	cancelMu sync.Mutex
	canceled map[string]bool

	listenersMu sync.Mutex
	listeners   []StateChangeFunc
}

// New constructs an Engine. Call Start to begin processing.
func New(st *store.Store, signer *signing.Signer, cfg Config) *Engine {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 8
	}
	if cfg.ExpirySweepInterval <= 0 {
		cfg.ExpirySweepInterval = time.Minute
	}
	return &Engine{
		store:     st,
		signer:    signer,
		cfg:       cfg,
		logger:    log.New(os.Stdout, "[Lifecycle] ", log.LstdFlags),
		webhook:   newWebhookDispatcher(),
		workQueue: make(chan string, 1024),
		stopCh:    make(chan struct{}),
		canceled:  make(map[string]bool),
	}
}

// AddStateChangeListener registers a callback fired after each transition.
func (e *Engine) AddStateChangeListener(fn StateChangeFunc) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Start launches the worker pool, webhook delivery pool, and expiry sweep.
func (e *Engine) Start() {
	for i := 0; i < e.cfg.WorkerCount; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	e.webhook.start()

	e.wg.Add(1)
	go e.expirySweepLoop()
}

// Stop drains in-flight work and halts background goroutines.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
	e.webhook.stop()
}

// Enqueue schedules attestationID for background processing starting at
// generating_proof. The synchronous caller (pkg/pipeline) must have already
// persisted the attestation in state computing_commitment.
func (e *Engine) Enqueue(attestationID string) {
	select {
	case e.workQueue <- attestationID:
	default:
		e.logger.Printf("work queue full, processing %s inline", attestationID)
		e.process(attestationID)
	}
}

// Cancel marks attestationID for cooperative cancellation at the next step
// boundary.
func (e *Engine) Cancel(id string) {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	e.canceled[id] = true
}

func (e *Engine) isCanceled(id string) bool {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	return e.canceled[id]
}

func (e *Engine) clearCanceled(id string) {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	delete(e.canceled, id)
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case id := <-e.workQueue:
			e.process(id)
		}
	}
}

func (e *Engine) demoPause() {
	if e.cfg.FastDemoMode {
		time.Sleep(50 * time.Millisecond)
	}
}

// process drives one attestation from generating_proof through to a
// terminal state (valid, failed_proof, failed, or failed_anchor).
func (e *Engine) process(id string) {
	defer e.clearCanceled(id)

	att, err := e.store.GetAttestation(id)
	if err != nil {
		e.logger.Printf("process %s: load failed: %v", id, err)
		return
	}

	if e.checkCancel(id, att.State) {
		return
	}

	if !e.transitionTo(id, StateGeneratingProof, "") {
		return
	}
	e.demoPause()

	if e.checkCancel(id, StateGeneratingProof) {
		return
	}

	stopTimer := metrics.StageTimer(StateGeneratingProof)
	artifact, err := e.buildProof(att)
	stopTimer()
	if err != nil {
		e.failTerminal(id, StateFailedProof, err)
		return
	}

	e.store.UpdateAttestation(id, func(a *store.Attestation) error {
		a.Proof = artifact
		return nil
	})

	if !e.transitionTo(id, StateAssemblingPackage, "") {
		return
	}
	e.demoPause()

	if e.checkCancel(id, StateAssemblingPackage) {
		return
	}

	assembled, err := e.buildPackage(att, artifact)
	if err != nil {
		e.failTerminal(id, StateFailed, err)
		return
	}

	e.store.UpdateAttestation(id, func(a *store.Attestation) error {
		a.Package = assembled
		return nil
	})

	if !e.cfg.AnchorEnabled || e.cfg.AnchorDispatcher == nil {
		e.transitionTo(id, StateValid, "")
		return
	}

	if !e.transitionTo(id, StateAnchoring, "") {
		return
	}
	e.demoPause()

	if e.checkCancel(id, StateAnchoring) {
		return
	}

	e.anchorAndFinish(id, att, assembled)
}

func (e *Engine) checkCancel(id, currentState string) bool {
	if !e.isCanceled(id) {
		return false
	}
	e.cancelNow(id, currentState)
	return true
}

// cancelNow forces a non-terminal attestation straight to failed with
// reason "cancelled", bypassing the normal transition graph the way an
// external cancel request is specified to. Used both at step boundaries
// and when a cancel request arrives while an anchor submission is already
// in flight: the submission is allowed to complete, but a success result
// that lands after cancellation still resolves to failed, not valid.
func (e *Engine) cancelNow(id, from string) {
	e.store.UpdateAttestation(id, func(a *store.Attestation) error {
		a.ErrorReason = "cancelled"
		e.appendEvent(a, a.State, StateFailed, "cancelled")
		a.State = StateFailed
		return nil
	})
	metrics.AttestationsByState.WithLabelValues(StateFailed).Inc()
	e.notify(id, from, StateFailed)
	e.dispatchWebhookIfConfigured(id, from, StateFailed)
}

func (e *Engine) buildProof(att *store.Attestation) (*proof.Artifact, error) {
	commitment, ok := att.Evidence.(*evidence.Commitment)
	if !ok {
		return nil, fmt.Errorf("lifecycle: attestation %s has no evidence commitment", att.ID)
	}
	interp, ok := att.Interpretation.(*interpreter.Interpretation)
	if !ok {
		return nil, fmt.Errorf("lifecycle: attestation %s has no interpretation", att.ID)
	}
	control, ok := att.Control.(*model.ControlDescriptor)
	if !ok {
		return nil, fmt.Errorf("lifecycle: attestation %s has no control descriptor", att.ID)
	}
	meta, ok := att.Metadata.(*model.AttestationMetadata)
	if !ok {
		return nil, fmt.Errorf("lifecycle: attestation %s has no metadata", att.ID)
	}

	return proof.Build(commitment.MerkleRoot, control.Statement, meta.Policy, string(interp.ProofTemplate), string(interp.RiskLevel), time.Now())
}

func (e *Engine) buildPackage(att *store.Attestation, artifact *proof.Artifact) (*assembly.Assembled, error) {
	commitment, ok := att.Evidence.(*evidence.Commitment)
	if !ok {
		return nil, fmt.Errorf("lifecycle: attestation %s has no evidence commitment", att.ID)
	}
	meta, ok := att.Metadata.(*model.AttestationMetadata)
	if !ok {
		return nil, fmt.Errorf("lifecycle: attestation %s has no metadata", att.ID)
	}

	localIDs := make([]string, len(commitment.Items))
	for i, item := range commitment.Items {
		localIDs[i] = item.LocalID
	}

	return assembly.Assemble(
		att.ID,
		assembly.EvidenceSummary{
			MerkleRoot:     commitment.MerkleRoot,
			CommitmentHash: commitment.CommitmentHash,
			LeafCount:      commitment.LeafCount,
			LocalIDs:       localIDs,
		},
		assembly.ProofSummary{
			Algorithm:    artifact.Algorithm,
			ProofDigest:  artifact.ProofDigest,
			Size:         artifact.Size,
			PublicInputs: artifact.PublicInputs,
		},
		assembly.Metadata{
			Policy:     meta.Policy,
			IssuedAt:   meta.IssuedAt,
			ValidUntil: meta.ValidUntil,
			IssuerID:   meta.IssuerID,
		},
		e.signer,
		time.Now(),
	)
}

func (e *Engine) anchorAndFinish(id string, att *store.Attestation, assembled *assembly.Assembled) {
	commitment, ok := att.Evidence.(*evidence.Commitment)
	if !ok {
		e.failTerminal(id, StateFailedAnchor, fmt.Errorf("lifecycle: missing evidence commitment"))
		return
	}

	note := anchor.Note{
		Protocol:      "zkpa",
		Version:       "1.1",
		AttestationID: id,
		MerkleRoot:    commitment.MerkleRoot,
		PackageHash:   assembled.PackageDigest,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	noteBytes, err := json.Marshal(note)
	if err != nil {
		e.failTerminal(id, StateFailedAnchor, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	record, err := e.cfg.AnchorDispatcher.Submit(ctx, note, noteBytes)
	if err != nil {
		e.store.UpdateAttestation(id, func(a *store.Attestation) error {
			a.Anchor = &model.AnchorState{Error: err.Error()}
			a.ErrorReason = err.Error()
			e.appendEvent(a, a.State, StateFailedAnchor, "anchor_failed")
			a.State = StateFailedAnchor
			return nil
		})
		e.notify(id, StateAnchoring, StateFailedAnchor)
		e.dispatchWebhookIfConfigured(id, StateAnchoring, StateFailedAnchor)
		return
	}

	e.store.UpdateAttestation(id, func(a *store.Attestation) error {
		a.Anchor = &model.AnchorState{Record: record}
		return nil
	})

	// The anchor submission runs to completion regardless of a cancel
	// request arriving mid-flight, but its success must not override a
	// cancellation that was requested while it was in progress.
	if e.isCanceled(id) {
		e.cancelNow(id, StateAnchoring)
		return
	}

	e.transitionTo(id, StateValid, "")
}

func (e *Engine) failTerminal(id string, to string, cause error) {
	var from string
	e.store.UpdateAttestation(id, func(a *store.Attestation) error {
		from = a.State
		a.ErrorReason = cause.Error()
		e.appendEvent(a, a.State, to, cause.Error())
		a.State = to
		return nil
	})
	e.logger.Printf("attestation %s entered terminal state %s: %v", id, to, cause)
	metrics.AttestationsByState.WithLabelValues(to).Inc()
	e.notify(id, from, to)
	e.dispatchWebhookIfConfigured(id, from, to)
}

// transitionTo performs a guarded transition, refusing any edge the
// transition graph does not list (so the only moves out of a terminal state
// are valid's revoked and expired edges) and appending a hash-chained event.
func (e *Engine) transitionTo(id, to, reason string) bool {
	var from string
	_, err := e.store.UpdateAttestation(id, func(a *store.Attestation) error {
		from = a.State
		if IsTerminal(a.State) && !CanTransition(a.State, to) {
			return fmt.Errorf("lifecycle: attestation %s is terminal (%s)", id, a.State)
		}
		if !CanTransition(a.State, to) {
			return fmt.Errorf("lifecycle: invalid transition %s -> %s", a.State, to)
		}
		e.appendEvent(a, a.State, to, reason)
		a.State = to
		if to == StateValid {
			now := time.Now()
			a.CompletedAt = &now
		}
		return nil
	})
	if err != nil {
		e.logger.Printf("transition %s failed: %v", id, err)
		return false
	}
	if IsTerminal(to) {
		metrics.AttestationsByState.WithLabelValues(to).Inc()
	}
	e.notify(id, from, to)
	e.dispatchWebhookIfConfigured(id, from, to)
	return true
}

// appendEvent adds a hash-chained event to a's (bounded) log. Hash chaining
// is additive beyond the plain {from,to,at,reason} tuple: it lets a reader
// detect tampering with any entry's position or content.
func (e *Engine) appendEvent(a *store.Attestation, from, to, reason string) {
	now := time.Now()
	prevHash := ""
	if n := len(a.Events); n > 0 {
		prevHash = a.Events[n-1].Hash
	}

	detail := fmt.Sprintf("%s|%s|%s|%s", prevHash, from, to, now.Format(time.RFC3339Nano))
	if reason != "" {
		detail += "|" + reason
	}
	sum := sha256.Sum256([]byte(detail))

	a.Events = append(a.Events, store.Event{
		From:     from,
		To:       to,
		At:       now,
		Reason:   reason,
		PrevHash: prevHash,
		Hash:     hex.EncodeToString(sum[:]),
	})
}

func (e *Engine) notify(id, from, to string) {
	e.listenersMu.Lock()
	listeners := append([]StateChangeFunc(nil), e.listeners...)
	e.listenersMu.Unlock()

	now := time.Now()
	for _, fn := range listeners {
		go fn(id, from, to, now)
	}
}

func (e *Engine) dispatchWebhookIfConfigured(id, from, to string) {
	att, err := e.store.GetAttestation(id)
	if err != nil {
		return
	}
	meta, ok := att.Metadata.(*model.AttestationMetadata)
	if !ok || meta.CallbackURL == "" {
		return
	}
	e.webhook.enqueue(webhookJob{
		URL:           meta.CallbackURL,
		AttestationID: id,
		From:          from,
		To:            to,
		At:            time.Now(),
	})
}

func (e *Engine) expirySweepLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.ExpirySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.sweepExpired(time.Now())
		}
	}
}

// sweepExpired transitions every valid attestation whose ValidUntil has
// passed to expired.
func (e *Engine) sweepExpired(now time.Time) {
	for _, a := range e.store.List(store.ListFilter{State: StateValid}) {
		meta, ok := a.Metadata.(*model.AttestationMetadata)
		if !ok || now.Before(meta.ValidUntil) {
			continue
		}
		e.transitionTo(a.ID, StateExpired, "validity_period_elapsed")
	}
}

// Revoke transitions a valid attestation to revoked.
func (e *Engine) Revoke(id string) error {
	if !e.transitionTo(id, StateRevoked, "revoked_by_operator") {
		return fmt.Errorf("lifecycle: cannot revoke attestation %s", id)
	}
	return nil
}
