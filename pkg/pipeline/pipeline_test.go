package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/interpreter"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/lifecycle"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/store"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/verification"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	st := store.New()
	signer, err := signing.NewSignerWithNewKey()
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	engine := lifecycle.New(st, signer, lifecycle.Config{WorkerCount: 2, FastDemoMode: true, ExpirySweepInterval: time.Hour})
	engine.Start()
	t.Cleanup(engine.Stop)

	interp := interpreter.New(nil)
	return New(st, engine, interp, signer, Config{IssuerID: "issuer-1", ValidityPeriod: 90 * 24 * time.Hour})
}

func validCreateRequest() model.CreateRequest {
	return model.CreateRequest{
		Evidence: []model.EvidenceInput{
			{URI: "s3://bucket/obj", Hash: "aa1111111111111111111111111111111111111111111111111111111111aa", Type: "log"},
		},
		Policy: "policy-1",
		Control: model.ControlDescriptor{
			Framework: "soc2",
			ControlID: "CC7.2",
			Statement: "we retain audit logs",
		},
	}
}

func waitForAttestationState(t *testing.T, p *Pipeline, id string, timeout time.Duration) *store.Attestation {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		att, err := p.Get(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if lifecycle.IsTerminal(att.State) {
			return att
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("attestation %s did not reach terminal state", id)
	return nil
}

func TestCreateRejectsEmptyEvidence(t *testing.T) {
	p := newTestPipeline(t)
	req := validCreateRequest()
	req.Evidence = nil

	_, err := p.Create(context.Background(), req, "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreateProcessesAttestationToValid(t *testing.T) {
	p := newTestPipeline(t)
	att, err := p.Create(context.Background(), validCreateRequest(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	final := waitForAttestationState(t, p, att.ID, 2*time.Second)
	if final.State != lifecycle.StateValid {
		t.Fatalf("expected valid, got %s (%s)", final.State, final.ErrorReason)
	}
}

func TestCreateWithIdempotencyKeyReturnsSameAttestation(t *testing.T) {
	p := newTestPipeline(t)
	req := validCreateRequest()

	first, err := p.Create(context.Background(), req, "idem-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := p.Create(context.Background(), req, "idem-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same attestation id, got %s and %s", first.ID, second.ID)
	}
}

func TestGetUnknownAttestationReturnsNotFound(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Get("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyProducesSignedReceiptForValidAttestation(t *testing.T) {
	p := newTestPipeline(t)
	att, err := p.Create(context.Background(), validCreateRequest(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waitForAttestationState(t, p, att.ID, 2*time.Second)

	receipt, err := p.Verify(att.ID, nil)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !receipt.Result.OverallValid {
		t.Fatalf("expected overall valid receipt, got checks: %+v", receipt.Result.Checks)
	}
}

func TestVerifyHonorsRequestedChecksSubset(t *testing.T) {
	p := newTestPipeline(t)
	att, err := p.Create(context.Background(), validCreateRequest(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waitForAttestationState(t, p, att.ID, 2*time.Second)

	receipt, err := p.Verify(att.ID, []verification.CheckName{verification.CheckExpiry})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(receipt.Result.Checks) != 1 || receipt.Result.Checks[0].Name != verification.CheckExpiry {
		t.Fatalf("expected exactly the expiry check, got %+v", receipt.Result.Checks)
	}
}

func TestCancelEndsFailedUnlessProcessingWinsRace(t *testing.T) {
	p := newTestPipeline(t)
	att, err := p.Create(context.Background(), validCreateRequest(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Cancel(att.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	final := waitForAttestationState(t, p, att.ID, 2*time.Second)
	if final.State != lifecycle.StateValid && final.State != lifecycle.StateFailed {
		t.Fatalf("expected valid or failed (cancellation can lose the race), got %s", final.State)
	}
}
