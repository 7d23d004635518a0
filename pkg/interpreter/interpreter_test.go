package interpreter

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestInterpretIsDeterministic(t *testing.T) {
	a := Interpret("The organization manages information system accounts", "NIST 800-53", "AC-2")
	b := Interpret("The organization manages information system accounts", "NIST 800-53", "AC-2")

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected deterministic output, got %+v vs %+v", a, b)
	}
	if a.ClaimType != ClaimControlEffectiveness || a.ProofTemplate != TemplateZKPredicate || a.RiskLevel != RiskHigh {
		t.Fatalf("expected group B match, got %+v", a)
	}
}

func TestInterpretGroupA(t *testing.T) {
	got := Interpret("System maintains audit log retention for backups", "NIST 800-53", "AU-11")
	if got.ClaimType != ClaimEvidenceIntegrity || got.ProofTemplate != TemplateMerkleCommitment {
		t.Fatalf("expected group A match, got %+v", got)
	}
}

func TestInterpretGroupC(t *testing.T) {
	got := Interpret("The organization tracks and monitors security events", "NIST 800-53", "AU-6")
	if got.ClaimType != ClaimAuditTrail || got.ProofTemplate != TemplateSignatureChain {
		t.Fatalf("expected group C match, got %+v", got)
	}
}

func TestInterpretDefaultFallback(t *testing.T) {
	got := Interpret("Completely unrelated statement about nothing in particular", "NIST 800-53", "")
	if got.ClaimType != ClaimControlEffectiveness || got.ProofTemplate != TemplateMerkleCommitment {
		t.Fatalf("expected default fallback, got %+v", got)
	}
}

func TestInterpretEarliestGroupWinsOnMultipleMatches(t *testing.T) {
	// Contains both group A ("log") and group C ("monitor") keywords.
	got := Interpret("We monitor the access log continuously", "NIST 800-53", "")
	if got.ClaimType != ClaimEvidenceIntegrity {
		t.Fatalf("expected group A to win by enumeration order, got %+v", got)
	}
}

type stubAdapter struct {
	result *Interpretation
	err    error
	delay  time.Duration
}

func (s *stubAdapter) InterpretControl(ctx context.Context, statement, framework, controlID string) (*Interpretation, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestInterpreterFallsBackOnAdapterError(t *testing.T) {
	ip := New(&stubAdapter{err: errors.New("boom")})
	got := ip.Interpret(context.Background(), "The organization manages accounts", "NIST 800-53", "AC-2")
	if got.Source != SourceRuleBased {
		t.Fatalf("expected fallback to rule-based, got %+v", got)
	}
}

func TestInterpreterFallsBackOnInvalidSchema(t *testing.T) {
	ip := New(&stubAdapter{result: &Interpretation{ClaimType: "bogus"}})
	got := ip.Interpret(context.Background(), "statement", "framework", "")
	if got.Source != SourceRuleBased {
		t.Fatalf("expected fallback on invalid schema, got %+v", got)
	}
}

func TestInterpreterAcceptsValidAIResult(t *testing.T) {
	ip := New(&stubAdapter{result: &Interpretation{
		ClaimType:     ClaimAuditTrail,
		ProofTemplate: TemplateSignatureChain,
		RiskLevel:     RiskLow,
		Confidence:    0.99,
	}})
	got := ip.Interpret(context.Background(), "statement", "framework", "")
	if got.Source != SourceAI || got.ClaimType != ClaimAuditTrail {
		t.Fatalf("expected ai-sourced result, got %+v", got)
	}
}

func TestWithTimeoutFallsBackOnSlowAdapter(t *testing.T) {
	adapter := WithTimeout(&stubAdapter{
		result: &Interpretation{ClaimType: ClaimAuditTrail, ProofTemplate: TemplateSignatureChain, RiskLevel: RiskLow},
		delay:  50 * time.Millisecond,
	}, 5*time.Millisecond)

	ip := New(adapter)
	got := ip.Interpret(context.Background(), "statement", "framework", "")
	if got.Source != SourceRuleBased {
		t.Fatalf("expected timeout to trigger fallback, got %+v", got)
	}
}
