// Copyright 2025 Certen Protocol
//
// Shared attestation domain types threaded between the pipeline façade,
// the lifecycle engine, and the verification engine. Kept dependency-free
// of those packages to avoid import cycles.

package model

import "time"

// AssessmentResult is the upstream control assessment outcome.
type AssessmentResult string

const (
	AssessmentPass    AssessmentResult = "PASS"
	AssessmentFail    AssessmentResult = "FAIL"
	AssessmentPartial AssessmentResult = "PARTIAL"
)

// ControlDescriptor is the upstream compliance-control input to a create
// request.
type ControlDescriptor struct {
	Framework        string           `json:"framework"`
	ControlID        string           `json:"control_id"`
	Statement        string           `json:"statement"`
	AssessmentResult AssessmentResult `json:"assessment_result"`
	AssessmentWindow string           `json:"assessment_window"`
}

// AttestationMetadata is the attestation-level descriptive record; it is a
// superset of what the signed package carries (it additionally holds the
// caller's callback URL, which is never embedded in the signed package).
type AttestationMetadata struct {
	Policy      string    `json:"policy"`
	IssuedAt    time.Time `json:"issued_at"`
	ValidUntil  time.Time `json:"valid_until"`
	IssuerID    string    `json:"issuer_id"`
	CallbackURL string    `json:"callback_url,omitempty"`
}

// CreateRequest is the pipeline façade's create operation input.
type CreateRequest struct {
	Evidence []EvidenceInput   `json:"evidence"`
	Policy   string            `json:"policy"`
	Control  ControlDescriptor `json:"control"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

// EvidenceInput mirrors evidence.Item; duplicated here (rather than
// importing pkg/evidence) so this package stays free of downstream
// dependencies.
type EvidenceInput struct {
	URI  string `json:"uri"`
	Hash string `json:"hash"`
	Type string `json:"type"`
}

// AnchorState holds either a successful anchor record or a recorded
// failure, never both. Anchor fields themselves (pkg/anchor.Record,
// pkg/anchor.FailureRecord) are stored as interface{} here to avoid this
// package depending on pkg/anchor.
type AnchorState struct {
	Record  interface{} `json:"record,omitempty"`
	Error   string      `json:"error,omitempty"`
}

