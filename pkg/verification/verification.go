// Copyright 2025 Certen Protocol
//
// Verification Engine
// Runs the fixed checklist against a previously issued attestation package
// and produces a signed receipt. Every check is independent; a failure in
// one does not short-circuit the rest, so the receipt always reports the
// full picture.

package verification

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/anchor"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/assembly"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/proof"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
)

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// CheckName enumerates the fixed verification checklist.
type CheckName string

const (
	CheckProofValidity CheckName = "proof_validity"
	CheckIntegrity     CheckName = "integrity"
	CheckExpiry        CheckName = "expiry"
	CheckRevocation    CheckName = "revocation"
	CheckAnchor        CheckName = "anchor"
	CheckSignature     CheckName = "signature"
)

// Outcome is the three-way result of a single checklist item. WARN is
// informational: it neither passes nor fails the attestation overall, but
// is distinct from PASS so a receipt consumer can tell the two apart.
type Outcome string

const (
	OutcomePass Outcome = "PASS"
	OutcomeFail Outcome = "FAIL"
	OutcomeWarn Outcome = "WARN"
)

// CheckResult is the outcome of one checklist item. Passed is derived from
// Result (true for PASS and WARN, false for FAIL) and kept for callers that
// only care about a binary pass/fail view.
type CheckResult struct {
	Name   CheckName `json:"name"`
	Result Outcome   `json:"result"`
	Passed bool      `json:"passed"`
	Detail string    `json:"detail,omitempty"`
}

func pass(name CheckName, detail string) CheckResult {
	return CheckResult{Name: name, Result: OutcomePass, Passed: true, Detail: detail}
}

func fail(name CheckName, detail string) CheckResult {
	return CheckResult{Name: name, Result: OutcomeFail, Passed: false, Detail: detail}
}

func warn(name CheckName, detail string) CheckResult {
	return CheckResult{Name: name, Result: OutcomeWarn, Passed: true, Detail: detail}
}

// Result is the full verification outcome, independent of whether it was
// signed into a receipt.
type Result struct {
	AttestationID string        `json:"attestation_id"`
	Checks        []CheckResult `json:"checks"`
	OverallValid  bool          `json:"overall_valid"`
	VerifiedAt    time.Time     `json:"verified_at"`
}

// Input bundles everything the checklist needs. AnchorRecord is optional;
// when nil, the anchor check reports WARN rather than FAIL, since
// anchoring itself may be disabled for the attestation.
type Input struct {
	AttestationID      string
	State              string
	Package            assembly.Package
	Signature          assembly.SignatureBlock
	ProofBytes         []byte
	ProofDigest        string
	MerkleRoot         string
	ValidUntil         time.Time
	AnchorRecord       *anchor.Record
	AnchorError        string
	AnchorQueryAdapter AnchorQueryAdapter
	Verifier           proof.Verifier

	// RequestedChecks narrows the checklist to the named subset. An empty
	// or nil slice means "run all six", matching the default verify
	// behavior when a caller does not specify checks explicitly.
	RequestedChecks []CheckName
}

// allChecks is the fixed checklist in the order receipts report it.
var allChecks = []CheckName{
	CheckProofValidity,
	CheckIntegrity,
	CheckExpiry,
	CheckRevocation,
	CheckAnchor,
	CheckSignature,
}

// checksToRun resolves the requested subset against the fixed checklist,
// preserving allChecks's canonical order regardless of the order requested.
func checksToRun(requested []CheckName) []CheckName {
	if len(requested) == 0 {
		return allChecks
	}
	wanted := make(map[CheckName]bool, len(requested))
	for _, c := range requested {
		wanted[c] = true
	}
	out := make([]CheckName, 0, len(allChecks))
	for _, c := range allChecks {
		if wanted[c] {
			out = append(out, c)
		}
	}
	return out
}

// AnchorQueryAdapter corroborates a stored anchor record against the
// ledger it was submitted to. No concrete implementation is wired into
// this repository, so the anchor check always takes its WARN branch for a
// present record; the interface point exists so a real on-chain lookup
// can be plugged in later without changing the checklist's shape.
type AnchorQueryAdapter interface {
	Confirm(record *anchor.Record) (bool, error)
}

var errNoVerifier = errors.New("verification: no proof verifier configured")

// Run executes the requested checklist (or all six, if none are named) and
// returns a Result. It never returns an error itself: an unusable input
// surfaces as failed checks.
func Run(in Input, now time.Time) Result {
	runners := map[CheckName]func() CheckResult{
		CheckProofValidity: func() CheckResult { return checkProofValidity(in) },
		CheckIntegrity:     func() CheckResult { return checkIntegrity(in) },
		CheckExpiry:        func() CheckResult { return checkExpiry(in, now) },
		CheckRevocation:    func() CheckResult { return checkRevocation(in) },
		CheckAnchor:        func() CheckResult { return checkAnchor(in) },
		CheckSignature:     func() CheckResult { return checkSignature(in) },
	}

	names := checksToRun(in.RequestedChecks)
	checks := make([]CheckResult, 0, len(names))
	for _, name := range names {
		checks = append(checks, runners[name]())
	}

	overall := true
	for _, c := range checks {
		if c.Result == OutcomeFail {
			overall = false
			break
		}
	}

	return Result{
		AttestationID: in.AttestationID,
		Checks:        checks,
		OverallValid:  overall,
		VerifiedAt:    now,
	}
}

func checkProofValidity(in Input) CheckResult {
	if in.Verifier == nil {
		return fail(CheckProofValidity, errNoVerifier.Error())
	}
	if !proof.VerifyDigest(in.ProofBytes, in.ProofDigest) {
		return fail(CheckProofValidity, "proof digest mismatch")
	}
	recorded, ok := in.Package.Proof.PublicInputs.(proof.PublicInputs)
	if !ok {
		return fail(CheckProofValidity, "package carries no proof public inputs")
	}
	ok, err := in.Verifier.Verify(in.ProofBytes, proof.PublicInputs{
		MerkleRoot:      in.MerkleRoot,
		StatementDigest: recorded.StatementDigest,
		PolicyDigest:    hex.EncodeToString(sha256Sum([]byte(in.Package.Metadata.Policy))),
	})
	if err != nil {
		return fail(CheckProofValidity, err.Error())
	}
	if !ok {
		return fail(CheckProofValidity, "proof verifier rejected artifact")
	}
	return pass(CheckProofValidity, "")
}

func checkIntegrity(in Input) CheckResult {
	if in.Package.Evidence.MerkleRoot == "" {
		return fail(CheckIntegrity, "package has no evidence commitment")
	}
	if in.Package.Evidence.MerkleRoot != in.MerkleRoot {
		return fail(CheckIntegrity, "merkle root mismatch between package and stored commitment")
	}
	return pass(CheckIntegrity, "")
}

func checkExpiry(in Input, now time.Time) CheckResult {
	if in.ValidUntil.IsZero() {
		return fail(CheckExpiry, "attestation has no validity window")
	}
	if now.After(in.ValidUntil) {
		return fail(CheckExpiry, fmt.Sprintf("expired at %s", in.ValidUntil.Format(time.RFC3339)))
	}
	return pass(CheckExpiry, "")
}

func checkRevocation(in Input) CheckResult {
	if in.State == "revoked" {
		return fail(CheckRevocation, "attestation has been revoked")
	}
	return pass(CheckRevocation, "")
}

// checkAnchor reports FAIL on a recorded anchor failure, WARN when anchoring
// has nothing to verify against (no record at all, or a record present with
// no on-chain query adapter configured to corroborate it), and PASS only
// when an adapter confirms the stored note digest against the ledger.
func checkAnchor(in Input) CheckResult {
	if in.AnchorError != "" {
		return fail(CheckAnchor, in.AnchorError)
	}
	if in.AnchorRecord == nil {
		return warn(CheckAnchor, "anchor record absent entirely")
	}
	if in.AnchorRecord.TransactionID == "" {
		return fail(CheckAnchor, "anchor record missing transaction id")
	}
	if in.AnchorQueryAdapter == nil {
		return warn(CheckAnchor, "anchor record present but no ledger query adapter configured: "+in.AnchorRecord.TransactionID)
	}
	confirmed, err := in.AnchorQueryAdapter.Confirm(in.AnchorRecord)
	if err != nil {
		return fail(CheckAnchor, err.Error())
	}
	if !confirmed {
		return fail(CheckAnchor, "stored anchor note digest does not match what is retrievable on-chain")
	}
	return pass(CheckAnchor, in.AnchorRecord.TransactionID)
}

func checkSignature(in Input) CheckResult {
	ok, err := assembly.VerifySignature(in.Package, in.Signature)
	if err != nil {
		return fail(CheckSignature, err.Error())
	}
	if !ok {
		return fail(CheckSignature, "signature does not match package")
	}
	return pass(CheckSignature, "")
}

// Receipt is the signed record of a verification run, suitable for
// independent auditing without re-running the checklist.
type Receipt struct {
	Result    Result                  `json:"result"`
	Signature assembly.SignatureBlock `json:"signature"`
}

// Sign wraps a Result in a receipt signed under the receipt domain tag,
// distinct from the package signing domain so a package signature can
// never be replayed as a receipt signature or vice versa.
func Sign(result Result, signer *signing.Signer, now time.Time) (*Receipt, error) {
	canonical, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("verification: marshal result: %w", err)
	}
	digest := sha256Sum(canonical)
	sig := signer.Sign(signing.DomainReceipt, digest)

	return &Receipt{
		Result: result,
		Signature: assembly.SignatureBlock{
			Algorithm:       "ed25519",
			Value:           hex.EncodeToString(sig),
			SignerPublicKey: signer.PublicKeyHex(),
			SignedAt:        now,
		},
	}, nil
}

// VerifyReceiptSignature checks that a receipt's signature was produced by
// the named public key over the embedded result.
func VerifyReceiptSignature(r Receipt) (bool, error) {
	canonical, err := json.Marshal(r.Result)
	if err != nil {
		return false, fmt.Errorf("verification: marshal result: %w", err)
	}
	digest := sha256Sum(canonical)

	pubBytes, err := hex.DecodeString(r.Signature.SignerPublicKey)
	if err != nil {
		return false, fmt.Errorf("verification: decode public key: %w", err)
	}
	sigBytes, err := hex.DecodeString(r.Signature.Value)
	if err != nil {
		return false, fmt.Errorf("verification: decode signature: %w", err)
	}

	return signing.Verify(ed25519.PublicKey(pubBytes), signing.DomainReceipt, digest, sigBytes), nil
}
