package assembly

import (
	"testing"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
)

func TestAssembleAndVerifyRoundTrip(t *testing.T) {
	signer, err := signing.NewSignerWithNewKey()
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Now()
	assembled, err := Assemble(
		"ATT-20260101000000-abcdef",
		EvidenceSummary{MerkleRoot: "root", CommitmentHash: "hash", LeafCount: 1, LocalIDs: []string{"EV-20260101-0001"}},
		ProofSummary{Algorithm: "commitment-v1", ProofDigest: "digest", Size: 10},
		Metadata{Policy: "default", IssuedAt: now, ValidUntil: now.Add(90 * 24 * time.Hour), IssuerID: "issuer-1"},
		signer,
		now,
	)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	ok, err := VerifySignature(assembled.Package, assembled.Signature)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignatureRejectsTamperedPackage(t *testing.T) {
	signer, _ := signing.NewSignerWithNewKey()
	now := time.Now()
	assembled, err := Assemble(
		"ATT-1", EvidenceSummary{MerkleRoot: "root"}, ProofSummary{Algorithm: "commitment-v1"},
		Metadata{Policy: "default", IssuedAt: now, ValidUntil: now}, signer, now,
	)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	tampered := assembled.Package
	tampered.AttestationID = "ATT-2"

	ok, err := VerifySignature(tampered, assembled.Signature)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected signature verification to fail for tampered package")
	}
}

func TestAssembleIsDeterministicForIdenticalInput(t *testing.T) {
	signer, _ := signing.NewSignerWithNewKey()
	now := time.Now()

	a, err := Assemble("ATT-1", EvidenceSummary{MerkleRoot: "r"}, ProofSummary{Algorithm: "a"}, Metadata{IssuedAt: now}, signer, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	b, err := Assemble("ATT-1", EvidenceSummary{MerkleRoot: "r"}, ProofSummary{Algorithm: "a"}, Metadata{IssuedAt: now}, signer, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if a.PackageDigest != b.PackageDigest {
		t.Fatalf("expected identical digests for identical input, got %s vs %s", a.PackageDigest, b.PackageDigest)
	}
}
