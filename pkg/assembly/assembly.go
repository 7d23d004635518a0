// Copyright 2025 Certen Protocol
//
// Package Assembler
// Canonicalizes, hashes, and signs the ZKPA-v1.1 package.

package assembly

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/commitment"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
)

const (
	protocolName    = "zkpa"
	protocolVersion = "1.1"
)

var ErrRawEvidencePayload = errors.New("assembly: package must not embed raw evidence payloads")

// EvidenceSummary is the evidence-record projection permitted inside a
// package: digests and identifiers only, never raw bytes.
type EvidenceSummary struct {
	MerkleRoot     string   `json:"merkle_root"`
	CommitmentHash string   `json:"commitment_hash"`
	LeafCount      int      `json:"leaf_count"`
	LocalIDs       []string `json:"local_ids"`
}

// ProofSummary is the proof-record projection permitted inside a package.
type ProofSummary struct {
	Algorithm   string      `json:"algorithm"`
	ProofDigest string      `json:"proof_digest"`
	Size        int         `json:"size"`
	PublicInputs interface{} `json:"public_inputs"`
}

// Metadata is the attestation-level descriptive data carried in a package.
type Metadata struct {
	Policy      string    `json:"policy"`
	IssuedAt    time.Time `json:"issued_at"`
	ValidUntil  time.Time `json:"valid_until"`
	IssuerID    string    `json:"issuer_id"`
}

// Package is the fixed ZKPA-v1.1 schema. Field order here is irrelevant —
// canonicalization re-sorts keys recursively before hashing or signing.
type Package struct {
	Protocol      string          `json:"protocol"`
	Version       string          `json:"version"`
	AttestationID string          `json:"attestation_id"`
	Evidence      EvidenceSummary `json:"evidence"`
	Proof         ProofSummary    `json:"proof"`
	Metadata      Metadata        `json:"metadata"`
}

// SignatureBlock is the detached Ed25519 signature over a package's digest.
type SignatureBlock struct {
	Algorithm       string    `json:"algorithm"`
	Value           string    `json:"value"`
	SignerPublicKey string    `json:"signer_public_key"`
	SignedAt        time.Time `json:"signed_at"`
}

// Assembled is the package together with its canonical bytes, digest, and
// signature block.
type Assembled struct {
	Package        Package        `json:"package"`
	CanonicalBytes []byte         `json:"-"`
	PackageDigest  string         `json:"package_digest"`
	Signature      SignatureBlock `json:"signature"`
}

// Assemble builds, canonicalizes, digests, and signs a package. It rejects
// evidence summaries carrying anything beyond digests/identifiers by
// construction: EvidenceSummary has no field capable of holding raw bytes.
func Assemble(attestationID string, evidence EvidenceSummary, proofSummary ProofSummary, meta Metadata, signer *signing.Signer, now time.Time) (*Assembled, error) {
	pkg := Package{
		Protocol:      protocolName,
		Version:       protocolVersion,
		AttestationID: attestationID,
		Evidence:      evidence,
		Proof:         proofSummary,
		Metadata:      meta,
	}

	canonical, err := commitment.MarshalCanonical(pkg)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(canonical)
	digestHex := hex.EncodeToString(digest[:])

	sig := signer.Sign(signing.DomainPackage, digest[:])

	return &Assembled{
		Package:        pkg,
		CanonicalBytes: canonical,
		PackageDigest:  digestHex,
		Signature: SignatureBlock{
			Algorithm:       "Ed25519",
			Value:           hex.EncodeToString(sig),
			SignerPublicKey: signer.PublicKeyHex(),
			SignedAt:        now,
		},
	}, nil
}

// VerifySignature recomputes canonical bytes for pkg and checks the
// signature against the given public key hex, per testable property 2.
func VerifySignature(pkg Package, sig SignatureBlock) (bool, error) {
	canonical, err := commitment.MarshalCanonical(pkg)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(canonical)

	pubKeyBytes, err := hex.DecodeString(sig.SignerPublicKey)
	if err != nil {
		return false, err
	}
	sigBytes, err := hex.DecodeString(sig.Value)
	if err != nil {
		return false, err
	}

	return signing.Verify(pubKeyBytes, signing.DomainPackage, digest[:], sigBytes), nil
}
