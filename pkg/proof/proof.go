// Copyright 2025 Certen Protocol
//
// Proof Builder
// Produces a proof artifact from an evidence commitment and control
// interpretation. The default algorithm, commitment-v1, is a declared
// placeholder: the interface (public inputs, Verify predicate, algorithm
// tag) is preserved so a real SNARK backend can be substituted later.

package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/commitment"
)

// AlgorithmCommitmentV1 is the default, non-cryptographic placeholder
// algorithm tag.
const AlgorithmCommitmentV1 = "commitment-v1"

var ErrVerificationFailed = errors.New("proof: verification failed")

// PublicInputs is the fixed public-input layout every algorithm must
// populate: the evidence Merkle root, a hash of the control statement, and
// a hash of the policy string.
type PublicInputs struct {
	MerkleRoot      string `json:"merkle_root"`
	StatementDigest string `json:"statement_digest"`
	PolicyDigest    string `json:"policy_digest"`
}

// Artifact is the proof builder's output, stored on the attestation's
// proof record.
type Artifact struct {
	Algorithm    string       `json:"algorithm"`
	PublicInputs PublicInputs `json:"public_inputs"`
	ProofBytes   []byte       `json:"-"`
	ProofDigest  string       `json:"proof_digest"`
	Size         int          `json:"size"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// commitmentV1Payload is the canonical object commitment-v1 hashes to
// produce proof_bytes: a transparent, recomputable placeholder rather than
// a zero-knowledge artifact.
type commitmentV1Payload struct {
	MerkleRoot string `json:"merkle_root"`
	PublicInputs [3]string `json:"public_inputs"`
	Template   string `json:"template"`
	Risk       string `json:"risk"`
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Build produces an Artifact using the default commitment-v1 algorithm.
func Build(merkleRoot, statement, policy, template, risk string, now time.Time) (*Artifact, error) {
	inputs := PublicInputs{
		MerkleRoot:      merkleRoot,
		StatementDigest: sha256Hex(statement),
		PolicyDigest:    sha256Hex(policy),
	}

	payload := commitmentV1Payload{
		MerkleRoot:   merkleRoot,
		PublicInputs: [3]string{inputs.MerkleRoot, inputs.StatementDigest, inputs.PolicyDigest},
		Template:     template,
		Risk:         risk,
	}

	proofBytes, err := commitment.MarshalCanonical(payload)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(proofBytes)

	return &Artifact{
		Algorithm:    AlgorithmCommitmentV1,
		PublicInputs: inputs,
		ProofBytes:   proofBytes,
		ProofDigest:  hex.EncodeToString(digest[:]),
		Size:         len(proofBytes),
		GeneratedAt:  now,
	}, nil
}

// Verifier is the extension point a real proving backend implements.
// commitment-v1's Verify re-canonicalizes proof_bytes and checks that the
// public inputs embedded in them equal publicInputs; a SNARK backend would
// instead run its verification key against (proofBytes, publicInputs).
type Verifier interface {
	Verify(proofBytes []byte, publicInputs PublicInputs) (bool, error)
}

// CommitmentV1Verifier implements Verifier for the default placeholder
// algorithm.
type CommitmentV1Verifier struct{}

// Verify re-canonicalizes proofBytes and checks that the merkle root and
// the three public inputs embedded in them equal publicInputs — i.e. it
// proves the bytes are consistent with those inputs, not that any
// underlying claim is true. It does not check proof_digest; VerifyDigest
// does that.
func (CommitmentV1Verifier) Verify(proofBytes []byte, publicInputs PublicInputs) (bool, error) {
	var payload commitmentV1Payload
	canon, err := commitment.CanonicalizeJSON(proofBytes)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(canon, &payload); err != nil {
		return false, err
	}
	if payload.MerkleRoot != publicInputs.MerkleRoot {
		return false, nil
	}
	if payload.PublicInputs[0] != publicInputs.MerkleRoot ||
		payload.PublicInputs[1] != publicInputs.StatementDigest ||
		payload.PublicInputs[2] != publicInputs.PolicyDigest {
		return false, nil
	}
	return true, nil
}

// VerifyDigest checks that proofDigest == SHA-256(proofBytes), the
// structural half of the proof_validity check independent of any backend.
func VerifyDigest(proofBytes []byte, proofDigest string) bool {
	digest := sha256.Sum256(proofBytes)
	return hex.EncodeToString(digest[:]) == proofDigest
}
