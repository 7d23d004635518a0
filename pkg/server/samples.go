// Copyright 2025 Certen Protocol
//
// Sample Control Catalog
// A small, hardcoded stand-in for the external sample-control catalog the
// quick-attest convenience endpoint looks up against. A production
// deployment would back this with a real catalog service; this is a fixed
// table that exists purely so quick-attest has a control to describe and a
// deterministic evidence set to synthesize.

package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
)

// sampleControl is one catalog entry: enough of a control descriptor to
// drive create, plus how many evidence items quick-attest should
// synthesize for it.
type sampleControl struct {
	Framework     string
	ControlID     string
	Statement     string
	Policy        string
	EvidenceCount int
	EvidenceType  string
}

// sampleControlCatalog maps control_id to its sample descriptor. Entries
// are illustrative controls spanning the frameworks the interpreter
// already recognizes.
var sampleControlCatalog = map[string]sampleControl{
	"CC7.2": {
		Framework:     "soc2",
		ControlID:     "CC7.2",
		Statement:     "we retain audit logs for the required retention period",
		Policy:        "log-retention-policy",
		EvidenceCount: 2,
		EvidenceType:  "log",
	},
	"CC6.1": {
		Framework:     "soc2",
		ControlID:     "CC6.1",
		Statement:     "access to production systems requires multi-factor authentication",
		Policy:        "access-control-policy",
		EvidenceCount: 3,
		EvidenceType:  "screenshot",
	},
	"A.9.2.3": {
		Framework:     "iso27001",
		ControlID:     "A.9.2.3",
		Statement:     "privileged access rights are reviewed on a regular basis",
		Policy:        "privileged-access-review-policy",
		EvidenceCount: 1,
		EvidenceType:  "report",
	},
}

// lookupSampleControl returns the catalog entry for controlID, or false if
// it is unknown.
func lookupSampleControl(controlID string) (sampleControl, bool) {
	sc, ok := sampleControlCatalog[controlID]
	return sc, ok
}

// synthesizeEvidence deterministically derives sc.EvidenceCount evidence
// items for sc, so repeated quick-attest calls against the same control
// are reproducible rather than random. Each item's hash is derived from
// the control id and its index, keeping the synthesized set stable.
func synthesizeEvidence(sc sampleControl) []model.EvidenceInput {
	items := make([]model.EvidenceInput, sc.EvidenceCount)
	for i := 0; i < sc.EvidenceCount; i++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("quick-attest|%s|%d", sc.ControlID, i)))
		hash := hex.EncodeToString(sum[:])
		items[i] = model.EvidenceInput{
			URI:  fmt.Sprintf("sample://%s/evidence-%d", sc.ControlID, i),
			Hash: hash,
			Type: sc.EvidenceType,
		}
	}
	return items
}
