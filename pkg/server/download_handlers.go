// Copyright 2025 Certen Protocol
//
// Download Handlers
// Exports a completed attestation's signed package either as its native
// JSON representation or wrapped in a minimal OSCAL assessment-results
// document, for consumers that ingest compliance evidence that way.

package server

import (
	"net/http"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/assembly"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
)

func (s *Server) handleDownloadJSON(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	att, err := s.pipeline.Get(id)
	if err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}
	assembled, ok := att.Package.(*assembly.Assembled)
	if !ok {
		writeJSONError(w, "attestation has no assembled package yet", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+id+".json\"")
	writeJSON(w, http.StatusOK, assembled)
}

// oscalAssessmentResults is a minimal OSCAL assessment-results envelope
// carrying just enough structure to host a single finding sourced from an
// attestation package; it is not a complete OSCAL implementation.
type oscalAssessmentResults struct {
	AssessmentResults oscalAssessmentResultsBody `json:"assessment-results"`
}

type oscalAssessmentResultsBody struct {
	UUID     string          `json:"uuid"`
	Metadata oscalMetadata   `json:"metadata"`
	Results  []oscalResult   `json:"results"`
}

type oscalMetadata struct {
	Title        string `json:"title"`
	LastModified string `json:"last-modified"`
	Version      string `json:"version"`
}

type oscalResult struct {
	UUID        string        `json:"uuid"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Start       string        `json:"start"`
	Findings    []oscalFinding `json:"findings"`
}

type oscalFinding struct {
	UUID        string            `json:"uuid"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Target      oscalFindingTarget `json:"target"`
}

type oscalFindingTarget struct {
	TargetID string `json:"target-id"`
	Status   string `json:"status"`
}

func (s *Server) handleDownloadOSCAL(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	att, err := s.pipeline.Get(id)
	if err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}
	assembled, ok := att.Package.(*assembly.Assembled)
	if !ok {
		writeJSONError(w, "attestation has no assembled package yet", http.StatusConflict)
		return
	}
	control, _ := att.Control.(*model.ControlDescriptor)

	status := "satisfied"
	if control != nil && control.AssessmentResult == model.AssessmentFail {
		status = "not-satisfied"
	}

	doc := oscalAssessmentResults{
		AssessmentResults: oscalAssessmentResultsBody{
			UUID: id,
			Metadata: oscalMetadata{
				Title:        "Attestation export for " + id,
				LastModified: time.Now().UTC().Format(time.RFC3339),
				Version:      assembled.Package.Version,
			},
			Results: []oscalResult{
				{
					UUID:        assembled.PackageDigest,
					Title:       "Compliance attestation",
					Description: "Exported from a zero-knowledge attestation package",
					Start:       assembled.Package.Metadata.IssuedAt.UTC().Format(time.RFC3339),
					Findings: []oscalFinding{
						{
							UUID:        assembled.PackageDigest,
							Title:       controlIDOf(control),
							Description: "Evidence commitment root " + assembled.Package.Evidence.MerkleRoot,
							Target: oscalFindingTarget{
								TargetID: controlIDOf(control),
								Status:   status,
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+id+"-oscal.json\"")
	writeJSON(w, http.StatusOK, doc)
}

func controlIDOf(c *model.ControlDescriptor) string {
	if c == nil {
		return "unknown"
	}
	return c.ControlID
}
