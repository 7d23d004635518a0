// Copyright 2025 Certen Protocol
//
// Interpretation and Quick-Attest Handlers

package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
)

type interpretRequest struct {
	Framework string `json:"framework"`
	ControlID string `json:"control_id"`
	Statement string `json:"statement"`
}

// handleInterpret exposes the control interpreter standalone, without
// creating an attestation, for callers that want to preview a claim
// classification before committing evidence.
func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req interpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Statement == "" {
		writeJSONError(w, "statement is required", http.StatusBadRequest)
		return
	}

	result := s.interpreter.Interpret(r.Context(), req.Statement, req.Framework, req.ControlID)
	writeJSON(w, http.StatusOK, result)
}

// quickAttestRequest carries only what a caller can't derive from the
// catalog: an optional callback URL. Evidence and control fields come from
// the sample catalog entry named in the URL, not the request body.
type quickAttestRequest struct {
	CallbackURL string `json:"callback_url,omitempty"`
}

// handleQuickAttest implements the convenience wrapper at
// /api/v1/samples/quick-attest/{control_id}: it looks up control_id in the
// sample-control catalog, synthesizes that control's fixed number of
// deterministic evidence items, and runs create against them. The caller
// supplies no evidence or control fields of its own.
func (s *Server) handleQuickAttest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	controlID := strings.TrimPrefix(r.URL.Path, "/api/v1/samples/quick-attest/")
	if controlID == "" || controlID == r.URL.Path {
		writeJSONError(w, "control id required", http.StatusBadRequest)
		return
	}

	sc, ok := lookupSampleControl(controlID)
	if !ok {
		writeJSONError(w, "unknown sample control id", http.StatusNotFound)
		return
	}

	var req quickAttestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	createReq := model.CreateRequest{
		Evidence: synthesizeEvidence(sc),
		Policy:   sc.Policy,
		Control: model.ControlDescriptor{
			Framework: sc.Framework,
			ControlID: sc.ControlID,
			Statement: sc.Statement,
		},
		CallbackURL: req.CallbackURL,
	}

	att, err := s.pipeline.Create(r.Context(), createReq, "")
	if err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}
	writeJSON(w, http.StatusAccepted, att)
}
