// Copyright 2025 Certen Protocol
//
// Verification and Receipt Handlers

package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/verification"
)

// verifyRequest optionally narrows which checks to run. An absent or empty
// Checks list means "run all six".
type verifyRequest struct {
	Checks []verification.CheckName `json:"checks,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req verifyRequest
	if r.Method == http.MethodPost && r.Body != nil {
		// A body is optional on this endpoint; only a present, non-empty
		// body is decoded, and a malformed one is a client error.
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
				writeJSONError(w, "invalid request body", http.StatusBadRequest)
				return
			}
		}
	}

	receipt, err := s.pipeline.Verify(id, req.Checks)
	if err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}

	status := http.StatusOK
	if !receipt.Result.OverallValid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, receipt)
}

func (s *Server) handleReceiptsItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	receiptID := strings.TrimPrefix(r.URL.Path, "/api/v1/receipts/")
	if receiptID == "" || receiptID == r.URL.Path {
		writeJSONError(w, "receipt id required", http.StatusBadRequest)
		return
	}

	receipt, err := s.pipeline.GetReceipt(receiptID)
	if err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
