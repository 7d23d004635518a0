// Copyright 2025 Certen Protocol
//
// Attestation API Handlers
// CRUD and lifecycle actions over the pipeline façade's attestation
// resource.

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/store"
)

// handleAttestationsCollection handles POST (create) and GET (list) on
// /api/v1/attestations.
func (s *Server) handleAttestationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreate(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	att, err := s.pipeline.Create(r.Context(), req, idempotencyKey)
	if err != nil {
		s.logger.Printf("create failed: %v", err)
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}

	writeJSON(w, http.StatusAccepted, att)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f := store.ListFilter{State: r.URL.Query().Get("state")}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		f.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		f.Offset = offset
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attestations": s.pipeline.List(f),
	})
}

// handleAttestationsItem handles everything under
// /api/v1/attestations/{id}[/action], dispatching on the trailing path
// segment.
func (s *Server) handleAttestationsItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/attestations/")
	if rest == "" || rest == r.URL.Path {
		writeJSONError(w, "attestation id required", http.StatusBadRequest)
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		s.handleGet(w, r, id)
	case "cancel":
		s.handleCancel(w, r, id)
	case "revoke":
		s.handleRevoke(w, r, id)
	case "verify":
		s.handleVerify(w, r, id)
	case "download/json":
		s.handleDownloadJSON(w, r, id)
	case "download/oscal":
		s.handleDownloadOSCAL(w, r, id)
	default:
		writeJSONError(w, "unknown resource", http.StatusNotFound)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	att, err := s.pipeline.Get(id)
	if err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.pipeline.Cancel(id); err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancellation requested"})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.pipeline.Revoke(id); err != nil {
		writeJSONError(w, err.Error(), statusForPipelineError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
