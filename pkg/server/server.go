// Copyright 2025 Certen Protocol
//
// HTTP API Server
// Exposes the pipeline façade over a plain net/http.ServeMux, mirroring the
// handler-struct-per-concern layout used across the rest of this codebase.

package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/interpreter"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/pipeline"
)

// Server wires HTTP handlers to the pipeline façade.
type Server struct {
	pipeline    *pipeline.Pipeline
	interpreter *interpreter.Interpreter
	logger      *log.Logger
	startedAt   time.Time
}

// New constructs a Server. Call Mux to obtain the http.Handler to serve.
func New(p *pipeline.Pipeline, interp *interpreter.Interpreter) *Server {
	return &Server{
		pipeline:    p,
		interpreter: interp,
		logger:      log.New(os.Stdout, "[Server] ", log.LstdFlags),
		startedAt:   time.Now(),
	}
}

// Mux builds the complete routing table.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/api/v1/attestations", s.handleAttestationsCollection)
	mux.HandleFunc("/api/v1/attestations/", s.handleAttestationsItem)

	mux.HandleFunc("/api/v1/interpret", s.handleInterpret)
	mux.HandleFunc("/api/v1/samples/quick-attest/", s.handleQuickAttest)

	mux.HandleFunc("/api/v1/receipts/", s.handleReceiptsItem)

	return mux
}

// MetricsHandler returns the Prometheus scrape endpoint, served on a
// separate listener from the main API so metrics stay reachable even if
// API handlers are saturated.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForPipelineError maps a pipeline sentinel error kind to its HTTP
// status code.
func statusForPipelineError(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrInvalidEvidence):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrConflict), errors.Is(err, pipeline.ErrInvalidTransition), errors.Is(err, pipeline.ErrCancelled), errors.Is(err, pipeline.ErrIdentifierCollision):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrAnchorTransientFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrAnchorPermanentFailure):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrProofFailure), errors.Is(err, pipeline.ErrSignatureFailure), errors.Is(err, pipeline.ErrInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
