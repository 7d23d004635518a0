// Copyright 2025 Certen Protocol

package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ============================================================================
// do Tests
// ============================================================================

func TestAPIClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"att-1","state":"issued"}`))
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	var out map[string]interface{}
	if err := client.do(http.MethodGet, "/api/v1/attestations/att-1", nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["id"] != "att-1" {
		t.Errorf("unexpected response: %v", out)
	}
}

func TestAPIClient_Do_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"attestation not found"}`))
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	err := client.do(http.MethodGet, "/api/v1/attestations/missing", nil, nil)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apiError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "attestation not found" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

// ============================================================================
// doAllowingStatus Tests
// ============================================================================

func TestAPIClient_DoAllowingStatus_AcceptsListedFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"result":{"overall_valid":false}}`))
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	var out map[string]interface{}
	err := client.doAllowingStatus(http.MethodPost, "/api/v1/attestations/att-1/verify", nil, &out, 200, 422)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, ok := out["result"].(map[string]interface{})
	if !ok || result["overall_valid"] != false {
		t.Errorf("expected decoded body, got %v", out)
	}
}

func TestAPIClient_DoAllowingStatus_RejectsUnlistedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	var out map[string]interface{}
	err := client.doAllowingStatus(http.MethodPost, "/api/v1/attestations/att-1/verify", nil, &out, 200, 422)
	if err == nil {
		t.Fatal("expected error for status not in the allow list")
	}
}
