package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/interpreter"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/lifecycle"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/pipeline"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.New()
	signer, err := signing.NewSignerWithNewKey()
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	engine := lifecycle.New(st, signer, lifecycle.Config{WorkerCount: 2, FastDemoMode: true, ExpirySweepInterval: time.Hour})
	engine.Start()
	t.Cleanup(engine.Stop)

	interp := interpreter.New(nil)
	p := pipeline.New(st, engine, interp, signer, pipeline.Config{IssuerID: "issuer-1"})
	return New(p, interp)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateAttestationEndToEnd(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]interface{}{
		"evidence": []map[string]string{
			{"uri": "s3://bucket/obj", "hash": "aa1111111111111111111111111111111111111111111111111111111111aa", "type": "log"},
		},
		"policy": "policy-1",
		"control": map[string]string{
			"framework":  "soc2",
			"control_id": "CC7.2",
			"statement":  "we retain audit logs",
		},
	})

	req := httptest.NewRequest("POST", "/api/v1/attestations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != 202 {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var created map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	id, _ := created["ID"].(string)
	if id == "" {
		t.Fatalf("expected attestation id in response, got %v", created)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		getReq := httptest.NewRequest("GET", "/api/v1/attestations/"+id, nil)
		getRec := httptest.NewRecorder()
		s.Mux().ServeHTTP(getRec, getReq)
		var att map[string]interface{}
		json.Unmarshal(getRec.Body.Bytes(), &att)
		if att["State"] == "valid" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("attestation did not reach valid state")
}

func TestInterpretEndpoint(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{
		"framework":  "soc2",
		"control_id": "CC7.2",
		"statement":  "we monitor audit trail events",
	})
	req := httptest.NewRequest("POST", "/api/v1/interpret", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestQuickAttestUsesCatalogControl(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/samples/quick-attest/CC7.2", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != 202 {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var created map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	control, ok := created["Control"].(map[string]interface{})
	if !ok || control["control_id"] != "CC7.2" {
		t.Fatalf("expected catalog control CC7.2, got %+v", created)
	}
}

func TestQuickAttestUnknownControlReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/samples/quick-attest/NOPE", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetUnknownAttestationReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/attestations/nonexistent", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
