// Copyright 2025 Certen Protocol
//
// Unit tests for the Firestore client
// Covers the disabled/no-op path only; exercising a real Firestore
// connection requires GCP credentials this test suite does not have.

package firestore

import (
	"context"
	"testing"
)

// ============================================================================
// Construction Tests
// ============================================================================

func TestNewClient_DisabledByDefault(t *testing.T) {
	client, err := NewClient(context.Background(), &ClientConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.IsEnabled() {
		t.Error("expected disabled client")
	}
}

func TestNewClient_NilConfigFallsBackToDefault(t *testing.T) {
	client, err := NewClient(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestNewClient_EnabledWithoutProjectID(t *testing.T) {
	_, err := NewClient(context.Background(), &ClientConfig{Enabled: true})
	if err == nil {
		t.Fatal("expected error when enabled without a project ID")
	}
}

// ============================================================================
// No-op Behavior Tests
// ============================================================================

func TestDisabledClient_SetAttestationDocIsNoOp(t *testing.T) {
	client, _ := NewClient(context.Background(), &ClientConfig{Enabled: false})
	err := client.SetAttestationDoc(context.Background(), "att-1", map[string]interface{}{"state": "issued"})
	if err != nil {
		t.Errorf("expected nil error from disabled client, got %v", err)
	}
}

func TestDisabledClient_AddEventDocIsNoOp(t *testing.T) {
	client, _ := NewClient(context.Background(), &ClientConfig{Enabled: false})
	err := client.AddEventDoc(context.Background(), "att-1", map[string]interface{}{"from": "pending", "to": "issued"})
	if err != nil {
		t.Errorf("expected nil error from disabled client, got %v", err)
	}
}

func TestDisabledClient_LatestEventReturnsNil(t *testing.T) {
	client, _ := NewClient(context.Background(), &ClientConfig{Enabled: false})
	event, err := client.LatestEvent(context.Background(), "att-1")
	if err != nil {
		t.Errorf("expected nil error from disabled client, got %v", err)
	}
	if event != nil {
		t.Errorf("expected nil event, got %v", event)
	}
}

func TestDisabledClient_HealthAlwaysReportsHealthy(t *testing.T) {
	client, _ := NewClient(context.Background(), &ClientConfig{Enabled: false})
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("expected disabled client to be healthy, got %v", err)
	}
}

func TestDisabledClient_CollectionAndDocReturnNil(t *testing.T) {
	client, _ := NewClient(context.Background(), &ClientConfig{Enabled: false})
	if col := client.Collection("attestations"); col != nil {
		t.Errorf("expected nil collection ref, got %v", col)
	}
	if doc := client.Doc("attestations/att-1"); doc != nil {
		t.Errorf("expected nil doc ref, got %v", doc)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("CERTEN_TEST_BOOL_UNSET", "")
	if !getEnvBool("CERTEN_TEST_BOOL_UNSET", true) {
		t.Error("expected default value true when unset")
	}

	t.Setenv("CERTEN_TEST_BOOL_TRUE", "true")
	if !getEnvBool("CERTEN_TEST_BOOL_TRUE", false) {
		t.Error("expected true for value \"true\"")
	}

	t.Setenv("CERTEN_TEST_BOOL_FALSE", "false")
	if getEnvBool("CERTEN_TEST_BOOL_FALSE", true) {
		t.Error("expected false for value \"false\"")
	}
}
