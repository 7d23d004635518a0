// Copyright 2025 Certen Protocol
//
// Firestore Sync Service
// Mirrors attestation lifecycle transitions to Firestore so a dashboard
// can subscribe to real-time updates instead of polling the API.

package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"time"
)

// SyncService forwards lifecycle state changes to Firestore. It is
// registered with the lifecycle engine via its AddStateChangeListener
// hook and is safe to invoke from multiple goroutines concurrently.
type SyncService struct {
	client *Client
	logger *log.Logger
}

// NewSyncService constructs a SyncService backed by client. A nil client
// is not permitted; pass a disabled Client (Enabled: false) to get a
// no-op sync service for local development and tests.
func NewSyncService(client *Client) *SyncService {
	return &SyncService{
		client: client,
		logger: log.New(os.Stdout, "[FirestoreSync] ", log.LstdFlags),
	}
}

// IsEnabled reports whether the underlying client will actually perform
// Firestore writes.
func (s *SyncService) IsEnabled() bool {
	return s.client != nil && s.client.IsEnabled()
}

// OnStateChange matches lifecycle.StateChangeFunc and can be registered
// directly with Engine.AddStateChangeListener. It updates the
// attestation's summary document and appends a hash-chained event
// document recording the transition.
func (s *SyncService) OnStateChange(attestationID, from, to string, at time.Time) {
	if !s.IsEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.client.SetAttestationDoc(ctx, attestationID, map[string]interface{}{
		"state":         to,
		"lastUpdated":   at,
		"attestationId": attestationID,
	}); err != nil {
		s.logger.Printf("failed to update summary doc for %s: %v", attestationID, err)
	}

	prevHash := ""
	if prev, err := s.client.LatestEvent(ctx, attestationID); err == nil && prev != nil {
		if h, ok := prev["eventHash"].(string); ok {
			prevHash = h
		}
	}

	event := map[string]interface{}{
		"from":     from,
		"to":       to,
		"at":       at,
		"prevHash": prevHash,
	}
	event["eventHash"] = computeEventHash(event)

	if err := s.client.AddEventDoc(ctx, attestationID, event); err != nil {
		s.logger.Printf("failed to append event doc for %s: %v", attestationID, err)
	}
}

// computeEventHash hashes the fields of an event document so a client can
// verify the append-only chain has not been tampered with after the
// fact. It mirrors the chaining scheme used for in-process event logs.
func computeEventHash(event map[string]interface{}) string {
	payload := map[string]interface{}{
		"from":     event["from"],
		"to":       event["to"],
		"prevHash": event["prevHash"],
	}
	if at, ok := event["at"].(time.Time); ok {
		payload["at"] = at.Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
