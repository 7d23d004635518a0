// Copyright 2025 Certen Protocol
//
// Firestore Client
// Firebase Admin SDK client for mirroring attestation lifecycle events to
// Firestore for real-time UI consumption.

package firestore

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client wraps the Firestore client with attestation-sync functionality.
type Client struct {
	app       *firebase.App
	firestore *gcpfirestore.Client
	projectID string
	logger    *log.Logger
	enabled   bool
	mu        sync.RWMutex
}

// ClientConfig holds configuration for the Firestore client.
type ClientConfig struct {
	// ProjectID is the Firebase/GCP project ID.
	ProjectID string

	// CredentialsFile is the path to the service account JSON file. If
	// empty, uses GOOGLE_APPLICATION_CREDENTIALS or application default
	// credentials.
	CredentialsFile string

	// Enabled controls whether Firestore operations are actually
	// performed. If false, all operations are no-ops.
	Enabled bool

	Logger *log.Logger
}

// DefaultConfig returns a ClientConfig populated from environment variables.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Enabled:         getEnvBool("FIRESTORE_ENABLED", false),
		Logger:          log.New(os.Stdout, "[Firestore] ", log.LstdFlags),
	}
}

// NewClient creates a new Firestore client. When cfg.Enabled is false the
// returned client is a no-op: every sync call succeeds without contacting
// Firestore, which keeps local development and tests free of GCP
// dependencies.
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[Firestore] ", log.LstdFlags)
	}

	client := &Client{
		projectID: cfg.ProjectID,
		logger:    cfg.Logger,
		enabled:   cfg.Enabled,
	}

	if !cfg.Enabled {
		cfg.Logger.Println("Firestore sync is DISABLED - running in no-op mode")
		return client, nil
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required when Firestore is enabled")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	client.app = app
	client.firestore = firestoreClient

	cfg.Logger.Printf("Firestore client initialized for project: %s", cfg.ProjectID)
	return client, nil
}

// Close closes the underlying Firestore client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.firestore != nil {
		return c.firestore.Close()
	}
	return nil
}

// IsEnabled reports whether Firestore sync is active.
func (c *Client) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Collection returns a reference to a Firestore collection, or nil when
// sync is disabled.
func (c *Client) Collection(path string) *gcpfirestore.CollectionRef {
	if !c.IsEnabled() || c.firestore == nil {
		return nil
	}
	return c.firestore.Collection(path)
}

// Doc returns a reference to a Firestore document, or nil when sync is
// disabled.
func (c *Client) Doc(path string) *gcpfirestore.DocumentRef {
	if !c.IsEnabled() || c.firestore == nil {
		return nil
	}
	return c.firestore.Doc(path)
}

// SetAttestationDoc upserts the summary document at attestations/{id},
// merging the supplied fields into whatever is already there.
func (c *Client) SetAttestationDoc(ctx context.Context, attestationID string, fields map[string]interface{}) error {
	if !c.IsEnabled() {
		c.logger.Printf("Firestore disabled - skipping attestation doc update for %s", attestationID)
		return nil
	}
	if c.firestore == nil {
		return fmt.Errorf("Firestore client not initialized")
	}
	_, err := c.firestore.Doc("attestations/"+attestationID).Set(ctx, fields, gcpfirestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to set attestation doc: %w", err)
	}
	return nil
}

// AddEventDoc appends an event document under attestations/{id}/events.
func (c *Client) AddEventDoc(ctx context.Context, attestationID string, fields map[string]interface{}) error {
	if !c.IsEnabled() {
		c.logger.Printf("Firestore disabled - skipping event doc for %s", attestationID)
		return nil
	}
	if c.firestore == nil {
		return fmt.Errorf("Firestore client not initialized")
	}
	_, _, err := c.firestore.Collection("attestations/" + attestationID + "/events").Add(ctx, fields)
	if err != nil {
		return fmt.Errorf("failed to add event doc: %w", err)
	}
	return nil
}

// LatestEvent retrieves the most recently added event document for an
// attestation, used to chain the hash of the next one.
func (c *Client) LatestEvent(ctx context.Context, attestationID string) (map[string]interface{}, error) {
	if !c.IsEnabled() || c.firestore == nil {
		return nil, nil
	}
	docs, err := c.firestore.Collection("attestations/"+attestationID+"/events").
		OrderBy("at", gcpfirestore.Desc).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0].Data(), nil
}

// Health checks Firestore connectivity. Disabled clients always report
// healthy.
func (c *Client) Health(ctx context.Context) error {
	if !c.IsEnabled() {
		return nil
	}
	if c.firestore == nil {
		return fmt.Errorf("Firestore client not initialized")
	}
	// A NotFound error on a probe document still proves connectivity;
	// only a transport-level failure is worth surfacing.
	_, err := c.firestore.Collection("_health_check").Doc("ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore health check failed: %w", err)
	}
	return nil
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1" || val == "yes"
}
