package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the attestation pipeline service.
type Config struct {
	// Server Configuration
	ListenAddr  string
	MetricsAddr string

	// Signer Configuration
	Ed25519KeyPath  string // Path to a file holding a hex-encoded 32-byte Ed25519 seed
	Ed25519Mnemonic string // 25-word mnemonic, alternative to Ed25519KeyPath
	DataDir         string // Base directory for data files
	IssuerID        string

	// Pipeline Configuration
	WorkerCount         int
	FastDemoMode        bool // insert small sleeps between lifecycle steps for observable progress
	ValidityPeriod      time.Duration
	IdempotencyTTL      time.Duration
	ExpirySweepInterval time.Duration
	CreateTimeout       time.Duration

	// AI Adapter Configuration (optional control interpretation collaborator)
	AIAdapterEnabled bool
	AIAdapterURL     string
	AIAdapterTimeout time.Duration

	// Anchor Configuration
	AnchorEnabled    bool
	AnchorChain      string // "evm" or "none"
	AnchorRPCURL     string
	AnchorPrivateKey string
	AnchorMaxRetries int
	AnchorBaseDelay  time.Duration
	AnchorMaxElapsed time.Duration

	// Persisted state layout (optional SQL mirror, URL-based)
	DatabaseURL      string
	DatabaseRequired bool // If true, startup fails if database connection fails

	// Firestore Configuration (optional real-time UI sync)
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Webhook delivery
	WebhookTimeout    time.Duration
	WebhookMaxRetries int

	LogLevel string
}

// Load reads configuration from environment variables, then overlays an
// optional YAML file named by CONFIG_FILE if present.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),

		Ed25519KeyPath:  getEnv("ED25519_KEY_PATH", ""),
		Ed25519Mnemonic: getEnv("ED25519_MNEMONIC", ""),
		DataDir:         getEnv("DATA_DIR", "./data"),
		IssuerID:        getEnv("ISSUER_ID", "issuer-default"),

		WorkerCount:         getEnvInt("WORKER_COUNT", 8),
		FastDemoMode:        getEnvBool("FAST_DEMO_MODE", false),
		ValidityPeriod:      getEnvDuration("VALIDITY_PERIOD", 90*24*time.Hour),
		IdempotencyTTL:      getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		ExpirySweepInterval: getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Minute),
		CreateTimeout:       getEnvDuration("CREATE_TIMEOUT", 5*time.Second),

		AIAdapterEnabled: getEnvBool("AI_ADAPTER_ENABLED", false),
		AIAdapterURL:     getEnv("AI_ADAPTER_URL", ""),
		AIAdapterTimeout: getEnvDuration("AI_ADAPTER_TIMEOUT", 2*time.Second),

		AnchorEnabled:    getEnvBool("ANCHOR_ENABLED", false),
		AnchorChain:      getEnv("ANCHOR_CHAIN", "none"),
		AnchorRPCURL:     getEnv("ANCHOR_RPC_URL", ""),
		AnchorPrivateKey: getEnv("ANCHOR_PRIVATE_KEY", ""),
		AnchorMaxRetries: getEnvInt("ANCHOR_MAX_RETRIES", 5),
		AnchorBaseDelay:  getEnvDuration("ANCHOR_BASE_DELAY", 500*time.Millisecond),
		AnchorMaxElapsed: getEnvDuration("ANCHOR_MAX_ELAPSED", 30*time.Second),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabaseRequired: getEnvBool("DATABASE_REQUIRED", false),

		FirestoreEnabled:        getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		WebhookTimeout:    getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookMaxRetries: getEnvInt("WEBHOOK_MAX_RETRIES", 5),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.overlayYAML(path); err != nil {
			return nil, fmt.Errorf("load config overlay %s: %w", path, err)
		}
	}

	return cfg, nil
}

// overlayYAML takes IssuerID, AnchorChain and AnchorRPCURL from a YAML file
// when the file sets them and the corresponding env var is unset. Env vars
// always win over the file; other fields in the file are ignored.
func (c *Config) overlayYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if overlay.IssuerID != "" && os.Getenv("ISSUER_ID") == "" {
		c.IssuerID = overlay.IssuerID
	}
	if overlay.AnchorChain != "" && os.Getenv("ANCHOR_CHAIN") == "" {
		c.AnchorChain = overlay.AnchorChain
	}
	if overlay.AnchorRPCURL != "" && os.Getenv("ANCHOR_RPC_URL") == "" {
		c.AnchorRPCURL = overlay.AnchorRPCURL
	}
	return nil
}

// Validate checks that all required configuration is present and consistent.
// This must be called after Load() before starting the service.
func (c *Config) Validate() error {
	var errs []string

	if c.WorkerCount <= 0 {
		errs = append(errs, "WORKER_COUNT must be positive")
	}
	if c.ValidityPeriod <= 0 {
		errs = append(errs, "VALIDITY_PERIOD must be positive")
	}
	if c.Ed25519KeyPath != "" && c.Ed25519Mnemonic != "" {
		errs = append(errs, "ED25519_KEY_PATH and ED25519_MNEMONIC are mutually exclusive")
	}
	if c.AnchorEnabled {
		switch c.AnchorChain {
		case "evm":
			if c.AnchorRPCURL == "" {
				errs = append(errs, "ANCHOR_RPC_URL is required when ANCHOR_CHAIN=evm")
			}
			if c.AnchorPrivateKey == "" {
				errs = append(errs, "ANCHOR_PRIVATE_KEY is required when ANCHOR_CHAIN=evm")
			}
		case "none":
			// anchoring enabled but no chain selected wires no adapter, so
			// anchoring is skipped; allowed
		default:
			errs = append(errs, fmt.Sprintf("ANCHOR_CHAIN %q is not recognized", c.AnchorChain))
		}
	}
	if c.DatabaseRequired && c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required but not set")
	}
	if c.FirestoreEnabled && c.FirebaseProjectID == "" {
		errs = append(errs, "FIREBASE_PROJECT_ID is required when FIRESTORE_ENABLED=true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
