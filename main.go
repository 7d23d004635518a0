package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/anchor"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/config"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/firestore"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/interpreter"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/lifecycle"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/pipeline"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/server"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/signing"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/sqlstore"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/store"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting zero-knowledge attestation pipeline")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		log.Fatalf("failed to initialize signer: %v", err)
	}
	log.Printf("signer ready, issuer=%s", cfg.IssuerID)

	var sqlClient *sqlstore.Client
	if cfg.DatabaseURL != "" {
		sqlClient, err = sqlstore.NewClient(cfg.DatabaseURL)
		if err != nil {
			if cfg.DatabaseRequired {
				log.Fatalf("database connection required but failed: %v", err)
			}
			log.Printf("warning: database connection failed, continuing without durable mirror: %v", err)
			sqlClient = nil
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := sqlClient.MigrateUp(ctx)
			cancel()
			if err != nil {
				log.Printf("warning: database migration failed: %v", err)
			} else {
				log.Println("database migrations applied")
			}
		}
	}

	var firestoreSync *firestore.SyncService
	if cfg.FirestoreEnabled {
		fsClient, err := firestore.NewClient(context.Background(), &firestore.ClientConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			Enabled:         true,
		})
		if err != nil {
			log.Printf("warning: firestore client init failed, real-time sync disabled: %v", err)
		} else {
			firestoreSync = firestore.NewSyncService(fsClient)
			log.Println("firestore real-time sync enabled")
		}
	}

	var dispatcher *anchor.Dispatcher
	if cfg.AnchorEnabled && cfg.AnchorChain == "evm" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		evmAdapter, err := anchor.NewEVMAdapter(ctx, cfg.AnchorRPCURL, cfg.AnchorPrivateKey, cfg.AnchorChain, "")
		cancel()
		if err != nil {
			log.Fatalf("failed to initialize evm anchor adapter: %v", err)
		}
		retry := anchor.RetryConfig{
			MaxAttempts: cfg.AnchorMaxRetries,
			BaseDelay:   cfg.AnchorBaseDelay,
			MaxElapsed:  cfg.AnchorMaxElapsed,
		}
		dispatcher = anchor.NewDispatcher(evmAdapter, retry)
		log.Println("evm anchor dispatcher ready")
	} else if cfg.AnchorEnabled {
		log.Println("anchoring enabled with no chain selected, skipping anchoring")
	}

	st := store.New()

	engine := lifecycle.New(st, signer, lifecycle.Config{
		WorkerCount:         cfg.WorkerCount,
		FastDemoMode:        cfg.FastDemoMode,
		ExpirySweepInterval: cfg.ExpirySweepInterval,
		AnchorEnabled:       cfg.AnchorEnabled,
		AnchorDispatcher:    dispatcher,
		IssuerID:            cfg.IssuerID,
	})
	if firestoreSync != nil {
		engine.AddStateChangeListener(firestoreSync.OnStateChange)
	}
	engine.Start()
	defer engine.Stop()

	var aiAdapter interpreter.AIAdapter
	if cfg.AIAdapterEnabled && cfg.AIAdapterURL != "" {
		aiAdapter = interpreter.WithTimeout(interpreter.NewHTTPAdapter(cfg.AIAdapterURL), cfg.AIAdapterTimeout)
	}
	interp := interpreter.New(aiAdapter)

	p := pipeline.New(st, engine, interp, signer, pipeline.Config{
		IssuerID:       cfg.IssuerID,
		ValidityPeriod: cfg.ValidityPeriod,
		IdempotencyTTL: cfg.IdempotencyTTL,
		CreateTimeout:  cfg.CreateTimeout,
	})

	srv := server.New(p, interp)

	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Mux()}
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: srv.MetricsHandler()}

	go func() {
		log.Printf("api listening on %s", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server failed: %v", err)
		}
	}()
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
	if sqlClient != nil {
		if err := sqlClient.Close(); err != nil {
			log.Printf("sql client close error: %v", err)
		}
	}
	log.Println("stopped")
}

// loadSigner resolves the signing key from the configured seed file or
// mnemonic, generating an ephemeral key as a last resort for local
// development.
func loadSigner(cfg *config.Config) (*signing.Signer, error) {
	if cfg.Ed25519KeyPath != "" {
		path := cfg.Ed25519KeyPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.DataDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return signing.NewSignerFromSeedHex(string(data))
	}
	if cfg.Ed25519Mnemonic != "" {
		return signing.NewSignerFromMnemonic(cfg.Ed25519Mnemonic, "")
	}
	log.Println("warning: no signing key configured, generating an ephemeral key for this process")
	return signing.NewSignerWithNewKey()
}
