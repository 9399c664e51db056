// cmd/api/main.go
// Application entry point: configuration, storage, service wiring, routes
// and graceful shutdown.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carpediem-app/carpediem-backend/internal/api"
	"github.com/carpediem-app/carpediem-backend/internal/common/database"
	"github.com/carpediem-app/carpediem-backend/internal/config"
	"github.com/carpediem-app/carpediem-backend/internal/dispatch"
	"github.com/carpediem-app/carpediem-backend/internal/geo"
	"github.com/carpediem-app/carpediem-backend/internal/matching"
	"github.com/carpediem-app/carpediem-backend/internal/profile"
	"github.com/carpediem-app/carpediem-backend/internal/realtime"
	"github.com/carpediem-app/carpediem-backend/internal/session"
	"github.com/carpediem-app/carpediem-backend/internal/sms"
	"github.com/carpediem-app/carpediem-backend/internal/upload"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id BIGSERIAL PRIMARY KEY,
	registered TIMESTAMPTZ NOT NULL DEFAULT now(),
	name TEXT NOT NULL DEFAULT '',
	age INT NOT NULL DEFAULT 0,
	gender TEXT NOT NULL DEFAULT '',
	preferred_gender TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	lat DOUBLE PRECISION NOT NULL DEFAULT 0,
	lon DOUBLE PRECISION NOT NULL DEFAULT 0,
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	photo TEXT NOT NULL DEFAULT '',
	mobile BIGINT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_profiles_matching
	ON profiles (age, gender, preferred_gender);

CREATE TABLE IF NOT EXISTS relationships (
	id BIGSERIAL PRIMARY KEY,
	profile_1 BIGINT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	profile_2 BIGINT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	profile1_state TEXT NOT NULL DEFAULT 'wait',
	profile2_state TEXT NOT NULL DEFAULT 'wait',
	status TEXT NOT NULL DEFAULT 'wait',
	version BIGINT NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_relationships_pair
	ON relationships (LEAST(profile_1, profile_2), GREATEST(profile_1, profile_2));

CREATE INDEX IF NOT EXISTS idx_relationships_profile_1 ON relationships (profile_1);
CREATE INDEX IF NOT EXISTS idx_relationships_profile_2 ON relationships (profile_2);

CREATE TABLE IF NOT EXISTS pending_messages (
	id BIGSERIAL PRIMARY KEY,
	sender_id BIGINT NOT NULL,
	recipient_id BIGINT NOT NULL,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pending_messages_recipient
	ON pending_messages (recipient_id);
`

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := runMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	var storage upload.Storage
	if cfg.UseS3 {
		storage, err = upload.NewS3Storage(cfg.S3Bucket, cfg.S3Region)
	} else {
		storage, err = upload.NewLocalStorage(cfg.LocalUploadDir)
	}
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}
	uploads := upload.NewManager(storage, cfg.FileImageMaxSize, cfg.ImageCompression)

	var smsProvider sms.Provider
	if cfg.SMSProvider == "twilio" {
		smsProvider = sms.NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	} else {
		smsProvider = sms.NewMockProvider()
	}
	smsService := sms.NewService(rdb, smsProvider, cfg.SMSCodeLength, cfg.SMSCodeExpiry)

	geoClient := geo.NewClient(cfg.GeoAPIURL, cfg.GeoAPIUserAgent, cfg.GeoAPILang)
	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionExpiry, cfg.IsProduction())

	profileRepo := profile.NewPostgresRepository(db)
	profileService := profile.NewService(profileRepo, geoClient, uploads, profile.Limits{
		NameMaxLen:        cfg.NameMaxLen,
		DescriptionMaxLen: cfg.DescriptionMaxLen,
		MinUserAge:        cfg.MinUserAge,
		PasswordLength:    cfg.GenPasswordLength,
		BCryptCost:        cfg.BCryptCost,
	})

	matchRepo := matching.NewPostgresRepository(db)
	selector := matching.NewSelector(matchRepo, profileRepo, cfg.SelectingAgeDiff, cfg.MaxAgeWidenings)
	matchService := matching.NewService(matchRepo, profileRepo, selector)

	hub := realtime.NewHub()
	notifier := realtime.NewNotifier(hub, realtime.NewPostgresRepository(db))

	handlers := api.NewHandlers(sessions, profileService, matchService, smsService, notifier)
	registry := dispatch.NewRegistry()
	handlers.Register(registry)
	dispatcher := dispatch.NewDispatcher(registry, sessions, profileService, uploads)
	gateway := realtime.NewGateway(hub, notifier, handlers.AuthenticateWS)

	router := mux.NewRouter()
	router.Handle("/api", dispatcher).Methods(http.MethodPost)
	router.HandleFunc("/ws", gateway.ServeWS).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	if !cfg.UseS3 {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalUploadDir)))).
			Methods(http.MethodGet)
	}

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s (environment: %s)", srv.Addr, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

func runMigrations(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}
