package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tmoreland/chorepoints/internal/database"
	"github.com/tmoreland/chorepoints/internal/ledger"
	"github.com/tmoreland/chorepoints/internal/logging"
	"github.com/tmoreland/chorepoints/internal/push"
	"github.com/tmoreland/chorepoints/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := logging.Setup(os.Getenv("CHOREPOINTS_LOG_LEVEL"), os.Getenv("CHOREPOINTS_LOG_FORMAT"))

	port := envOr("CHOREPOINTS_PORT", "8080")
	dbPath := envOr("CHOREPOINTS_DB_PATH", "chorepoints.db")

	secret := os.Getenv("CHOREPOINTS_TOKEN_SECRET")
	if secret == "" {
		logger.Error("CHOREPOINTS_TOKEN_SECRET is required")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	vapidPub := os.Getenv("CHOREPOINTS_VAPID_PUBLIC_KEY")
	vapidPriv := os.Getenv("CHOREPOINTS_VAPID_PRIVATE_KEY")
	if vapidPub == "" && vapidPriv == "" && os.Getenv("CHOREPOINTS_GENERATE_VAPID") == "true" {
		vapidPub, vapidPriv, err = push.GenerateVAPIDKeys()
		if err != nil {
			logger.Error("generate VAPID keys", "error", err)
			os.Exit(1)
		}
		logger.Info("generated ephemeral VAPID key pair", "public_key", vapidPub)
	}

	cfg := server.Config{
		TokenSecret:       []byte(secret),
		SecureCookies:     os.Getenv("CHOREPOINTS_SECURE_COOKIES") == "true",
		TrustProxyHeaders: os.Getenv("CHOREPOINTS_TRUST_PROXY_HEADERS") == "true",
		VAPIDPublicKey:    vapidPub,
		VAPIDPrivateKey:   vapidPriv,
		Ledger: ledger.Config{
			ParentsCompleteUnassigned: os.Getenv("CHOREPOINTS_PARENTS_COMPLETE_UNASSIGNED") == "true",
		},
	}
	if os.Getenv("CHOREPOINTS_REDEMPTION_BALANCE") == "daily" {
		cfg.Ledger.RedemptionBalance = ledger.BalanceDaily
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reminder := srv.Reminder(); reminder != nil {
		reminder.Start(ctx)
		defer reminder.Stop()
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("chorepoints listening", "addr", fmt.Sprintf("http://localhost:%s", port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
