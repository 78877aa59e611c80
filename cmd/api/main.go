package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/auth"
	"github.com/ledgerkiro/ledgerkiro/internal/bankaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/banking"
	"github.com/ledgerkiro/ledgerkiro/internal/config"
	"github.com/ledgerkiro/ledgerkiro/internal/dashboard"
	"github.com/ledgerkiro/ledgerkiro/internal/db"
	"github.com/ledgerkiro/ledgerkiro/internal/dispatcher"
	"github.com/ledgerkiro/ledgerkiro/internal/houseaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/httpapi"
	"github.com/ledgerkiro/ledgerkiro/internal/ledger"
)

// commandChannelCapacity bounds each aggregate's single-writer dispatcher
// (SPEC_FULL.md §4.7/§5); requests beyond it fail fast with Overloaded
// rather than queuing unboundedly.
const commandChannelCapacity = 256

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	sys, err := banking.New(pool, logger, cfg.SnowflakeNodeID)
	if err != nil {
		log.Fatalf("failed to build banking system: %v", err)
	}

	bankAccountDispatch := dispatcher.New(commandChannelCapacity, func(ctx context.Context, id uuid.UUID, cmd bankaccount.Command) (*bankaccount.State, error) {
		state, _, err := sys.BankAccounts.Execute(ctx, id, cmd, sys.BankAccountServices())
		return state, err
	})
	ledgerDispatch := dispatcher.New(commandChannelCapacity, func(ctx context.Context, id uuid.UUID, cmd ledger.Command) (*ledger.State, error) {
		state, _, err := sys.Ledgers.Execute(ctx, id, cmd, ledger.Services{})
		return state, err
	})

	dispatchCtx, cancelDispatch := context.WithCancel(ctx)
	defer cancelDispatch()
	go bankAccountDispatch.Run(dispatchCtx)
	go ledgerDispatch.Run(dispatchCtx)

	houses := houseaccount.New(pool)

	bankAccountHandler := &httpapi.BankAccountHandler{Dispatch: bankAccountDispatch, Views: sys.BankAccountViews}
	ledgerHandler := &httpapi.LedgerHandler{Views: sys.LedgerViews}
	houseAccountHandler := &httpapi.HouseAccountHandler{Registry: houses, LedgerDispatch: ledgerDispatch}

	apiKeyAuth := &auth.Middleware{DB: pool, APIKeySecret: cfg.APIKeySecret}
	authWrap := func(h http.Handler) http.Handler { return apiKeyAuth.AuthMiddleware(h) }

	mux := httpapi.NewMux(bankAccountHandler, ledgerHandler, houseAccountHandler, authWrap)

	authHandler := &dashboard.AuthHandler{DB: pool, Config: cfg}
	tenantHandler := &dashboard.TenantHandler{DB: pool, Config: cfg}
	apiKeyHandler := &dashboard.APIKeyHandler{DB: pool, APIKeySecret: cfg.APIKeySecret, Config: cfg}
	webhookHandler := &dashboard.WebhookHandler{DB: pool, Config: cfg}

	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/me", authHandler.GetCurrentUser)

	mux.HandleFunc("/api/tenants", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("id") != "" {
				tenantHandler.GetTenant(w, r)
			} else {
				tenantHandler.ListTenants(w, r)
			}
		case http.MethodPost:
			tenantHandler.CreateTenant(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/tenants/api-keys", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			apiKeyHandler.ListAPIKeys(w, r)
		case http.MethodPost:
			apiKeyHandler.CreateAPIKey(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/api-keys/revoke", apiKeyHandler.RevokeAPIKey)

	mux.Handle("/v1/webhook-endpoints", authWrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			webhookHandler.ListWebhookEndpoints(w, r)
		case http.MethodPost:
			webhookHandler.CreateWebhookEndpoint(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))
	mux.Handle("/v1/webhook-deliveries", authWrap(http.HandlerFunc(webhookHandler.ListWebhookDeliveries)))

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: mux,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}
	cancelDispatch()

	logger.Info("server stopped")
}
