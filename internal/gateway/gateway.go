// ABOUTME: Gateway orchestrator that wires the store, analyzer, and HTTP server
// ABOUTME: Manages route registration, CORS, and graceful shutdown lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/securebot/internal/analyzer"
	"github.com/2389/securebot/internal/config"
	"github.com/2389/securebot/internal/conversation"
	"github.com/2389/securebot/internal/store"
)

// Version is set by the main package at startup.
var Version = "dev"

const serviceName = "securebot"

// shutdownTimeout bounds how long graceful shutdown waits for in-flight
// requests.
const shutdownTimeout = 10 * time.Second

// securityAnalyzer covers the single-shot analysis operations. The chat path
// goes through the conversation service instead.
type securityAnalyzer interface {
	AnalyzeTraffic(ctx context.Context, pattern *analyzer.TrafficPattern) (string, error)
	GenerateIncidentReport(ctx context.Context, incidents []*analyzer.Incident) (string, error)
}

// Gateway owns the securebot HTTP server and its collaborators.
type Gateway struct {
	config       *config.Config
	store        store.Store
	conversation *conversation.Service
	analyzer     securityAnalyzer
	httpServer   *http.Server
	logger       *slog.Logger
}

// New creates a gateway from configuration: it opens the conversation store
// and builds the analyzer client and conversation service.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path, cfg.Conversations.Retention)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	client := analyzer.NewClient(analyzer.Config{
		BaseURL:     cfg.Analyzer.BaseURL,
		APIKey:      cfg.Analyzer.APIKey,
		Model:       cfg.Analyzer.Model,
		MaxTokens:   cfg.Analyzer.MaxTokens,
		Temperature: cfg.Analyzer.Temperature,
	}, logger)

	svc := conversation.New(st, client, cfg.Conversations.ContextWindow, cfg.Analyzer.Timeout, logger)

	return &Gateway{
		config:       cfg,
		store:        st,
		conversation: svc,
		analyzer:     client,
		logger:       logger.With("component", "gateway"),
	}, nil
}

// routes builds the API mux.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", g.handleChat)
	mux.HandleFunc("/api/history", g.handleHistory)
	mux.HandleFunc("/api/clear", g.handleClear)
	mux.HandleFunc("/api/analyze-traffic", g.handleAnalyzeTraffic)
	mux.HandleFunc("/api/generate-report", g.handleGenerateReport)
	mux.HandleFunc("/api/health", g.handleHealth)
	mux.HandleFunc("/", g.handleNotFound)
	return corsMiddleware(mux)
}

// corsMiddleware applies the permissive CORS policy to every response and
// answers preflight requests directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	g.httpServer = &http.Server{
		Addr:              g.config.Server.HTTPAddr,
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", g.config.Server.HTTPAddr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("shutdown signal received")
	case serverErr = <-errCh:
		g.logger.Error("HTTP server failed", "error", serverErr)
	}

	if err := g.gracefulShutdown(); err != nil {
		if serverErr != nil {
			return serverErr
		}
		return err
	}

	return serverErr
}

// gracefulShutdown stops the HTTP server and closes the store with a fresh
// timeout context, since the run context is already cancelled by the time
// shutdown begins.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if g.httpServer != nil {
		if err := g.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	g.logger.Info("shutdown complete")
	return nil
}
