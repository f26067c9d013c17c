// Package main is the entry point for the gateway server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modelgate/internal/config"
	"modelgate/internal/crypto"
	"modelgate/internal/dispatch"
	"modelgate/internal/domain"
	"modelgate/internal/logsink"
	"modelgate/internal/modelmap"
	"modelgate/internal/pool"
	"modelgate/internal/telemetry"
	"modelgate/internal/translate"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.LoadOrDefault(*configPath)

	slog.Info("starting gateway",
		"bind_address", cfg.Server.BindAddress,
		"port", cfg.Server.Port,
		"kiro_region", cfg.Kiro.Region,
	)

	metrics := telemetry.NewMetrics(nil)

	rosterStore := pool.NewJSONFileStore(cfg.Pool.RosterPath)
	if passphrase := os.Getenv("GATEWAY_ROSTER_PASSPHRASE"); passphrase != "" {
		enc, err := crypto.NewEncryptionServiceFromPassphrase(passphrase, cfg.Pool.RosterPath)
		if err != nil {
			slog.Error("failed to derive roster encryption key", "error", err)
			os.Exit(1)
		}
		rosterStore = pool.NewJSONFileStoreWithEncryption(cfg.Pool.RosterPath, enc)
	}

	accountPool, err := pool.Open(
		rosterStore,
		pool.WithPolicy(pool.Policy(cfg.Pool.SelectionPolicy)),
		pool.WithCooldownInterval(cfg.Pool.CooldownInterval),
		pool.WithStatusHook(func(accountID string, status domain.AccountStatus) {
			metrics.SetAccountStatus(accountID, string(status))
		}),
	)
	if err != nil {
		slog.Error("failed to open account pool", "error", err)
		os.Exit(1)
	}
	slog.Info("account pool opened", "roster_path", cfg.Pool.RosterPath, "accounts", len(accountPool.Snapshot()))

	rules := loadModelMapRules(cfg.ModelMap.RuleTablePath)
	mapper := modelmap.New(rules)
	translator := translate.New(mapper, cfg.ModelMap.ValidateToolSchema)

	tokens := newEnvTokenProvider()
	logs := logsink.NewSlogSink(logger)

	dispatcher, err := dispatch.New(translator, accountPool, tokens, logs, dispatch.ClientConfig{
		Region:         cfg.Kiro.Region,
		KiroVersion:    cfg.Kiro.KiroVersion,
		ProxyURL:       cfg.Kiro.ProxyURL,
		RequestTimeout: cfg.Kiro.RequestTimeout,
		MaxIdleConns:   cfg.Kiro.MaxIdleConns,
	}, metrics)
	if err != nil {
		slog.Error("failed to construct dispatcher", "error", err)
		os.Exit(1)
	}
	slog.Info("dispatcher ready", "endpoint_region", cfg.Kiro.Region)
	// The Anthropic-compatible client-facing surface that would call
	// dispatcher.Dispatch is out of scope for this core (SPEC_FULL §1, §6);
	// this entrypoint only wires it and exposes /metrics and /healthz.
	_ = dispatcher

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", telemetry.Handler())
	mux.HandleFunc("GET /healthz", handleHealthz)

	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("serving", "addr", addr, "endpoints", []string{"/metrics", "/healthz"})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", "error", err)
	}

	slog.Info("gateway stopped")
}

// handleHealthz reports liveness only; readiness beyond process-up is the
// operator's concern (no dependency pings, matching §1's scoping of
// persistence and token refresh as external collaborators).
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// loadModelMapRules reads the static rule table from path, falling back to
// the built-in substring table (nil rules) if no path is configured or the
// file cannot be read.
func loadModelMapRules(path string) []modelmap.Rule {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("model map rule table not loaded, using built-in fallback only", "path", path, "error", err)
		return nil
	}
	var rules []modelmap.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		slog.Warn("model map rule table malformed, using built-in fallback only", "path", path, "error", err)
		return nil
	}
	return rules
}

// envTokenProvider is a minimal stand-in for the externally-owned token
// collaborator (SPEC_FULL §1, §6): it reads a pre-provisioned bearer token
// per account from the environment rather than performing any refresh.
// Deployments with an actual refresh flow supply their own domain.TokenProvider.
type envTokenProvider struct{}

func newEnvTokenProvider() *envTokenProvider { return &envTokenProvider{} }

func (p *envTokenProvider) EnsureValidToken(ctx context.Context, accountID string) (string, error) {
	token := os.Getenv("GATEWAY_TOKEN_" + accountID)
	if token == "" {
		return "", fmt.Errorf("no token provisioned for account %s", accountID)
	}
	return token, nil
}
