package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pickframe/photos-front/internal/config"
	"github.com/pickframe/photos-front/internal/log"
	"github.com/pickframe/photos-front/internal/server"
	"github.com/pickframe/photos-front/internal/session"
	"github.com/pickframe/photos-front/internal/storage"
)

// PhotosFront represents the complete token gateway application
type PhotosFront struct {
	config     config.Config
	httpServer *server.HTTPServer
	store      storage.TokenStore
}

// NewPhotosFront creates the application with all dependencies built
func NewPhotosFront(ctx context.Context, cfg config.Config) (*PhotosFront, error) {
	log.LogInfoWithFields("photosfront", "Building token gateway", map[string]any{
		"addr":    cfg.Server.Addr,
		"storage": string(cfg.Storage.Kind),
	})

	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	codec := session.NewCodec([]byte(cfg.Session.Secret))
	authHandlers := server.NewAuthHandlers(cfg, codec, store)
	tokenHandlers := server.NewTokenHandlers(cfg, codec, store)
	mux := newMux(cfg, authHandlers, tokenHandlers)

	return &PhotosFront{
		config:     cfg,
		httpServer: server.NewHTTPServer(mux, cfg.Server.Addr),
		store:      store,
	}, nil
}

// newMux builds the route table. /photos-token is registered for GET plus an
// explicit OPTIONS route so preflights reach the CORS middleware while every
// other method gets the mux's 405.
func newMux(cfg config.Config, authHandlers *server.AuthHandlers, tokenHandlers *server.TokenHandlers) *http.ServeMux {
	cors := server.NewCORSMiddleware(cfg.Server.FrontendURL)
	photosToken := server.ChainMiddleware(http.HandlerFunc(tokenHandlers.TokenHandler), cors)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth-start", authHandlers.StartHandler)
	mux.HandleFunc("GET /auth-callback", authHandlers.CallbackHandler)
	mux.Handle("GET /photos-token", photosToken)
	mux.Handle("OPTIONS /photos-token", photosToken)
	mux.HandleFunc("GET /health", server.HealthHandler)
	return mux
}

// Run starts the application and blocks until shutdown
func (p *PhotosFront) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := p.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("photosfront", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	case <-ctx.Done():
		shutdownReason = "context cancelled"
	}

	log.LogInfoWithFields("photosfront", "Starting graceful shutdown", map[string]any{
		"reason": shutdownReason,
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := p.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("photosfront", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if err := p.store.Close(); err != nil {
		log.LogWarnWithFields("photosfront", "Token store close error", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("photosfront", "Shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}

// setupStorage creates the token store selected by configuration
func setupStorage(ctx context.Context, cfg config.Config) (storage.TokenStore, error) {
	switch cfg.Storage.Kind {
	case config.StorageFirestore:
		return storage.NewFirestoreStore(
			ctx,
			cfg.Storage.GCPProject,
			cfg.Storage.FirestoreDatabase,
			cfg.Storage.FirestoreCollection,
		)
	case config.StorageMemory:
		log.LogWarnWithFields("storage", "Using in-memory token store; records will not survive a restart", nil)
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
	}
}
