package internal

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rvilla/marks-front/internal/config"
	"github.com/rvilla/marks-front/internal/gate"
	"github.com/rvilla/marks-front/internal/identity"
	"github.com/rvilla/marks-front/internal/log"
	"github.com/rvilla/marks-front/internal/server"
	"github.com/rvilla/marks-front/internal/storage"
	"github.com/rvilla/marks-front/internal/webhook"
	"golang.org/x/sync/errgroup"
)

// MarksFront is the complete bookmark front application
type MarksFront struct {
	config     config.Config
	httpServer *server.HTTPServer
	store      storage.Store
}

// NewMarksFront builds the application with all dependencies wired
func NewMarksFront(ctx context.Context, cfg config.Config) (*MarksFront, error) {
	log.LogInfoWithFields("marksfront", "Building application", map[string]any{
		"baseURL": cfg.App.BaseURL,
		"addr":    cfg.App.Addr,
	})

	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	idConfig := identity.Config{
		ProviderURL: cfg.Identity.URL,
		APIKey:      string(cfg.Identity.APIKey),
		AppURL:      cfg.App.BaseURL,
	}

	hook := webhook.New(string(cfg.Webhook.URL), nil)

	handler := buildHTTPHandler(cfg, idConfig, store, hook)
	httpServer := server.NewHTTPServer(handler, cfg.App.Addr)

	return &MarksFront{
		config:     cfg,
		httpServer: httpServer,
		store:      store,
	}, nil
}

// Run starts the application and blocks until shutdown
func (m *MarksFront) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := m.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return m.httpServer.Stop(shutdownCtx)
	})

	err := g.Wait()

	if closeErr := m.store.Close(); closeErr != nil {
		log.LogWarnWithFields("marksfront", "Failed to close bookmark store", map[string]any{
			"error": closeErr.Error(),
		})
	}

	log.LogInfoWithFields("marksfront", "Application shutdown complete", nil)
	return err
}

// setupStorage creates the bookmark store from configuration
func setupStorage(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if s := cfg.Storage; s != nil && s.Kind == config.StorageKindFirestore {
		log.LogInfoWithFields("storage", "Using Firestore bookmark store", map[string]any{
			"project":    s.GCPProject,
			"database":   s.Database,
			"collection": s.Collection,
		})
		return storage.NewFirestoreStore(ctx, s.GCPProject, s.Database, s.Collection)
	}

	log.LogInfoWithFields("storage", "Using in-memory bookmark store", nil)
	return storage.NewMemoryStore(), nil
}

// buildHTTPHandler registers all routes and wraps them in the middleware
// chain. The admission gate sits directly around the router so it runs
// before every render; logging, request ids and recovery wrap it.
func buildHTTPHandler(cfg config.Config, idConfig identity.Config, store storage.Store, hook *webhook.Client) http.Handler {
	handlers := server.NewHandlers(idConfig, store, hook, cfg.App.BaseURL)

	mux := http.NewServeMux()
	mux.Handle("/healthz", server.NewHealthHandler())
	mux.HandleFunc("/", handlers.HomeHandler)
	mux.HandleFunc("GET /login", handlers.LoginPageHandler)
	mux.HandleFunc("POST /login/password", handlers.LoginPasswordHandler)
	mux.HandleFunc("POST /login/magic-link", handlers.LoginMagicLinkHandler)
	mux.HandleFunc("GET /auth/callback", handlers.AuthCallbackHandler)
	mux.HandleFunc("GET /share-target", handlers.ShareTargetHandler)
	mux.HandleFunc("POST /logout", handlers.LogoutHandler)

	return server.ChainMiddleware(mux,
		gate.NewAdmissionMiddleware(idConfig),
		server.NewLoggerMiddleware("web"),
		server.NewRequestIDMiddleware(),
		server.NewRecoverMiddleware("web"),
	)
}
