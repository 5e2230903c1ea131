// Package api provides the HTTP REST API server for smartreviewer.
//
// It exposes the analyzed-articles resource, news search, article
// analysis and a WebSocket stream of article events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/smartreviewer/internal/analyzer"
	"github.com/seenimoa/smartreviewer/internal/config"
	"github.com/seenimoa/smartreviewer/internal/datasource"
	"github.com/seenimoa/smartreviewer/internal/store"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// Repository is the persistence the analyzed-articles routes serve.
type Repository interface {
	Insert(ctx context.Context, article models.AnalyzedArticle, extra map[string]json.RawMessage) (*store.Document, error)
	List(ctx context.Context) ([]store.Document, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Options holds the collaborators a Server is built from.
type Options struct {
	News       datasource.Searcher
	Summarizer analyzer.Summarizer
	Resolver   analyzer.SentimentResolver
	Repo       Repository
	Logger     *slog.Logger
	Version    string
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	news     datasource.Searcher
	analyzer *analyzer.Analyzer
	repo     Repository
	wsHub    *WSHub
	logger   *slog.Logger
	version  string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	srv := &Server{
		cfg:     cfg,
		news:    opts.News,
		repo:    opts.Repo,
		wsHub:   NewWSHub(logger),
		logger:  logger,
		version: version,
	}
	srv.analyzer = analyzer.New(opts.Summarizer, opts.Resolver, &eventStore{srv: srv}, logger)
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.wsHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS. Credentials are only allowed for explicitly configured origins.
	origins, credentials := []string{"*"}, false
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins, credentials = s.cfg.API.CORSOrigins, true
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}))

	// WebSocket connections are long-lived and stay outside the timeout.
	r.Get("/api/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))

		r.Get("/health", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", s.handleHealth)

			// Analyzed articles
			r.Get("/analyzed-articles", s.handleListArticles)
			r.Post("/analyzed-articles", s.handleCreateArticle)
			r.Delete("/analyzed-articles/{id}", s.handleDeleteArticle)

			// News
			r.Get("/news/search", s.handleNewsSearch)
			r.Get("/news/trending", s.handleNewsTrending)

			// Analysis
			r.Post("/analyze", s.handleAnalyze)

			// Configuration (read-only, secrets masked)
			r.Get("/config", s.handleGetConfig)
		})
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope for news, analysis and
// service endpoints.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeStatus := "ok"
	if s.repo == nil {
		storeStatus = "disabled"
	} else if err := s.repo.Ping(r.Context()); err != nil {
		storeStatus = "unavailable"
	}

	newsSource := ""
	if s.news != nil {
		newsSource = s.news.Name()
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":      "ok",
			"version":     s.version,
			"news_source": newsSource,
			"store":       storeStatus,
			"ws_clients":  s.wsHub.ClientCount(),
			"time":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
