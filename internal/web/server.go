package web

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/config"
	"github.com/hpungsan/lexis/internal/metrics"
	"github.com/hpungsan/lexis/internal/ops"
)

// UserHeader carries the caller's user id. Authentication happens in front
// of lexis; the API trusts this header.
const UserHeader = "X-User-ID"

// NewServer creates the HTTP server for the Lexis API.
func NewServer(db *sql.DB, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger, version string) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      NewRouter(db, cfg, a, logger, version),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// NewRouter builds the route tree. Split from NewServer so tests can drive it
// with httptest.
func NewRouter(db *sql.DB, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger, version string) http.Handler {
	h := &Handlers{
		db:         db,
		cfg:        cfg,
		analyzer:   a,
		reconciler: ops.NewReconciler(db, logger),
		log:        logger,
		version:    version,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(securityHeaders)
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", UserHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", h.wrap(h.HandleCreateUser))

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/uploads", h.wrap(h.HandleCreateUpload))
			r.Get("/uploads", h.wrap(h.HandleListUploads))
			r.Delete("/uploads/{uploadID}", h.wrap(h.HandleDeleteUpload))
			r.Post("/uploads/{uploadID}/analyze", h.wrap(h.HandleAnalyze))

			r.Get("/analyses", h.wrap(h.HandleListAnalyses))
			r.Get("/analyses/{address}", h.wrap(h.HandleFetch))

			r.Post("/shares", h.wrap(h.HandleShare))
			r.Get("/shares", h.wrap(h.HandleListShared))
			r.Post("/shares/{sharedID}/save", h.wrap(h.HandleSave))

			r.Post("/connections", h.wrap(h.HandleAddConnection))
			r.Delete("/connections/{otherID}", h.wrap(h.HandleRemoveConnection))
			r.Get("/recipients", h.wrap(h.HandleRecipients))

			if cfg.Reconcile.HTTPEnabled {
				r.Post("/reconcile", h.wrap(h.HandleReconcile))
			}
		})
	})

	r.With(requireUser).Get("/analyses/{address}/view", h.HandleView)

	return r
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Run serves srv until ctx is cancelled, then shuts down gracefully within
// shutdownTimeout.
func Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("lexis API listening", "addr", "http://"+srv.Addr)
	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
