// Package api exposes the HTTP surface: auth, displays, and the scrape
// trigger and price listing.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openkiosk/priceboard/internal/auth"
	"github.com/openkiosk/priceboard/internal/pipeline"
	"github.com/openkiosk/priceboard/internal/store"
)

// latestFactsLimit caps the price listing at the newest rows.
const latestFactsLimit = 5

// Runner is the subset of the pipeline the API triggers.
type Runner interface {
	RunOnce(ctx context.Context) (pipeline.Result, error)
}

// Server wires the router, store, pipeline and authenticator together.
type Server struct {
	store  store.Store
	runner Runner
	auth   *auth.Authenticator
	router chi.Router
}

// New builds the Server and mounts all routes.
func New(st store.Store, runner Runner, a *auth.Authenticator) *Server {
	s := &Server{store: st, runner: runner, auth: a}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Get("/update", s.handleUpdate)
	r.Get("/prices", s.handlePrices)

	r.Route("/displays", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/", s.handleCreateDisplay)
		r.Get("/", s.handleListDisplays)
		r.Get("/{id}", s.handleGetDisplay)
		r.Put("/{id}", s.handleUpdateDisplay)
		r.Delete("/{id}", s.handleDeleteDisplay)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("api: shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("api: starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "api: server listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
