// Package api provides the HTTP server for the liveshop realtime core:
// the websocket endpoint, the credit surface, and the notification inbox.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/app/ledger"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/daemon"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/sqlite"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/ws"
)

// Server is the liveshop HTTP API server.
type Server struct {
	registry       *ws.Registry
	ledger         *ledger.Ledger
	db             *sqlite.DB
	credits        daemon.CreditsConfig
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(registry *ws.Registry, lg *ledger.Ledger, db *sqlite.DB, credits daemon.CreditsConfig) *Server {
	return &Server{registry: registry, ledger: lg, db: db, credits: credits}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	// Persistent seller connections — token travels as a query parameter.
	r.Get("/ws", s.registry.HandleWS)

	// Credit surface — 402 on insufficient credits is the load-bearing
	// contract for clients.
	r.Route("/api/credits", func(r chi.Router) {
		r.Get("/balance", s.handleBalance)
		r.Get("/packages", s.handlePackages)
		r.Get("/transactions", s.handleTransactions)
		r.Post("/purchase", s.handlePurchase)
		r.Post("/consume", s.handleConsume)
	})

	// Notification inbox, dead (undelivered) notifications included.
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", s.handleListNotifications)
		r.Post("/{id}/read", s.handleNotificationRead)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the dashboard frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
