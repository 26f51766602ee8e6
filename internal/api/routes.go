package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every endpoint on r and wraps it in the
// middleware stack. corsOrigins may be empty to disable CORS headers.
func RegisterRoutes(r *mux.Router, h *Handler, corsOrigins []string) http.Handler {
	// Lifecycle APIs
	r.HandleFunc("/monitor/start", h.StartMonitoring).Methods(http.MethodPost)
	r.HandleFunc("/monitor/stop", h.StopMonitoring).Methods(http.MethodPost)
	r.HandleFunc("/monitor/session", h.GetSession).Methods(http.MethodGet)

	// Query APIs
	r.HandleFunc("/vitals", h.GetVitals).Methods(http.MethodGet)
	r.HandleFunc("/vitals/{metric}/status", h.GetStatus).Methods(http.MethodGet)
	r.HandleFunc("/vitals/{metric}/window", h.GetWindow).Methods(http.MethodGet)
	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.HandleFunc("/alerts", h.GetAlerts).Methods(http.MethodGet)
	r.HandleFunc("/alerts/{id}/ack", h.AcknowledgeAlert).Methods(http.MethodPost)
	r.HandleFunc("/snapshot", h.GetSnapshot).Methods(http.MethodGet)

	// Observability APIs
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/admin/logs", h.GetLogs).Methods(http.MethodGet)

	var root http.Handler = r
	if len(corsOrigins) > 0 {
		root = handlers.CORS(
			handlers.AllowedOrigins(corsOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		)(r)
	}

	// Middlewares
	return Chain(
		root,
		RecoveryMiddleware(h.logger),
		LoggingMiddleware(h.logger),
	)
}
