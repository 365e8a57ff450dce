package rest

import (
	"log/slog"
	"net/http"

	"github.com/JakubTuta/minsik-ingestion/internal/transport/middleware"
)

// RouterDeps holds everything the HTTP router needs.
type RouterDeps struct {
	Log     *slog.Logger
	Health  *HealthHandler
	Admin   *AdminHandler
	Limiter *middleware.RateLimiter

	// AdminRatePerMinute limits calls to /admin routes per client IP.
	// Zero disables the limit.
	AdminRatePerMinute int
}

// NewRouter assembles the HTTP handler tree with the shared middleware
// chain applied to every route.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", deps.Health.Live)
	mux.HandleFunc("GET /ready", deps.Health.Ready)
	mux.HandleFunc("GET /health", deps.Health.Health)

	admin := http.NewServeMux()
	admin.HandleFunc("POST /admin/import/dump", deps.Admin.TriggerImport)
	admin.HandleFunc("GET /admin/import/status", deps.Admin.ImportStatus)

	var adminHandler http.Handler = admin
	if deps.Limiter != nil && deps.AdminRatePerMinute > 0 {
		adminHandler = deps.Limiter.Limit(deps.AdminRatePerMinute)(admin)
	}
	mux.Handle("/admin/", adminHandler)

	chain := middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(deps.Log),
		middleware.Logger(deps.Log),
	)

	return chain(mux)
}
