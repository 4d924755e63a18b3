// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/releaseboard/internal/api"
	"github.com/codr1/releaseboard/internal/api/chat"
	"github.com/codr1/releaseboard/internal/api/releases"
	"github.com/codr1/releaseboard/internal/api/themes"
	"github.com/codr1/releaseboard/internal/app"
	"github.com/codr1/releaseboard/internal/assistant"
	"github.com/codr1/releaseboard/internal/config"
	"github.com/codr1/releaseboard/internal/db"
	"github.com/codr1/releaseboard/internal/ratelimit"
	"github.com/codr1/releaseboard/internal/release"
)

type dependencies struct {
	database *db.DB
	themes   *app.Theme
	releases *release.Service
	chat     *assistant.Assistant
	limiter  *ratelimit.Limiter
}

func newServer(cfg *config.Config, deps dependencies) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	themes.InitHandlers(deps.themes.Manager, deps.database.Queries, deps.themes.Defaults, cfg.Theme.Slot)
	chat.InitHandlers(deps.chat, deps.limiter, cfg.RateLimit.TrustProxy)
	releases.InitHandlers(deps.database.Queries, deps.releases, releases.Options{
		ReleaseBranch: cfg.ReleaseBranch,
		Limiter:       deps.limiter,
		TrustProxy:    cfg.RateLimit.TrustProxy,
	})

	// Register routes
	registerRoutes(router, cfg)

	return &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.App.Port),
		Handler: handler,
		// Writes must outlast an assistant turn.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Assistant.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Main page handler
	mux.HandleFunc("GET /{$}", themes.HandlePage(cfg.App.Name))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Theme routes
	mux.HandleFunc("GET /theme.css", themes.HandleThemeCSS)
	mux.HandleFunc("GET /api/v1/theme", themes.HandleThemeGet)
	mux.HandleFunc("POST /api/v1/theme", themes.HandleThemeApply)
	mux.HandleFunc("POST /api/v1/theme/reset", themes.HandleThemeReset)
	mux.HandleFunc("POST /api/v1/theme/save", themes.HandleThemeSave)
	mux.HandleFunc("POST /api/v1/theme/load", themes.HandleThemeLoad)
	mux.HandleFunc("GET /api/v1/theme/schema", themes.HandleThemeSchema)

	// Assistant routes
	mux.HandleFunc("POST /api/v1/assistant/chat", chat.HandleChat)
	mux.HandleFunc("POST /api/v1/assistant/revert", chat.HandleRevert)

	// Release routes
	mux.HandleFunc("GET /api/v1/projects", releases.HandleProjectList)
	mux.HandleFunc("POST /api/v1/projects", releases.HandleProjectCreate)
	mux.HandleFunc("GET /api/v1/projects/{id}", releases.HandleProjectDetail)
	mux.HandleFunc("GET /api/v1/projects/{id}/versions", releases.HandleVersionList)
	mux.HandleFunc("POST /api/v1/projects/{id}/versions", releases.HandleVersionCreate)
	mux.HandleFunc("GET /api/v1/versions/{id}/build-status", releases.HandleBuildStatus)
	mux.HandleFunc("PUT /api/v1/versions/{id}/issues/{key}/build-status", releases.HandleOverrideSet)
	mux.HandleFunc("DELETE /api/v1/versions/{id}/issues/{key}/build-status", releases.HandleOverrideClear)
}
