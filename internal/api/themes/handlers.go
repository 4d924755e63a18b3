// internal/api/themes/handlers.go
package themes

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/api/apiutil"
	"github.com/codr1/releaseboard/internal/theme"
)

const (
	themeStoreTimeout = 5 * time.Second
	maxPatchBytes     = 64 << 10
	slotQueryKey      = "slot"
)

var (
	manager      themeManager
	store        theme.Store
	defaults     map[string]string
	defaultSlot  string
	handlersOnce sync.Once
)

type themeManager interface {
	Apply(patch theme.Theme) int
	Snapshot() theme.Theme
	Reset()
	Save(ctx context.Context, key string) error
	Load(ctx context.Context, key string) bool
	Registry() *theme.Registry
	Surface() *theme.Surface
}

type themeResponse struct {
	Theme      theme.Theme `json:"theme"`
	Applied    int         `json:"applied,omitempty"`
	Dropped    []string    `json:"dropped,omitempty"`
	Advisories []string    `json:"advisories,omitempty"`
}

type slotResponse struct {
	Slot   string      `json:"slot"`
	Loaded bool        `json:"loaded"`
	Theme  theme.Theme `json:"theme"`
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style id="theme-bootstrap">{{.InlineStyle}}</style>
<link rel="stylesheet" href="/theme.css">
</head>
<body>
<main id="app" data-api="/api/v1"></main>
</body>
</html>
`))

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(m themeManager, s theme.Store, defaultValues map[string]string, slot string) {
	if m == nil {
		return
	}
	handlersOnce.Do(func() {
		manager = m
		store = s
		defaults = defaultValues
		defaultSlot = slot
		if defaultSlot == "" {
			defaultSlot = theme.DefaultSlot
		}
	})
}

// /
func HandlePage(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		logger := log.Ctx(r.Context())

		m := loadManager()
		if m == nil {
			logger.Error().Msg("Theme manager not initialized")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		persisted := readPersisted(r.Context(), defaultSlot)
		style := theme.InlineStyle(m.Registry().StyleVariableMap(), defaults, persisted)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := pageTemplate.Execute(w, struct {
			Title       string
			InlineStyle template.CSS
		}{
			Title:       title,
			InlineStyle: template.CSS(style),
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to render page shell")
		}
	}
}

// /theme.css
func HandleThemeCSS(w http.ResponseWriter, r *http.Request) {
	m := loadManager()
	if m == nil {
		log.Ctx(r.Context()).Error().Msg("Theme manager not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, m.Surface().CSS())
}

// GET /api/v1/theme
func HandleThemeGet(w http.ResponseWriter, r *http.Request) {
	m, ok := requireManager(w, r)
	if !ok {
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, themeResponse{Theme: m.Snapshot()}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write theme response")
	}
}

// POST /api/v1/theme
func HandleThemeApply(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	m, ok := requireManager(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPatchBytes))
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Failed to read request body")
		return
	}

	patch, dropped, err := m.Registry().ParseFromFunctionArgs(string(body))
	if err != nil {
		var parseErr *theme.ParseError
		if errors.As(err, &parseErr) {
			apiutil.WriteError(w, r, http.StatusBadRequest, parseErr.Error())
			return
		}
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	resp := themeResponse{
		Applied:    m.Apply(patch),
		Advisories: theme.Advisories(patch),
	}
	if dropped != nil {
		resp.Dropped = dropped.Dropped
	}
	resp.Theme = m.Snapshot()

	logger.Info().Int("applied", resp.Applied).Int("dropped", len(resp.Dropped)).Msg("Theme patch applied")
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write theme apply response")
	}
}

// POST /api/v1/theme/reset
func HandleThemeReset(w http.ResponseWriter, r *http.Request) {
	m, ok := requireManager(w, r)
	if !ok {
		return
	}
	m.Reset()
	log.Ctx(r.Context()).Info().Msg("Theme reset")
	if err := apiutil.WriteJSON(w, http.StatusOK, themeResponse{Theme: m.Snapshot()}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write theme reset response")
	}
}

// POST /api/v1/theme/save
func HandleThemeSave(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	m, ok := requireManager(w, r)
	if !ok {
		return
	}
	slot := slotFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), themeStoreTimeout)
	defer cancel()

	if err := m.Save(ctx, slot); err != nil {
		logger.Warn().Err(err).Str("slot", slot).Msg("Failed to save theme")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to save theme")
		return
	}

	logger.Info().Str("slot", slot).Msg("Theme saved")
	if err := apiutil.WriteJSON(w, http.StatusOK, slotResponse{Slot: slot, Loaded: true, Theme: m.Snapshot()}); err != nil {
		logger.Error().Err(err).Msg("Failed to write theme save response")
	}
}

// POST /api/v1/theme/load
func HandleThemeLoad(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	m, ok := requireManager(w, r)
	if !ok {
		return
	}
	slot := slotFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), themeStoreTimeout)
	defer cancel()

	loaded := m.Load(ctx, slot)
	logger.Info().Str("slot", slot).Bool("loaded", loaded).Msg("Theme load requested")
	if err := apiutil.WriteJSON(w, http.StatusOK, slotResponse{Slot: slot, Loaded: loaded, Theme: m.Snapshot()}); err != nil {
		logger.Error().Err(err).Msg("Failed to write theme load response")
	}
}

// GET /api/v1/theme/schema
func HandleThemeSchema(w http.ResponseWriter, r *http.Request) {
	m, ok := requireManager(w, r)
	if !ok {
		return
	}
	registry := m.Registry()
	payload := map[string]any{
		"schema":      registry.FunctionSchema(false),
		"description": registry.PromptDescription(),
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write theme schema response")
	}
}

func requireManager(w http.ResponseWriter, r *http.Request) (themeManager, bool) {
	m := loadManager()
	if m == nil {
		log.Ctx(r.Context()).Error().Msg("Theme manager not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}
	return m, true
}

// readPersisted returns the raw saved slot value, or "" when there is none.
func readPersisted(ctx context.Context, slot string) string {
	if store == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, themeStoreTimeout)
	defer cancel()

	raw, err := store.GetThemeSlot(ctx, slot)
	if err != nil {
		if !errors.Is(err, theme.ErrSlotNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str("slot", slot).Msg("Failed to read saved theme for page shell")
		}
		return ""
	}
	return raw
}

func slotFromRequest(r *http.Request) string {
	if slot := strings.TrimSpace(r.URL.Query().Get(slotQueryKey)); slot != "" {
		return slot
	}
	return defaultSlot
}

func loadManager() themeManager {
	return manager
}
