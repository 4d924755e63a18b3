// Package app builds the long-lived components shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/assistant"
	"github.com/codr1/releaseboard/internal/config"
	"github.com/codr1/releaseboard/internal/db"
	"github.com/codr1/releaseboard/internal/release"
	"github.com/codr1/releaseboard/internal/scm"
	"github.com/codr1/releaseboard/internal/theme"
	"github.com/codr1/releaseboard/internal/tracker"
)

const upstreamTimeout = 30 * time.Second

// Theme holds the registry, stylesheet defaults and the manager over them.
type Theme struct {
	Registry *theme.Registry
	Defaults map[string]string
	Manager  *theme.Manager
}

// NewTheme bootstraps the surface from the saved slot, if any, and builds the
// theme manager over it. A missing or unreadable slot leaves the defaults.
func NewTheme(ctx context.Context, cfg *config.Config, store theme.Store) (*Theme, error) {
	registry := theme.DefaultRegistry()
	defaults, err := theme.LoadDefaults(registry)
	if err != nil {
		return nil, fmt.Errorf("load theme defaults: %w", err)
	}

	surface := theme.NewSurface(defaults)
	raw := ""
	if store != nil {
		raw, err = store.GetThemeSlot(ctx, cfg.Theme.Slot)
		if err != nil && !errors.Is(err, theme.ErrSlotNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str("slot", cfg.Theme.Slot).Msg("Failed to read saved theme")
		}
	}
	applied := theme.Bootstrap(surface, registry.StyleVariableMap(), raw)

	manager := theme.NewManager(registry, surface, store)
	log.Ctx(ctx).Info().Str("slot", cfg.Theme.Slot).Int("applied", applied).Msg("Theme initialized")

	return &Theme{Registry: registry, Defaults: defaults, Manager: manager}, nil
}

// NewReleaseService connects the tracker and source control clients to the store.
func NewReleaseService(ctx context.Context, cfg *config.Config, queries *db.Queries) (*release.Service, error) {
	jira, err := tracker.New(tracker.Config{
		BaseURL:  cfg.Tracker.BaseURL,
		User:     cfg.Tracker.User,
		APIToken: cfg.Tracker.APIToken,
		Timeout:  upstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracker client: %w", err)
	}

	github, err := scm.New(ctx, scm.Config{
		BaseURL: cfg.SourceControl.BaseURL,
		Owner:   cfg.SourceControl.Owner,
		Token:   cfg.SourceControl.Token,
		Timeout: upstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create source control client: %w", err)
	}

	return release.NewService(queries, jira, github, cfg.Tracker.InScopeLabel), nil
}

// NewAssistant picks the routing strategy for the configured model.
func NewAssistant(cfg *config.Config, manager *theme.Manager) *assistant.Assistant {
	client := assistant.NewOpenAIClient(assistant.ModelConfig{
		BaseURL: cfg.Assistant.BaseURL,
		APIKey:  cfg.Assistant.APIKey,
		Timeout: cfg.Assistant.Timeout,
	})
	router := assistant.NewRouter(client, cfg.Assistant.Model, manager.Registry(), cfg.Assistant.SupportsTools)
	return assistant.New(router, manager)
}
