package assistant

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/theme"
)

// Assistant runs one chat turn at a time and applies the resulting theme actions.
type Assistant struct {
	router  Router
	manager *theme.Manager

	busy atomic.Bool

	mu       sync.Mutex
	previous *theme.Theme
}

func New(router Router, manager *theme.Manager) *Assistant {
	return &Assistant{router: router, manager: manager}
}

type TurnResult struct {
	TurnID string      `json:"turnId"`
	Reply  Reply       `json:"reply"`
	Theme  theme.Theme `json:"theme"`
}

// Turn routes a request and applies its successful update_theme actions in order.
// A second call while one is in flight fails with ErrTurnInProgress.
func (a *Assistant) Turn(ctx context.Context, req Request) (TurnResult, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return TurnResult{}, ErrTurnInProgress
	}
	defer a.busy.Store(false)

	turnID := uuid.New().String()
	logger := log.Ctx(ctx).With().Str("turn_id", turnID).Logger()
	ctx = logger.WithContext(ctx)

	before := a.manager.Snapshot()
	req.Theme = before

	reply, err := a.router.Route(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Msg("Assistant turn failed")
		return TurnResult{}, err
	}

	changed := false
	for i := range reply.Actions {
		action := &reply.Actions[i]
		if action.Tool != ToolUpdateTheme || !action.OK || action.Patch == nil {
			continue
		}
		action.Applied = a.manager.Apply(*action.Patch)
		changed = true
		for _, note := range action.Advisories {
			logger.Info().Str("advisory", note).Msg("Theme advisory")
		}
	}

	if changed {
		a.mu.Lock()
		a.previous = &before
		a.mu.Unlock()
	}

	logger.Info().
		Int("actions", len(reply.Actions)).
		Bool("theme_changed", changed).
		Msg("Assistant turn complete")

	return TurnResult{
		TurnID: turnID,
		Reply:  reply,
		Theme:  a.manager.Snapshot(),
	}, nil
}

// Revert restores the theme that was active before the last turn that changed it.
func (a *Assistant) Revert(ctx context.Context) (theme.Theme, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return theme.Theme{}, ErrTurnInProgress
	}
	defer a.busy.Store(false)

	a.mu.Lock()
	previous := a.previous
	a.previous = nil
	a.mu.Unlock()
	if previous == nil {
		return theme.Theme{}, ErrNothingToRevert
	}

	a.manager.Reset()
	a.manager.Apply(*previous)
	log.Ctx(ctx).Info().Msg("Theme reverted")
	return a.manager.Snapshot(), nil
}
