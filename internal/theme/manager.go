package theme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DefaultSlot is the persisted slot used when callers do not name one.
const DefaultSlot = "theme"

// Store persists serialized theme snapshots in named slots.
type Store interface {
	GetThemeSlot(ctx context.Context, key string) (string, error)
	PutThemeSlot(ctx context.Context, key, value string) error
}

// Manager owns the style surface and is the only code that mutates it.
type Manager struct {
	registry *Registry
	surface  *Surface
	store    Store
}

func NewManager(registry *Registry, surface *Surface, store Store) *Manager {
	return &Manager{
		registry: registry,
		surface:  surface,
		store:    store,
	}
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

func (m *Manager) Surface() *Surface {
	return m.surface
}

// Apply writes every present key of the patch to the surface and returns how many
// variables were set. Unknown keys are skipped.
func (m *Manager) Apply(patch Theme) int {
	applied := 0
	m.surface.batch(func(overrides map[string]string) {
		for _, category := range Categories {
			section := patch.Section(category)
			for _, key := range sortedKeys(section) {
				variable, ok := m.registry.Lookup(category, key)
				if !ok {
					continue
				}
				overrides[variable] = section[key]
				applied++
			}
		}
	})
	log.Debug().Int("applied", applied).Msg("Theme patch applied")
	return applied
}

// Snapshot reads the computed value of every known variable, so variables that
// were never overridden report their stylesheet default.
func (m *Manager) Snapshot() Theme {
	var snapshot Theme
	for _, category := range Categories {
		for _, def := range m.registry.Enumerate(category) {
			snapshot.set(category, def.Key, m.surface.ComputedValue(def.Variable))
		}
	}
	return snapshot
}

// Reset removes every override across all categories.
func (m *Manager) Reset() {
	m.surface.batch(func(overrides map[string]string) {
		for _, variable := range m.registry.Variables() {
			delete(overrides, variable)
		}
	})
	log.Debug().Msg("Theme reset to defaults")
}

// Save serializes the current snapshot into a slot.
func (m *Manager) Save(ctx context.Context, key string) error {
	if m.store == nil {
		return &PersistenceError{Op: "save", Key: key, Err: errors.New("no theme store configured")}
	}
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		return &PersistenceError{Op: "save", Key: key, Err: err}
	}
	if err := m.store.PutThemeSlot(ctx, key, string(data)); err != nil {
		return &PersistenceError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// Load applies a saved snapshot. It reports false when the slot is empty or holds
// something that is not a theme; those cases are logged and never returned as errors.
func (m *Manager) Load(ctx context.Context, key string) bool {
	patch, err := m.readSlot(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSlotNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str("slot", key).Msg("Ignoring unreadable saved theme")
		}
		return false
	}
	m.Apply(patch)
	return true
}

func (m *Manager) readSlot(ctx context.Context, key string) (Theme, error) {
	if m.store == nil {
		return Theme{}, ErrSlotNotFound
	}
	raw, err := m.store.GetThemeSlot(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return Theme{}, err
		}
		return Theme{}, &PersistenceError{Op: "load", Key: key, Err: err}
	}

	var stored Theme
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return Theme{}, &PersistenceError{Op: "load", Key: key, Err: fmt.Errorf("corrupt value: %w", err)}
	}
	patch, _ := m.registry.Project(stored)
	if patch.IsEmpty() {
		return Theme{}, &PersistenceError{Op: "load", Key: key, Err: errors.New("saved value holds no theme variables")}
	}
	return patch, nil
}
