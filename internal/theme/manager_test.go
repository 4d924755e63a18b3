package theme

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

type memoryStore struct {
	mu      sync.Mutex
	slots   map[string]string
	failPut error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{slots: map[string]string{}}
}

func (s *memoryStore) GetThemeSlot(ctx context.Context, key string) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.slots[key]
	if !ok {
		return "", ErrSlotNotFound
	}
	return value, nil
}

func (s *memoryStore) PutThemeSlot(ctx context.Context, key, value string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	s.slots[key] = value
	return nil
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	registry := DefaultRegistry()
	defaults, err := LoadDefaults(registry)
	if err != nil {
		t.Fatalf("LoadDefaults() error = %v", err)
	}
	return NewManager(registry, NewSurface(defaults), store)
}

func TestApplyThenSnapshot_RoundTripsPatchedFields(t *testing.T) {
	m := newTestManager(t, nil)
	before := m.Snapshot()

	patch := Theme{
		Colors:       map[string]string{"background": "#0b1020", "accent": "#f472b6"},
		BorderRadius: map[string]string{"large": "2rem"},
	}
	if got := m.Apply(patch); got != 3 {
		t.Fatalf("Apply() = %d, want 3", got)
	}

	after := m.Snapshot()
	for _, category := range Categories {
		for key, value := range patch.Section(category) {
			if after.Section(category)[key] != value {
				t.Fatalf("%s.%s = %q, want %q", category, key, after.Section(category)[key], value)
			}
		}
	}
	if after.Colors["foreground"] != before.Colors["foreground"] {
		t.Fatalf("untouched colors.foreground changed: %q -> %q", before.Colors["foreground"], after.Colors["foreground"])
	}
	if after.Shadows["small"] != before.Shadows["small"] {
		t.Fatalf("untouched shadows.small changed")
	}
}

func TestApply_IsPartialAcrossCalls(t *testing.T) {
	m := newTestManager(t, nil)

	m.Apply(Theme{Colors: map[string]string{"background": "#000000"}})
	m.Apply(Theme{Colors: map[string]string{"foreground": "#ffffff"}})

	snapshot := m.Snapshot()
	if snapshot.Colors["background"] != "#000000" || snapshot.Colors["foreground"] != "#ffffff" {
		t.Fatalf("second patch reset the first: %+v", snapshot.Colors)
	}
}

func TestReset_ReturnsToFreshSnapshot(t *testing.T) {
	fresh := newTestManager(t, nil).Snapshot()

	m := newTestManager(t, nil)
	m.Apply(FlashBang())
	m.Apply(Theme{Shadows: map[string]string{"medium": "none"}})
	m.Reset()

	if got := m.Snapshot(); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("Snapshot() after Reset() = %+v, want %+v", got, fresh)
	}
	if len(m.Surface().Overrides()) != 0 {
		t.Fatalf("overrides left after reset: %v", m.Surface().Overrides())
	}

	m.Reset()
	if got := m.Snapshot(); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("second Reset() changed snapshot")
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	m := newTestManager(t, store)
	m.Apply(Theme{Colors: map[string]string{"primary": "#7c3aed"}})
	if err := m.Save(ctx, DefaultSlot); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	restored := newTestManager(t, store)
	if !restored.Load(ctx, DefaultSlot) {
		t.Fatalf("Load() = false, want true")
	}
	if !reflect.DeepEqual(restored.Snapshot(), m.Snapshot()) {
		t.Fatalf("restored snapshot differs")
	}
}

func TestLoad_MissingOrCorruptSlot(t *testing.T) {
	store := newMemoryStore()
	store.slots["corrupt"] = "{not json"
	store.slots["empty"] = `{"typography":{"font":"serif"}}`
	ctx := context.Background()

	m := newTestManager(t, store)
	before := m.Snapshot()
	for _, slot := range []string{"missing", "corrupt", "empty"} {
		if m.Load(ctx, slot) {
			t.Fatalf("Load(%q) = true, want false", slot)
		}
	}
	if !reflect.DeepEqual(m.Snapshot(), before) {
		t.Fatalf("failed loads changed the surface")
	}
}

func TestSave_WrapsStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.failPut = errors.New("disk full")

	err := newTestManager(t, store).Save(context.Background(), DefaultSlot)
	var persistErr *PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("Save() error = %v, want *PersistenceError", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestSurfaceCSS(t *testing.T) {
	m := newTestManager(t, nil)
	m.Apply(Theme{Colors: map[string]string{"accent": "#abcdef", "ring": "red;}body{display:none"}})

	css := m.Surface().CSS()
	if !strings.HasPrefix(css, ":root{") || !strings.HasSuffix(css, "}") {
		t.Fatalf("CSS() = %q", css)
	}
	if !strings.Contains(css, "--accent:#abcdef;") {
		t.Fatalf("CSS() missing accent override: %q", css)
	}
	if strings.Contains(css, "display:none") {
		t.Fatalf("CSS() rendered unsafe value: %q", css)
	}
}
