package theme

import (
	"strings"
	"sync"
)

// Surface is the live set of CSS variable values the rendered UI reads from.
// Defaults come from the static stylesheet; overrides are layered on top.
type Surface struct {
	mu        sync.RWMutex
	defaults  map[string]string
	overrides map[string]string
}

func NewSurface(defaults map[string]string) *Surface {
	copied := make(map[string]string, len(defaults))
	for k, v := range defaults {
		copied[k] = v
	}
	return &Surface{
		defaults:  copied,
		overrides: map[string]string{},
	}
}

// SetProperty overrides a variable.
func (s *Surface) SetProperty(name, value string) {
	s.mu.Lock()
	s.overrides[name] = value
	s.mu.Unlock()
}

// RemoveProperty drops an override so the default shows through again.
func (s *Surface) RemoveProperty(name string) {
	s.mu.Lock()
	delete(s.overrides, name)
	s.mu.Unlock()
}

// ComputedValue resolves a variable the way the browser would: override first,
// then the stylesheet default.
func (s *Surface) ComputedValue(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.overrides[name]; ok {
		return v
	}
	return s.defaults[name]
}

// Overrides returns a copy of the current overrides.
func (s *Surface) Overrides() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// batch runs fn with the write lock held so a multi-variable update is never
// observed half-applied.
func (s *Surface) batch(fn func(overrides map[string]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.overrides)
}

// CSS renders defaults and overrides as a single :root rule.
func (s *Surface) CSS() string {
	s.mu.RLock()
	merged := make(map[string]string, len(s.defaults)+len(s.overrides))
	for k, v := range s.defaults {
		merged[k] = v
	}
	for k, v := range s.overrides {
		merged[k] = v
	}
	s.mu.RUnlock()

	return rootRule(merged)
}

func rootRule(vars map[string]string) string {
	var b strings.Builder
	b.WriteString(":root{")
	for _, name := range sortedKeys(vars) {
		value := sanitizeCSSValue(vars[name])
		if value == "" {
			continue
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte(';')
	}
	b.WriteString("}")
	return b.String()
}

// sanitizeCSSValue strips characters that could close the declaration or the
// surrounding <style> element.
func sanitizeCSSValue(value string) string {
	value = strings.TrimSpace(value)
	if strings.ContainsAny(value, ";{}<>") {
		return ""
	}
	return value
}
