// internal/theme/theme.go
package theme

import (
	"errors"
	"fmt"
)

// Theme is a partial set of variable assignments. Only present keys are applied.
type Theme struct {
	Colors       map[string]string `json:"colors,omitempty"`
	BorderRadius map[string]string `json:"borderRadius,omitempty"`
	Shadows      map[string]string `json:"shadows,omitempty"`
}

// Section returns the map for a category, or nil.
func (t Theme) Section(category Category) map[string]string {
	switch category {
	case CategoryColors:
		return t.Colors
	case CategoryBorderRadius:
		return t.BorderRadius
	case CategoryShadows:
		return t.Shadows
	default:
		return nil
	}
}

func (t *Theme) set(category Category, key, value string) {
	section := t.Section(category)
	if section == nil {
		section = map[string]string{}
		switch category {
		case CategoryColors:
			t.Colors = section
		case CategoryBorderRadius:
			t.BorderRadius = section
		case CategoryShadows:
			t.Shadows = section
		default:
			return
		}
	}
	section[key] = value
}

// IsEmpty reports whether no category carries a value.
func (t Theme) IsEmpty() bool {
	return len(t.Colors) == 0 && len(t.BorderRadius) == 0 && len(t.Shadows) == 0
}

// Len counts assigned variables across categories.
func (t Theme) Len() int {
	return len(t.Colors) + len(t.BorderRadius) + len(t.Shadows)
}

// ParseError reports untrusted input that did not yield a usable patch.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse theme: %s: %v", e.Reason, e.Err)
	}
	return "parse theme: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError lists keys that were dropped because the registry does not know them.
// It never fails a patch on its own.
type ValidationError struct {
	Dropped []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("theme: dropped %d unknown keys: %v", len(e.Dropped), e.Dropped)
}

// PersistenceError wraps a failed or corrupt read/write of a saved theme slot.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("theme %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrSlotNotFound is returned by stores when a slot holds no value.
var ErrSlotNotFound = errors.New("theme slot not found")
