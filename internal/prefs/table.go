// Package prefs implements the typed preference store.
//
// Preferences only have user values here: the default value is always
// supplied by the caller, which matches how the rollout engine reads them.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/runtimex"
)

// ErrPrefType indicates that a preference has a different type.
var ErrPrefType = errors.New("prefs: type mismatch")

// Entry is the serialized user value of a preference.
type Entry struct {
	// Type is the preference type.
	Type model.PrefType `json:"type"`

	// Value is the JSON encoded value.
	Value json.RawMessage `json:"value"`
}

// table maps preference names to their user values.
type table map[string]*Entry

func (t table) get(name string, ptype model.PrefType, out any) (bool, error) {
	entry, found := t[name]
	if !found {
		return false, nil
	}
	if entry.Type != ptype {
		return false, fmt.Errorf("%w: %s is %s, not %s", ErrPrefType, name, entry.Type, ptype)
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		return false, fmt.Errorf("prefs: %s: %w", name, err)
	}
	return true, nil
}

func (t table) set(name string, ptype model.PrefType, value any) {
	data := runtimex.Try1(json.Marshal(value))
	t[name] = &Entry{Type: ptype, Value: data}
}

// fingerprint returns a map suitable for detecting which preferences changed.
func (t table) fingerprint() map[string]string {
	out := make(map[string]string, len(t))
	for name, entry := range t {
		out[name] = string(entry.Type) + ":" + string(entry.Value)
	}
	return out
}

// diffFingerprints returns the sorted names that differ between a and b.
func diffFingerprints(a, b map[string]string) (names []string) {
	for name, value := range a {
		if other, found := b[name]; !found || other != value {
			names = append(names, name)
		}
	}
	for name := range b {
		if _, found := a[name]; !found {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return
}
