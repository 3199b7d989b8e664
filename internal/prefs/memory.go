package prefs

import (
	"context"
	"sync"

	"github.com/ooni/dohrollout/internal/broadcast"
	"github.com/ooni/dohrollout/internal/model"
)

// Memory is an in-memory PreferenceStore. The zero value is ready to use.
type Memory struct {
	bc broadcast.Hub[string]
	mu sync.Mutex
	t  table
}

var _ model.PreferenceStore = &Memory{}

func (m *Memory) get(name string, ptype model.PrefType, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.get(name, ptype, out)
}

func (m *Memory) set(name string, ptype model.PrefType, value any) error {
	m.mu.Lock()
	if m.t == nil {
		m.t = make(table)
	}
	before := m.t.fingerprint()
	m.t.set(name, ptype, value)
	changed := diffFingerprints(before, m.t.fingerprint())
	m.mu.Unlock()
	m.bc.Send(changed...)
	return nil
}

// GetStringPref implements model.PreferenceStore.
func (m *Memory) GetStringPref(name string, defaultValue string) (string, error) {
	value := defaultValue
	_, err := m.get(name, model.PrefTypeString, &value)
	return value, err
}

// GetIntPref implements model.PreferenceStore.
func (m *Memory) GetIntPref(name string, defaultValue int64) (int64, error) {
	value := defaultValue
	_, err := m.get(name, model.PrefTypeInt, &value)
	return value, err
}

// GetBoolPref implements model.PreferenceStore.
func (m *Memory) GetBoolPref(name string, defaultValue bool) (bool, error) {
	value := defaultValue
	_, err := m.get(name, model.PrefTypeBool, &value)
	return value, err
}

// SetStringPref implements model.PreferenceStore.
func (m *Memory) SetStringPref(name string, value string) error {
	return m.set(name, model.PrefTypeString, value)
}

// SetIntPref implements model.PreferenceStore.
func (m *Memory) SetIntPref(name string, value int64) error {
	return m.set(name, model.PrefTypeInt, value)
}

// SetBoolPref implements model.PreferenceStore.
func (m *Memory) SetBoolPref(name string, value bool) error {
	return m.set(name, model.PrefTypeBool, value)
}

// ClearUserPref implements model.PreferenceStore.
func (m *Memory) ClearUserPref(name string) error {
	m.mu.Lock()
	_, found := m.t[name]
	delete(m.t, name)
	m.mu.Unlock()
	if found {
		m.bc.Send(name)
	}
	return nil
}

// PrefHasUserValue implements model.PreferenceStore.
func (m *Memory) PrefHasUserValue(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, found := m.t[name]
	return found, nil
}

// Changes implements model.PreferenceStore.
func (m *Memory) Changes(ctx context.Context) <-chan string {
	return m.bc.Subscribe(ctx)
}
