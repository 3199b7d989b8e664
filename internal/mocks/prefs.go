package mocks

import (
	"context"

	"github.com/ooni/dohrollout/internal/model"
)

// PreferenceStore is a mockable model.PreferenceStore.
type PreferenceStore struct {
	MockGetStringPref    func(name string, defaultValue string) (string, error)
	MockGetIntPref       func(name string, defaultValue int64) (int64, error)
	MockGetBoolPref      func(name string, defaultValue bool) (bool, error)
	MockSetStringPref    func(name string, value string) error
	MockSetIntPref       func(name string, value int64) error
	MockSetBoolPref      func(name string, value bool) error
	MockClearUserPref    func(name string) error
	MockPrefHasUserValue func(name string) (bool, error)
	MockChanges          func(ctx context.Context) <-chan string
}

var _ model.PreferenceStore = &PreferenceStore{}

// GetStringPref calls MockGetStringPref.
func (ps *PreferenceStore) GetStringPref(name string, defaultValue string) (string, error) {
	return ps.MockGetStringPref(name, defaultValue)
}

// GetIntPref calls MockGetIntPref.
func (ps *PreferenceStore) GetIntPref(name string, defaultValue int64) (int64, error) {
	return ps.MockGetIntPref(name, defaultValue)
}

// GetBoolPref calls MockGetBoolPref.
func (ps *PreferenceStore) GetBoolPref(name string, defaultValue bool) (bool, error) {
	return ps.MockGetBoolPref(name, defaultValue)
}

// SetStringPref calls MockSetStringPref.
func (ps *PreferenceStore) SetStringPref(name string, value string) error {
	return ps.MockSetStringPref(name, value)
}

// SetIntPref calls MockSetIntPref.
func (ps *PreferenceStore) SetIntPref(name string, value int64) error {
	return ps.MockSetIntPref(name, value)
}

// SetBoolPref calls MockSetBoolPref.
func (ps *PreferenceStore) SetBoolPref(name string, value bool) error {
	return ps.MockSetBoolPref(name, value)
}

// ClearUserPref calls MockClearUserPref.
func (ps *PreferenceStore) ClearUserPref(name string) error {
	return ps.MockClearUserPref(name)
}

// PrefHasUserValue calls MockPrefHasUserValue.
func (ps *PreferenceStore) PrefHasUserValue(name string) (bool, error) {
	return ps.MockPrefHasUserValue(name)
}

// Changes calls MockChanges.
func (ps *PreferenceStore) Changes(ctx context.Context) <-chan string {
	return ps.MockChanges(ctx)
}

// KeyValueStore is a mockable model.KeyValueStore.
type KeyValueStore struct {
	MockGet    func(key string) (value []byte, err error)
	MockSet    func(key string, value []byte) (err error)
	MockDelete func(key string) (err error)
}

var _ model.KeyValueStore = &KeyValueStore{}

// Get calls MockGet.
func (kvs *KeyValueStore) Get(key string) ([]byte, error) {
	return kvs.MockGet(key)
}

// Set calls MockSet.
func (kvs *KeyValueStore) Set(key string, value []byte) error {
	return kvs.MockSet(key, value)
}

// Delete calls MockDelete.
func (kvs *KeyValueStore) Delete(key string) error {
	return kvs.MockDelete(key)
}
