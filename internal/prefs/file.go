package prefs

//
// File-backed preference store
//

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ooni/dohrollout/internal/broadcast"
	"github.com/ooni/dohrollout/internal/hujsonx"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/runtimex"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// FileStore is a PreferenceStore backed by a JSON document mapping each
// preference name to its type and user value. Users and administrators may
// edit the file by hand (comments are allowed). Such edits are reported
// through Changes once Watch is running.
type FileStore struct {
	// Logger is the OPTIONAL logger.
	Logger model.Logger

	bc   broadcast.Hub[string]
	last map[string]string
	mu   sync.Mutex
	path string
}

var _ model.PreferenceStore = &FileStore{}

// NewFileStore creates a new FileStore using the given path. The
// file does not need to exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the path of the backing file.
func (fst *FileStore) Path() string {
	return fst.path
}

// load must be called with mu held.
func (fst *FileStore) load() (table, error) {
	data, err := lockedfile.Read(fst.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(table), nil
	}
	if err != nil {
		return nil, err
	}
	t := make(table)
	if len(bytes.TrimSpace(data)) <= 0 {
		return t, nil
	}
	if err := hujsonx.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	for name, entry := range t {
		if entry == nil {
			delete(t, name)
		}
	}
	return t, nil
}

// store must be called with mu held.
func (fst *FileStore) store(t table) error {
	data := runtimex.Try1(json.MarshalIndent(t, "", "  "))
	return lockedfile.Write(fst.path, bytes.NewReader(data), 0600)
}

// update loads the table, applies fx, stores it and notifies.
func (fst *FileStore) update(fx func(t table)) error {
	fst.mu.Lock()
	t, err := fst.load()
	if err != nil {
		fst.mu.Unlock()
		return err
	}
	before := t.fingerprint()
	fx(t)
	if err := fst.store(t); err != nil {
		fst.mu.Unlock()
		return err
	}
	after := t.fingerprint()
	fst.last = after
	fst.mu.Unlock()
	fst.bc.Send(diffFingerprints(before, after)...)
	return nil
}

func (fst *FileStore) get(name string, ptype model.PrefType, out any) error {
	fst.mu.Lock()
	defer fst.mu.Unlock()
	t, err := fst.load()
	if err != nil {
		return err
	}
	_, err = t.get(name, ptype, out)
	return err
}

// Lookup returns the user value of a preference, if any.
func (fst *FileStore) Lookup(name string) (*Entry, bool, error) {
	fst.mu.Lock()
	defer fst.mu.Unlock()
	t, err := fst.load()
	if err != nil {
		return nil, false, err
	}
	entry, found := t[name]
	return entry, found, nil
}

// GetStringPref implements model.PreferenceStore.
func (fst *FileStore) GetStringPref(name string, defaultValue string) (string, error) {
	value := defaultValue
	err := fst.get(name, model.PrefTypeString, &value)
	return value, err
}

// GetIntPref implements model.PreferenceStore.
func (fst *FileStore) GetIntPref(name string, defaultValue int64) (int64, error) {
	value := defaultValue
	err := fst.get(name, model.PrefTypeInt, &value)
	return value, err
}

// GetBoolPref implements model.PreferenceStore.
func (fst *FileStore) GetBoolPref(name string, defaultValue bool) (bool, error) {
	value := defaultValue
	err := fst.get(name, model.PrefTypeBool, &value)
	return value, err
}

// SetStringPref implements model.PreferenceStore.
func (fst *FileStore) SetStringPref(name string, value string) error {
	return fst.update(func(t table) { t.set(name, model.PrefTypeString, value) })
}

// SetIntPref implements model.PreferenceStore.
func (fst *FileStore) SetIntPref(name string, value int64) error {
	return fst.update(func(t table) { t.set(name, model.PrefTypeInt, value) })
}

// SetBoolPref implements model.PreferenceStore.
func (fst *FileStore) SetBoolPref(name string, value bool) error {
	return fst.update(func(t table) { t.set(name, model.PrefTypeBool, value) })
}

// ClearUserPref implements model.PreferenceStore.
func (fst *FileStore) ClearUserPref(name string) error {
	return fst.update(func(t table) { delete(t, name) })
}

// PrefHasUserValue implements model.PreferenceStore.
func (fst *FileStore) PrefHasUserValue(name string) (bool, error) {
	fst.mu.Lock()
	defer fst.mu.Unlock()
	t, err := fst.load()
	if err != nil {
		return false, err
	}
	_, found := t[name]
	return found, nil
}

// Changes implements model.PreferenceStore.
func (fst *FileStore) Changes(ctx context.Context) <-chan string {
	return fst.bc.Subscribe(ctx)
}

// Watch watches the backing file for out-of-band edits until the context
// is done. We watch the parent directory because editors usually replace
// files rather than writing them in place.
func (fst *FileStore) Watch(ctx context.Context) error {
	logger := model.ValidLoggerOrDefault(fst.Logger)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(fst.path)); err != nil {
		return err
	}
	fst.mu.Lock()
	if t, err := fst.load(); err == nil {
		fst.last = t.fingerprint()
	}
	fst.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(fst.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			fst.reload(logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("prefs: watcher: %s", err.Error())
		}
	}
}

func (fst *FileStore) reload(logger model.Logger) {
	fst.mu.Lock()
	t, err := fst.load()
	if err != nil {
		fst.mu.Unlock()
		logger.Warnf("prefs: cannot reload %s: %s", fst.path, err.Error())
		return
	}
	after := t.fingerprint()
	changed := diffFingerprints(fst.last, after)
	fst.last = after
	fst.mu.Unlock()
	for _, name := range changed {
		logger.Debugf("prefs: %s changed out of band", name)
	}
	fst.bc.Send(changed...)
}
