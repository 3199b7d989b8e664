// Package kvstore implements the key-value stores holding the
// persisted flags of the rollout engine.
package kvstore

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ooni/dohrollout/internal/model"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// ErrInvalidKey indicates a key that cannot be used as a file name.
var ErrInvalidKey = errors.New("invalid key")

// FS is a file-system based KVStore where each key is a file. Since each
// write goes through lockedfile, each key is independently atomic.
type FS struct {
	basedir string
}

var _ model.KeyValueStore = &FS{}

// NewFS creates a new kvstore.FS rooted at basedir.
func NewFS(basedir string) (kvs *FS, err error) {
	return newFileSystem(basedir, os.MkdirAll)
}

// osMkdirAll is the type of os.MkdirAll.
type osMkdirAll func(path string, perm fs.FileMode) error

func newFileSystem(basedir string, mkdir osMkdirAll) (*FS, error) {
	if err := mkdir(basedir, 0700); err != nil {
		return nil, err
	}
	return &FS{basedir: basedir}, nil
}

// filename maps a flag name such as doh-rollout.doneFirstRun to the
// file holding its value.
func (kvs *FS) filename(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return filepath.Join(kvs.basedir, key), nil
}

// Get returns the specified key's value. A missing key yields an
// error such that errors.Is(err, ErrNoSuchKey).
func (kvs *FS) Get(key string) ([]byte, error) {
	name, err := kvs.filename(key)
	if err != nil {
		return nil, err
	}
	data, err := lockedfile.Read(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, errors.Wrap(ErrNoSuchKey, key)
	case err != nil:
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	return data, nil
}

// Set sets the value of a specific key.
func (kvs *FS) Set(key string, value []byte) error {
	name, err := kvs.filename(key)
	if err != nil {
		return err
	}
	return lockedfile.Write(name, bytes.NewReader(value), 0600)
}

// Delete removes the file backing a specific key. Deleting a
// missing key is not an error.
func (kvs *FS) Delete(key string) error {
	name, err := kvs.filename(key)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
