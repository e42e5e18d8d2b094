package seacow

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// NewPersistentDatabase opens or creates a database backed by a JSON archive
// file named "<name>.seacow" in the given directory. Every write saves the
// archive before returning, so there is nothing to flush on shutdown.
func NewPersistentDatabase(dir, name string) (*MemDatabase, error) {
	path := filepath.Join(dir, name+".seacow")
	if _, err := os.Stat(path); err == nil {
		return loadDatabase(path, name)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	db := NewMemDatabase(name)
	db.path = path
	db.lock.Lock()
	defer db.lock.Unlock()
	return db, db._save()
}

func loadDatabase(path, name string) (*MemDatabase, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading database archive %s", path)
	}
	db := NewMemDatabase(name)
	db.path = path
	if err := json.Unmarshal(data, &db.memData); err != nil {
		return nil, errors.Wrapf(err, "decoding database archive %s", path)
	}
	for _, ddoc := range db.DesignDocs {
		compiled, err := compileDesignDoc(ddoc)
		if err != nil {
			return nil, errors.Wrapf(err, "recompiling design doc %q from %s", ddoc.ID, path)
		}
		db.views[ddoc.Name()] = compiled
	}
	logg("loaded %s from %s", name, path)
	return db, nil
}

// Writes the archive via a temp file and an atomic rename. No-op for purely
// in-memory databases. (Use only while locked.)
func (db *MemDatabase) _save() error {
	if db.path == "" {
		return nil
	}
	data, err := json.Marshal(db.memData)
	if err != nil {
		return errors.Wrap(err, "encoding database archive")
	}

	file, err := ioutil.TempFile(filepath.Dir(db.path), "seacowtemp")
	if err != nil {
		return errors.Wrap(err, "saving database archive")
	}
	defer os.Remove(file.Name())

	if _, err = file.Write(data); err != nil {
		file.Close()
		return errors.Wrap(err, "saving database archive")
	}
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "saving database archive")
	}
	return os.Rename(file.Name(), db.path)
}
