package vecdb

import (
	"sync"

	"github.com/fabfab/vectordb/internal/apperr"
)

// Database is the top-level collection of libraries, keyed by unique
// name. All mutation happens under a single writer-exclusive lock.
type Database struct {
	mu sync.RWMutex

	libraries    []*Library
	libraryIndex *NameIndex
}

// NewDatabase returns an empty Database.
func NewDatabase() *Database {
	return &Database{libraryIndex: NewNameIndex()}
}

// GetLibraries returns every library currently registered, in order.
func (db *Database) GetLibraries() []*Library {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]*Library(nil), db.libraries...)
}

// GetLibrary resolves a library by name, or NotFound.
func (db *Database) GetLibrary(name string) (*Library, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	pos, err := db.libraryIndex.Search("Database.GetLibrary", name)
	if err != nil {
		return nil, err
	}
	return db.libraries[pos], nil
}

// AddLibrary registers lib. Fails with Duplicate if lib.Name already
// exists.
func (db *Database) AddLibrary(lib *Library) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.libraryIndex.Add("Database.AddLibrary", lib.Name, len(db.libraries)); err != nil {
		return apperr.Duplicatef("Database.AddLibrary", lib.Name, "library %q already exists", lib.Name)
	}
	db.libraries = append(db.libraries, lib)
	return nil
}

// UpdateLibraryName renames a library in place and rebuilds the name
// index. Fails with NotFound if oldName is unknown, or Duplicate if
// newName is already taken.
func (db *Database) UpdateLibraryName(oldName, newName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	pos, err := db.libraryIndex.Search("Database.UpdateLibraryName", oldName)
	if err != nil {
		return err
	}
	if db.libraryIndex.Has(newName) {
		return apperr.Duplicatef("Database.UpdateLibraryName", newName, "library %q already exists", newName)
	}

	lib := db.libraries[pos]
	lib.Name = newName
	db.libraryIndex.Rebuild(len(db.libraries), func(i int) string { return db.libraries[i].Name })
	return nil
}

// RemoveLibrary deletes a library and cascades destruction of everything
// it contains (all documents and chunks go with it, since nothing else
// references them).
func (db *Database) RemoveLibrary(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	pos, err := db.libraryIndex.Search("Database.RemoveLibrary", name)
	if err != nil {
		return err
	}
	db.libraries = append(db.libraries[:pos], db.libraries[pos+1:]...)
	db.libraryIndex.Remove(name, len(db.libraries), func(i int) string { return db.libraries[i].Name })
	return nil
}
