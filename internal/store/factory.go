package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind selects the storage backend.
type Kind string

const (
	// KindSQLite stores blobs in a SQLite database file.
	KindSQLite Kind = "sqlite"
	// KindFile stores blobs as files in a directory.
	KindFile Kind = "file"
)

// NewFromEnv opens the backend selected by KB_STORE (sqlite | file, default
// sqlite) at KB_PATH. When KB_PATH is unset the SQLite backend uses
// ~/.rockybot/knowledge.db and the file backend ~/.rockybot/kb.
func NewFromEnv() (Store, error) {
	kind := Kind(strings.ToLower(os.Getenv("KB_STORE")))
	if kind == "" {
		kind = KindSQLite
	}
	return New(kind, os.Getenv("KB_PATH"))
}

// New opens a backend of the given kind at path.
func New(kind Kind, path string) (Store, error) {
	switch kind {
	case KindSQLite:
		if path == "" {
			p, err := DefaultDBPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return Open(path)
	case KindFile:
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("store: could not determine home directory: %w", err)
			}
			path = filepath.Join(home, ".rockybot", "kb")
		}
		return OpenDir(path)
	default:
		return nil, fmt.Errorf("store: unsupported KB_STORE %q: must be one of sqlite, file", kind)
	}
}
