package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// openTestDir opens a FileStore in a temporary directory.
func openTestDir(t *testing.T) *FileStore {
	t.Helper()
	s, err := OpenDir(filepath.Join(t.TempDir(), "kb"))
	if err != nil {
		t.Fatalf("open dir store: %v", err)
	}
	return s
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		fn(t, openTestStore(t))
	})
	t.Run("file", func(t *testing.T) {
		t.Parallel()
		fn(t, openTestDir(t))
	})
}

func Test_Store_SaveAndLoad(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Save(ctx, "knowledge-base", []byte("v1")); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := s.Save(ctx, "knowledge-base", []byte("v2")); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		got, err := s.Load(ctx, "knowledge-base")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if string(got) != "v2" {
			t.Errorf("load: want v2, got %q", got)
		}
	})
}

func Test_Store_LoadMissing(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Load(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func Test_Store_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Save(ctx, "k", []byte("x")); err != nil {
			t.Fatalf("save: %v", err)
		}
		for i := range 2 {
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("delete #%d: %v", i, err)
			}
		}
		if _, err := s.Load(ctx, "k"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("want ErrNotFound after delete, got %v", err)
		}
	})
}

func Test_Store_KeysAreIsolated(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.Save(ctx, "a", []byte("1"))
		_ = s.Save(ctx, "b/../a", []byte("2"))
		got, err := s.Load(ctx, "a")
		if err != nil || string(got) != "1" {
			t.Fatalf("key a: got %q, %v", got, err)
		}
	})
}

func Test_New_UnsupportedKind(t *testing.T) {
	t.Parallel()
	if _, err := New("s3", ""); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
}

func Test_New_File(t *testing.T) {
	t.Parallel()
	s, err := New(KindFile, t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("want *FileStore, got %T", s)
	}
}
