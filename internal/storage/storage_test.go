package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func exerciseBlobStore(t *testing.T, s BlobStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, TransactionsKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent key, got %v", err)
	}

	if err := s.Put(ctx, TransactionsKey, []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, TransactionsKey)
	if err != nil || string(got) != `[{"id":1}]` {
		t.Fatalf("get after put: %q err=%v", got, err)
	}

	// Overwritten wholesale.
	if err := s.Put(ctx, TransactionsKey, []byte(`[]`)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, err = s.Get(ctx, TransactionsKey)
	if err != nil || string(got) != `[]` {
		t.Fatalf("get after overwrite: %q err=%v", got, err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseBlobStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	_ = s.Put(context.Background(), "k", buf)
	buf[0] = 'x'
	got, _ := s.Get(context.Background(), "k")
	if string(got) != "abc" {
		t.Fatalf("store aliased caller buffer: %q", got)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseBlobStore(t, s)

	if _, err := os.Stat(filepath.Join(dir, "nested", "transactions.json")); err != nil {
		t.Fatalf("expected transactions.json on disk: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "nested"))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}

	if err := s.Put(context.Background(), "../escape", []byte("x")); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	a, _ := NewFileStore(dir)
	if err := a.Put(context.Background(), TransactionsKey, []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	b, _ := NewFileStore(dir)
	got, err := b.Get(context.Background(), TransactionsKey)
	if err != nil || string(got) != `[1]` {
		t.Fatalf("reload: %q err=%v", got, err)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "spendlog.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	exerciseBlobStore(t, s)

	// Reopening runs migrations again without error and keeps data.
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(context.Background(), TransactionsKey)
	if err != nil || string(got) != `[]` {
		t.Fatalf("reopen get: %q err=%v", got, err)
	}
}
