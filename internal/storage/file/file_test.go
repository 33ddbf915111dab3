package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestFetch_ReadsNestedKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "incoming"), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "incoming", "abc123"), []byte("raw"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	data, err := New(dir).Fetch(context.Background(), "incoming/abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "raw" {
		t.Errorf("data: got %q, want %q", data, "raw")
	}
}

func TestFetch_Missing(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir()).Fetch(context.Background(), "incoming/missing")
	if err == nil {
		t.Fatal("expected error for missing key, got nil")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist in error chain, got %v", err)
	}
}

func TestFetch_RejectsEscapingKey(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"../secret", "incoming/../../secret", "/etc/passwd"} {
		if _, err := New(t.TempDir()).Fetch(context.Background(), key); err == nil {
			t.Errorf("Fetch(%q): expected error, got nil", key)
		}
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := New(".").Name(); got != "file" {
		t.Errorf("Name(): got %q, want %q", got, "file")
	}
}
