package safeio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeFSAllowsAbsoluteUnderRoot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, err := NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	if _, err := fs.ReadFile(p); err != nil {
		t.Fatalf("ReadFile absolute: %v", err)
	}
}

func TestSafeFSRejectsTraversal(t *testing.T) {
	fs, err := NewSafeFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	if _, err := fs.WriteOnce("../escape.txt", []byte("x")); err == nil {
		t.Fatalf("expected traversal error")
	}
	if _, err := fs.Path("/etc/passwd"); err == nil {
		t.Fatalf("expected outside-root error")
	}
}

func TestWriteOnceNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	wrote, err := fs.WriteOnce("docs/Architecture.md", []byte("first"))
	if err != nil || !wrote {
		t.Fatalf("WriteOnce() = %v, %v; want true, nil", wrote, err)
	}
	wrote, err = fs.WriteOnce("docs/Architecture.md", []byte("second"))
	if err != nil || wrote {
		t.Fatalf("WriteOnce() second = %v, %v; want false, nil", wrote, err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "docs", "Architecture.md"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("content = %q, want %q", got, "first")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	ok, err := fs.Exists("src/logger.py")
	if err != nil || ok {
		t.Fatalf("Exists() = %v, %v; want false, nil", ok, err)
	}
	if _, err := fs.WriteOnce("src/logger.py", nil); err != nil {
		t.Fatalf("WriteOnce: %v", err)
	}
	ok, err = fs.Exists("src/logger.py")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v; want true, nil", ok, err)
	}
}
