package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	payload := []byte("enhanced audio payload")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	copied, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(copied) != string(payload) {
		t.Fatalf("copy differs: %q", copied)
	}
}

func TestCopyFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := os.WriteFile(dst, []byte("previous longer content"), 0o644); err != nil {
		t.Fatalf("write destination: %v", err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	copied, _ := os.ReadFile(dst)
	if string(copied) != "new" {
		t.Fatalf("destination not truncated: %q", copied)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "absent"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestSizeMB(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	if err := os.WriteFile(path, make([]byte, 1024*1024), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := SizeMB(path); got != 1 {
		t.Fatalf("size %v MB, want 1", got)
	}
	if got := SizeMB(filepath.Join(dir, "absent")); got != 0 {
		t.Fatalf("missing file size %v, want 0", got)
	}
}
