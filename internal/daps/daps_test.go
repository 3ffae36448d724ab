package daps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFilelistFindsSucceeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filelist.json")
	body := `{"demo.html":{"format":"html","status":"succeeded","file":"demo.html"},"demo.pdf":{"format":"pdf","status":"failed","file":""}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write filelist: %v", err)
	}

	fl, err := ParseFilelist(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := fl.FindSucceeded("html")
	if !ok {
		t.Fatal("expected to find succeeded html entry")
	}
	if entry.File != "demo.html" {
		t.Fatalf("expected file demo.html, got %s", entry.File)
	}
	if _, ok := fl.FindSucceeded("pdf"); ok {
		t.Fatal("expected no succeeded pdf entry")
	}
}

func TestParseFilelistRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filelist.json")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write filelist: %v", err)
	}
	if _, err := ParseFilelist(path); err == nil {
		t.Fatal("expected error for empty filelist")
	}
}

func TestParseFilelistRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filelist.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write filelist: %v", err)
	}
	if _, err := ParseFilelist(path); err == nil {
		t.Fatal("expected error for malformed filelist")
	}
}
