package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"roomnav/internal/mapdef"
)

func TestWriteSchemaCreatesDirectoriesAndReplacesAtomically(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "schemas", "map.schema.json")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(outPath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	if err := writeSchema(outPath, mapdef.Schema()); err != nil {
		t.Fatalf("writeSchema returned error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if decoded["title"] == nil {
		t.Fatalf("expected schema title, got %v", decoded)
	}
	if _, err := os.Stat(outPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, stat err %v", err)
	}
}
