package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONL_RoundTripSkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), triplesJSONL)
	content := `{"s":"urn:a","sk":1,"p":"urn:p","pk":1,"o":"v","ok":3}
not json

{"s":"","sk":1,"p":"urn:p","pk":1,"o":"v","ok":3}
{"s":"urn:b","sk":1,"p":"urn:p","pk":1,"o":"urn:c","ok":1}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	raw, err := readJSONL(path)
	if err != nil {
		t.Fatalf("readJSONL failed: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("read %d records, want 3", len(raw))
	}
	records := decodeTriples(raw)
	if len(records) != 2 {
		t.Fatalf("decoded %d triples, want 2", len(records))
	}
	if records[1].O != "urn:c" {
		t.Errorf("second object = %q", records[1].O)
	}

	encoded, err := encodeTriples(records)
	if err != nil {
		t.Fatalf("encodeTriples failed: %v", err)
	}
	if err := writeJSONL(path, encoded); err != nil {
		t.Fatalf("writeJSONL failed: %v", err)
	}
	again, err := readJSONL(path)
	if err != nil {
		t.Fatalf("readJSONL failed: %v", err)
	}
	if len(again) != 2 {
		t.Errorf("rewritten file has %d records, want 2", len(again))
	}
	var first tripleRecord
	if err := json.Unmarshal(again[0], &first); err != nil || first.S != "urn:a" {
		t.Errorf("first record = %+v, %v", first, err)
	}
}

func TestJSONL_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	if err := writeJSONL(filepath.Join(dir, triplesJSONL), nil); err != nil {
		t.Fatalf("writeJSONL failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only %s", len(entries), triplesJSONL)
	}
}
