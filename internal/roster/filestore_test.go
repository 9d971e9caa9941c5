package roster

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreCreatesMissingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := NewFileStore(dir)

	users, errLoad := store.Load(context.Background())
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty roster, got %d", len(users))
	}
	data, errRead := os.ReadFile(store.Path())
	if errRead != nil {
		t.Fatalf("read: %v", errRead)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [] file, got %q", data)
	}
}

func TestFileStoreRoundTripWithCompactArrays(t *testing.T) {
	store := NewFileStore(t.TempDir())
	u := NewUser(42, "Jane Doe", "jane@example.com", credential("t"))
	u.AutoBookingDesksID[0] = 1234
	u.AutoBookingDesksName[0] = "W.12.34"
	u.AutoBookingDaysOfWeek[0] = On(1)

	if errSave := store.Save(context.Background(), []User{u}); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	data, errRead := os.ReadFile(store.Path())
	if errRead != nil {
		t.Fatalf("read: %v", errRead)
	}
	text := string(data)
	for _, want := range []string{
		`"autoBookingDesksId": [1234, -1, -1, -1, -1]`,
		`"autoBookingDesksName": ["W.12.34", "", "", "", ""]`,
		`"autoBookingDaysOfWeek": [1, -1, -1, -1, -1]`,
		`"autoCheckInDaysOfWeek": [-1, -1, -1, -1, -1]`,
		"\n    \"userId\": 42,",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in document:\n%s", want, text)
		}
	}

	loaded, errLoad := store.Load(context.Background())
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if len(loaded) != 1 || loaded[0].AutoBookingDesksID[0] != 1234 || !loaded[0].AutoBookingDaysOfWeek[0].Matches(1) {
		t.Fatalf("unexpected round trip %+v", loaded)
	}

	entries, _ := os.ReadDir(filepath.Dir(store.Path()))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestFormatDocumentNestedArrays(t *testing.T) {
	out, errFormat := FormatDocument([]byte(`{"a":[1,[2,3]],"b":{},"c":[]}`))
	if errFormat != nil {
		t.Fatalf("format: %v", errFormat)
	}
	want := "{\n  \"a\": [\n    1,\n    [2, 3]\n  ],\n  \"b\": {},\n  \"c\": []\n}"
	if string(out) != want {
		t.Fatalf("unexpected document:\n%s", out)
	}
}
