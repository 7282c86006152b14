package logbook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTailReturnsRecentLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines := book.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestStageEntryCarriesRunAndStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Stage("run-1", "resolve", "resolved %d capabilities", 4)
	lines := book.Tail(1)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "run run-1 [resolve] resolved 4 capabilities") {
		t.Fatalf("unexpected line: %q", lines[0])
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	book.Stage("run", "stage", "ignored")
	if lines := book.Tail(5); lines != nil {
		t.Fatalf("expected nil tail from nil logbook")
	}
	if book.Path() != "" {
		t.Fatalf("expected empty path from nil logbook")
	}
}
