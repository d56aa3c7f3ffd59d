package journal

import (
	"os"
	"testing"

	"github.com/talgya/hamlet/internal/engine"
)

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "run-a")

	for tick := int64(0); tick < 5; tick++ {
		w.TickCompleted(&engine.TickReport{Tick: tick, Population: uint32(tick)})
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	entries, err := ReadFile(w.Path(0))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}
	if entries[4].RunID != "run-a" || entries[4].Report.Population != 4 {
		t.Errorf("Last entry = %+v", entries[4])
	}
	if entries[0].Date != "Spring Day 1, Year 1" {
		t.Errorf("Date = %q", entries[0].Date)
	}
}

func TestRotatesPerYear(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "run-b")
	if err := w.Write(&engine.TickReport{Tick: engine.TicksPerYear - 1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(&engine.TickReport{Tick: engine.TicksPerYear}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	first, second := w.Path(0), w.Path(engine.TicksPerYear)
	if first == second {
		t.Fatalf("Expected distinct files per year, got %s", first)
	}
	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Missing journal file %s: %v", p, err)
		}
		entries, err := ReadFile(p)
		if err != nil || len(entries) != 1 {
			t.Errorf("%s: %d entries, %v", p, len(entries), err)
		}
	}
}

func TestAppendAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "run-c")
	if err := w.Write(&engine.TickReport{Tick: 1}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	w = NewWriter(dir, "run-c")
	if err := w.Write(&engine.TickReport{Tick: 2}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	entries, err := ReadFile(w.Path(1))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if len(entries) != 2 || entries[1].Report.Tick != 2 {
		t.Errorf("Expected appended frames to decode in order, got %+v", entries)
	}
}
