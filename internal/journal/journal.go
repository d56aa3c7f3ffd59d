// Package journal appends completed tick reports to zstd-compressed JSONL
// files, one file per run and sim-year.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hamlet/internal/engine"
)

// Entry is one journal line.
type Entry struct {
	RunID  string             `json:"run_id"`
	Date   string             `json:"date"`
	Report *engine.TickReport `json:"report"`
}

// Writer is a rotating JSONL writer behind a zstd encoder.
type Writer struct {
	baseDir string
	runID   string

	mu      sync.Mutex
	curYear int64
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter returns a writer that creates files under baseDir lazily.
func NewWriter(baseDir, runID string) *Writer {
	return &Writer{baseDir: baseDir, runID: runID, curYear: -1}
}

// Write appends one report.
func (w *Writer) Write(r *engine.TickReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	year := r.Tick / engine.TicksPerYear
	if year != w.curYear {
		if err := w.rotateLocked(year); err != nil {
			return err
		}
	}

	b, err := json.Marshal(Entry{RunID: w.runID, Date: engine.SimTime(r.Tick), Report: r})
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// TickCompleted makes the writer an engine observer. Failures are logged.
func (w *Writer) TickCompleted(r *engine.TickReport) {
	if err := w.Write(r); err != nil {
		slog.Error("journal write failed", "tick", r.Tick, "error", err)
	}
}

// PopulationChanged is a no-op; population is already in every report.
func (w *Writer) PopulationChanged(int64, uint32) {}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Path returns the file a tick's report lands in.
func (w *Writer) Path(tick int64) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-y%04d.jsonl.zst", w.runID, tick/engine.TicksPerYear+1))
}

func (w *Writer) rotateLocked(year int64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	path := w.Path(year * engine.TicksPerYear)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curYear = year
	slog.Debug("journal opened", "path", path)
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curYear = -1
	return err
}

// ReadFile decodes every entry of one journal file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("decode entry %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
