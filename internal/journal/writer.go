// Package journal keeps a compressed append-only audit log of the zone
// economy: sales, risk events, deliveries, alert transitions and heat
// changes. One zstd-compressed JSONL file per UTC hour.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const hourLayout = "2006-01-02-15"

// Writer appends JSON lines to hourly-rotated .jsonl.zst files.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter creates a writer under dir. Files are opened lazily.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix, now: time.Now}
}

// SetClock replaces the time source. Tests only.
func (w *Writer) SetClock(now func() time.Time) { w.now = now }

// Write appends v as one JSON line, rotating the file on hour change.
func (w *Writer) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling journal entry: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines through the encoder to the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flushing journal buffer: %w", err)
	}
	if err := w.enc.Flush(); err != nil {
		return fmt.Errorf("flushing journal encoder: %w", err)
	}
	return nil
}

// Close finishes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// PathForHour returns the file that holds entries written during hour.
func (w *Writer) PathForHour(hour time.Time) string {
	return w.pathFor(hour.UTC().Format(hourLayout))
}

func (w *Writer) pathFor(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}

	// Повторное открытие того же часа дописывает новый zstd frame в конец файла.
	f, err := os.OpenFile(w.pathFor(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var firstErr error
	if w.w != nil {
		if err := w.w.Flush(); err != nil {
			firstErr = fmt.Errorf("flushing journal buffer: %w", err)
		}
	}
	if w.enc != nil {
		if err := w.enc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing zstd encoder: %w", err)
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing journal file: %w", err)
		}
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return firstErr
}
