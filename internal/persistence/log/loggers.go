package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelvault.ai/internal/persistence/session"
)

// JSONLZstdWriter appends JSON lines to hourly zstd-compressed files.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
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

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	// A new frame is appended when the process restarts within the same hour;
	// zstd readers handle concatenated frames.
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
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
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// JournalEntry is one line of the save journal.
type JournalEntry struct {
	RunID string `json:"run_id"`
	World string `json:"world"`
	session.SaveEvent
}

// SaveJournal records every successful save as a journal line. It is a
// session.Sink; write failures are logged and never fail the save.
type SaveJournal struct {
	w     *JSONLZstdWriter
	runID string
	world string
	log   *stdlog.Logger
}

func NewSaveJournal(dir, world, runID string, logger *stdlog.Logger) *SaveJournal {
	return &SaveJournal{
		w:     NewJSONLZstdWriter(dir, "saves"),
		runID: runID,
		world: world,
		log:   logger,
	}
}

func (j *SaveJournal) RecordSave(ev session.SaveEvent) {
	err := j.w.Write(JournalEntry{RunID: j.runID, World: j.world, SaveEvent: ev})
	if err != nil && j.log != nil {
		j.log.Printf("journal: %s %s: %v", ev.Kind, ev.Key, err)
	}
}

func (j *SaveJournal) Close() error { return j.w.Close() }
