package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voxelvault.ai/internal/persistence/buffer"
	"voxelvault.ai/internal/persistence/codec"
)

// Codec encodes and decodes one entity kind in a fixed field order.
type Codec[T any] interface {
	Encode(w *codec.Writer, v T)
	Decode(r *codec.Reader) (T, error)
}

// SaveEvent describes one completed file write.
type SaveEvent struct {
	Kind   string    `json:"kind"`
	Key    string    `json:"key"`
	Path   string    `json:"path"`
	Bytes  int       `json:"bytes"`
	Digest string    `json:"digest"`
	Tick   int64     `json:"tick"`
	At     time.Time `json:"at"`
}

// Sink receives save events. Implementations must not block for long;
// they run on the saving goroutine.
type Sink interface {
	RecordSave(ev SaveEvent)
}

type SinkFunc func(ev SaveEvent)

func (f SinkFunc) RecordSave(ev SaveEvent) { f(ev) }

// Session owns a scratch buffer and a read cursor for one entity kind.
// Calls on the same Session are serialised by an internal mutex; use
// separate sessions to save concurrently.
type Session[T any] struct {
	kind  string
	codec Codec[T]
	log   *log.Logger

	mu  sync.Mutex
	buf *buffer.Buffer
	w   *codec.Writer
	r   *codec.Reader

	sinks []Sink
	clock func() time.Time
	tick  func() int64
}

type Option func(*options)

type options struct {
	logger  *log.Logger
	initCap int
	sinks   []Sink
	tick    func() int64
}

func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// WithCapacity sets the initial scratch buffer capacity.
func WithCapacity(n int) Option { return func(o *options) { o.initCap = n } }

func WithSinks(s ...Sink) Option { return func(o *options) { o.sinks = append(o.sinks, s...) } }

// WithTick stamps save events with the current game tick.
func WithTick(fn func() int64) Option { return func(o *options) { o.tick = fn } }

func New[T any](kind string, c Codec[T], opts ...Option) *Session[T] {
	o := options{initCap: 256}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard, "", 0)
	}
	buf := buffer.New(o.initCap)
	return &Session[T]{
		kind:  kind,
		codec: c,
		log:   o.logger,
		buf:   buf,
		w:     codec.NewWriter(buf),
		r:     codec.NewReader(nil),
		sinks: o.sinks,
		clock: time.Now,
		tick:  o.tick,
	}
}

func (s *Session[T]) Kind() string { return s.kind }

// AddSink registers a sink for subsequent saves.
func (s *Session[T]) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Encode runs the codec into a fresh copy of the scratch buffer.
func (s *Session[T]) Encode(v T) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encodeLocked(v)
}

func (s *Session[T]) encodeLocked(v T) []byte {
	s.buf.Clear()
	s.codec.Encode(s.w, v)
	return s.buf.Snapshot()
}

// Save encodes v completely, then truncates and writes path. key names
// the entity in save events.
func (s *Session[T]) Save(path, key string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.encodeLocked(v)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.log.Printf("save %s %s: mkdir: %v", s.kind, key, err)
		return fmt.Errorf("save %s: %w", s.kind, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Printf("save %s %s: %v", s.kind, key, err)
		return fmt.Errorf("save %s: %w", s.kind, err)
	}

	if len(s.sinks) > 0 {
		sum := sha256.Sum256(data)
		ev := SaveEvent{
			Kind:   s.kind,
			Key:    key,
			Path:   path,
			Bytes:  len(data),
			Digest: hex.EncodeToString(sum[:]),
			At:     s.clock().UTC(),
		}
		if s.tick != nil {
			ev.Tick = s.tick()
		}
		for _, sink := range s.sinks {
			sink.RecordSave(ev)
		}
	}
	return nil
}

// Load reads and decodes path. A missing file is reported as ok=false with
// a nil error; that is the normal state of something never saved.
func (s *Session[T]) Load(path string) (v T, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, false, nil
	}
	if err != nil {
		s.log.Printf("load %s %s: %v", s.kind, path, err)
		return v, false, fmt.Errorf("load %s: %w", s.kind, err)
	}
	v, err = s.decodeLocked(data)
	if err != nil {
		s.log.Printf("load %s %s: %v", s.kind, path, err)
		return v, false, fmt.Errorf("load %s %s: %w", s.kind, path, err)
	}
	return v, true, nil
}

// Decode runs the codec over data using the session's reader.
func (s *Session[T]) Decode(data []byte) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decodeLocked(data)
}

func (s *Session[T]) decodeLocked(data []byte) (T, error) {
	s.r.Reset(data)
	v, err := s.codec.Decode(s.r)
	if err == nil {
		err = s.r.Done()
	}
	// Drop the reference so the file contents can be collected.
	s.r.Reset(nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
