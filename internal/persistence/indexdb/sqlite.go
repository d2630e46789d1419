package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelvault.ai/internal/persistence/session"
)

// Batches commit after commitEvery statements or once the open transaction
// is commitMaxWait old, whichever comes first.
var (
	commitEvery   = 2000
	commitMaxWait = 2 * time.Second
)

// SQLiteIndex is a read model of everything the world has written: the
// latest file per entity plus an append-only save history. It is fed from
// session sinks and never blocks a save; the files on disk stay the source
// of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan session.SaveEvent
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against Close: senders hold it shared, Close
	// holds it exclusively while closing ch.
	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
	written atomic.Uint64
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Teardown saves every dirty chunk in one burst.
		ch: make(chan session.SaveEvent, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS files (
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			digest TEXT NOT NULL,
			tick INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (kind, key)
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			digest TEXT NOT NULL,
			tick INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_kind_key ON saves(kind, key);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_tick ON saves(tick);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains queued events and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSave implements session.Sink.
func (s *SQLiteIndex) RecordSave(ev session.SaveEvent) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	upsertFile, _ := s.db.Prepare(`INSERT OR REPLACE INTO files(kind,key,path,bytes,digest,tick,saved_at) VALUES(?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT INTO saves(kind,key,bytes,digest,tick,saved_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if upsertFile != nil {
			_ = upsertFile.Close()
		}
		if insertSave != nil {
			_ = insertSave.Close()
		}
	}()
	if upsertFile == nil || insertSave == nil {
		for range s.ch {
			s.dropped.Add(1)
		}
		return
	}

	var (
		tx         *sql.Tx
		pending    uint64
		opCount    int
		lastCommit time.Time
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err == nil {
			s.written.Add(pending)
		} else {
			s.dropped.Add(pending)
		}
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.dropped.Add(pending)
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}

	tick := time.NewTicker(commitMaxWait)
	defer tick.Stop()

	for {
		var ev session.SaveEvent
		select {
		case e, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			ev = e
		case <-tick.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		}

		begin()
		if tx == nil {
			s.dropped.Add(1)
			continue
		}
		at := ev.At.UTC().Format(time.RFC3339Nano)
		if _, err := tx.Stmt(upsertFile).Exec(ev.Kind, ev.Key, ev.Path, ev.Bytes, ev.Digest, ev.Tick, at); err != nil {
			pending++
			rollback()
			continue
		}
		if _, err := tx.Stmt(insertSave).Exec(ev.Kind, ev.Key, ev.Bytes, ev.Digest, ev.Tick, at); err != nil {
			pending++
			rollback()
			continue
		}
		pending++
		opCount += 2
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
}
