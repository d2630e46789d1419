package store

import (
	"errors"
	"fmt"
)

type pendingSave struct {
	live *Chunk
	copy *Chunk
}

// CleanUp walks every slot once and hands a copy of each dirty chunk to
// persist. Clean chunks are skipped without encoding or I/O.
//
// The copies are taken and the dirty flags cleared in one pass under the
// store lock; persist then runs with the lock released, so reads and writes
// to the world continue during disk I/O. A voxel written after the copy
// dirties its chunk again. A chunk whose persist fails is marked dirty
// again; all failures are joined into the returned error.
func (s *ChunkStore) CleanUp(persist func(ch *Chunk) error) (saved int, err error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	var work []pendingSave
	for _, ch := range s.slots {
		if ch == nil || !ch.dirty {
			continue
		}
		work = append(work, pendingSave{live: ch, copy: ch.snapshot()})
		ch.dirty = false
	}
	s.mu.Unlock()

	var errs []error
	for _, p := range work {
		if perr := persist(p.copy); perr != nil {
			s.mu.Lock()
			p.live.dirty = true
			s.mu.Unlock()
			errs = append(errs, fmt.Errorf("chunk (%d,%d,%d) lod %d: %w", p.copy.X, p.copy.Y, p.copy.Z, p.copy.LOD, perr))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// PersistChunk writes a copy of ch through persist and marks ch clean. The
// copy is taken under the store lock and written without it, like CleanUp.
// When persist fails ch is dirty afterwards, whatever it was before.
func (s *ChunkStore) PersistChunk(ch *Chunk, persist func(ch *Chunk) error) error {
	if ch == nil {
		return fmt.Errorf("persist nil chunk")
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	cp := ch.snapshot()
	ch.dirty = false
	s.mu.Unlock()

	if err := persist(cp); err != nil {
		s.mu.Lock()
		ch.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

// EvictSlot empties a slot. With persist non-nil a dirty occupant is written
// first, and a failed write leaves it loaded and dirty. The dirty check, the
// write and the removal hold the store lock throughout, so no voxel written
// concurrently is lost; persist must not call back into the store.
func (s *ChunkStore) EvictSlot(slot int, persist func(ch *Chunk) error) error {
	if slot < 0 || slot >= len(s.slots) {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.slots[slot]
	if ch == nil {
		return nil
	}
	if persist != nil && ch.dirty {
		if err := persist(ch.snapshot()); err != nil {
			return err
		}
		ch.dirty = false
	}
	s.slots[slot] = nil
	return nil
}

// Dirty counts chunks with unsaved changes.
func (s *ChunkStore) Dirty() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ch := range s.slots {
		if ch != nil && ch.dirty {
			n++
		}
	}
	return n
}

// IsDirty reports ch's dirty flag under the store lock.
func (s *ChunkStore) IsDirty(ch *Chunk) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ch.dirty
}
