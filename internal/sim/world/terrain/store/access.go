package store

import "fmt"

func (s *ChunkStore) InBounds(cx, cy, cz int) bool {
	_, ok := s.Geo.Linearize(cx, cy, cz)
	return ok
}

// StoreChunk places ch in its slot, replacing any previous occupant. The
// replaced chunk is returned so callers streaming chunks can persist it.
func (s *ChunkStore) StoreChunk(ch *Chunk) (*Chunk, error) {
	if ch == nil {
		return nil, fmt.Errorf("store nil chunk")
	}
	if ch.bits != s.Geo.ChunkBits || ch.Materials.Len() != s.Geo.ChunkVolume() {
		return nil, fmt.Errorf("%w: chunk bits %d, store bits %d", ErrShapeMismatch, ch.bits, s.Geo.ChunkBits)
	}
	i, err := s.Geo.SlotIndex(int(ch.X), int(ch.Y), int(ch.Z), int(ch.LOD))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.slots[i]
	s.slots[i] = ch
	if prev == ch {
		prev = nil
	}
	return prev, nil
}

// SetNull empties a slot without any I/O. Unsaved changes in the evicted
// chunk are lost unless the caller persisted them first.
func (s *ChunkStore) SetNull(slot int) {
	if slot < 0 || slot >= len(s.slots) {
		return
	}
	s.mu.Lock()
	s.slots[slot] = nil
	s.mu.Unlock()
}

// Slot returns the occupant of a slot, or nil.
func (s *ChunkStore) Slot(slot int) *Chunk {
	if slot < 0 || slot >= len(s.slots) {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[slot]
}

func (s *ChunkStore) Chunk(cx, cy, cz, lod int) *Chunk {
	i, err := s.Geo.SlotIndex(cx, cy, cz, lod)
	if err != nil {
		return nil
	}
	return s.Slot(i)
}

// chunkForVoxelLocked splits voxel coordinates into the owning chunk and
// local coordinates. Arithmetic shift floors negative coordinates. The
// caller holds s.mu.
func (s *ChunkStore) chunkForVoxelLocked(vx, vy, vz, lod int) (ch *Chunk, lx, ly, lz int) {
	bits := s.Geo.ChunkBits
	i, err := s.Geo.SlotIndex(vx>>bits, vy>>bits, vz>>bits, lod)
	if err != nil {
		return nil, 0, 0, 0
	}
	ch = s.slots[i]
	if ch == nil {
		return nil, 0, 0, 0
	}
	m := s.Geo.mask()
	return ch, vx & m, vy & m, vz & m
}

// GetMaterial reads a voxel from lod tier 0. Voxels in empty slots or
// outside the render volume read as OutOfWorld.
func (s *ChunkStore) GetMaterial(vx, vy, vz int) byte {
	return s.GetMaterialLOD(vx, vy, vz, 0)
}

func (s *ChunkStore) GetMaterialLOD(vx, vy, vz, lod int) byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, lx, ly, lz := s.chunkForVoxelLocked(vx, vy, vz, lod)
	if ch == nil {
		return OutOfWorld
	}
	return ch.Get(lx, ly, lz)
}

// SetMaterial writes a voxel in lod tier 0 and marks its chunk dirty when
// the byte changes. Lookup and write happen under one lock, so a write never
// lands in a chunk that was evicted in between.
func (s *ChunkStore) SetMaterial(vx, vy, vz int, m byte) error {
	if m == OutOfWorld {
		return fmt.Errorf("%w: %d", ErrReservedMaterial, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, lx, ly, lz := s.chunkForVoxelLocked(vx, vy, vz, 0)
	if ch == nil {
		return fmt.Errorf("%w: voxel (%d,%d,%d)", ErrChunkNotLoaded, vx, vy, vz)
	}
	ch.Set(lx, ly, lz, m)
	return nil
}

// ForEach visits occupied slots in slot order. fn runs without the store
// lock held.
func (s *ChunkStore) ForEach(fn func(slot int, ch *Chunk) bool) {
	s.mu.RLock()
	occupied := make([]int, 0, 64)
	for i, ch := range s.slots {
		if ch != nil {
			occupied = append(occupied, i)
		}
	}
	s.mu.RUnlock()
	for _, i := range occupied {
		ch := s.Slot(i)
		if ch == nil {
			continue
		}
		if !fn(i, ch) {
			return
		}
	}
}

// Loaded counts occupied slots.
func (s *ChunkStore) Loaded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ch := range s.slots {
		if ch != nil {
			n++
		}
	}
	return n
}
