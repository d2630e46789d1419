package store

import (
	"fmt"

	genpkg "voxelvault.ai/internal/sim/world/terrain/gen"
)

// GenerateChunk fills ch from g and marks it dirty: generated chunks have
// never been written. OutOfWorld is reserved for unloaded voxels, so a
// generator that yields it is an error and ch must be discarded.
func GenerateChunk(ch *Chunk, g genpkg.Generator, seed int64) error {
	size := 1 << ch.bits
	bx := int(ch.X) << ch.bits
	by := int(ch.Y) << ch.bits
	bz := int(ch.Z) << ch.bits
	for y := 0; y < size; y++ {
		for z := 0; z < size; z++ {
			for x := 0; x < size; x++ {
				m := g.Material(seed, bx+x, by+y, bz+z, ch.LOD)
				if m == OutOfWorld {
					return fmt.Errorf("%w: generator yielded %d at voxel (%d,%d,%d) lod %d",
						ErrReservedMaterial, m, bx+x, by+y, bz+z, ch.LOD)
				}
				ch.Materials.Set(LocalIndex(ch.bits, x, y, z), m)
			}
		}
	}
	ch.dirty = true
	return nil
}

// GetOrGenChunk returns the chunk at the given position, generating and
// storing it when the slot is empty. Generation runs without the store lock;
// if another caller filled the slot meanwhile, its chunk wins.
func (s *ChunkStore) GetOrGenChunk(cx, cy, cz, lod int32, g genpkg.Generator, seed int64) (*Chunk, error) {
	i, err := s.Geo.SlotIndex(int(cx), int(cy), int(cz), int(lod))
	if err != nil {
		return nil, err
	}
	if ch := s.Slot(i); ch != nil {
		return ch, nil
	}
	ch := NewChunk(cx, cy, cz, lod, s.Geo.ChunkBits)
	if err := GenerateChunk(ch, g, seed); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.slots[i]; cur != nil {
		return cur, nil
	}
	s.slots[i] = ch
	return ch, nil
}
