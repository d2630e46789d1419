package world

import (
	"fmt"
	"strconv"

	"voxelvault.ai/internal/sim/world/terrain/store"
)

func (w *World) chunkPath(cx, cy, cz, lod int32) (path, key string, err error) {
	id, ok := w.store.Geo.Linearize(int(cx), int(cy), int(cz))
	if !ok {
		return "", "", fmt.Errorf("%w: (%d,%d,%d)", store.ErrOutOfBounds, cx, cy, cz)
	}
	if lod < 0 || int(lod) >= w.store.Geo.LODLevels {
		return "", "", fmt.Errorf("%w: %d", store.ErrBadLOD, lod)
	}
	path, err = w.layout.Chunk(w.Name(), lod, id)
	if err != nil {
		return "", "", err
	}
	return path, strconv.Itoa(int(lod)) + "/" + strconv.Itoa(id), nil
}

func (w *World) persistChunk(ch *store.Chunk) error {
	path, key, err := w.chunkPath(ch.X, ch.Y, ch.Z, ch.LOD)
	if err != nil {
		return err
	}
	return w.chunks.Save(path, key, ch)
}

// SaveChunk writes one chunk now and marks it clean. The file holds the
// bytes as of the call; a voxel written while the file is being written
// leaves the chunk dirty.
func (w *World) SaveChunk(ch *store.Chunk) error {
	return w.store.PersistChunk(ch, w.persistChunk)
}

// LoadChunk reads a chunk file into its slot. ok is false when the chunk
// was never saved; the slot is left as it was.
func (w *World) LoadChunk(cx, cy, cz, lod int32) (ch *store.Chunk, ok bool, err error) {
	path, _, err := w.chunkPath(cx, cy, cz, lod)
	if err != nil {
		return nil, false, err
	}
	ch, ok, err = w.chunks.Load(path)
	if err != nil || !ok {
		return nil, ok, err
	}
	if ch.X != cx || ch.Y != cy || ch.Z != cz || ch.LOD != lod {
		return nil, false, fmt.Errorf("%w: %s has (%d,%d,%d) lod %d", ErrChunkMismatch, path, ch.X, ch.Y, ch.Z, ch.LOD)
	}
	if _, err := w.store.StoreChunk(ch); err != nil {
		return nil, false, err
	}
	return ch, true, nil
}

// EnsureChunk returns the loaded chunk, loading it from disk or, when
// allowed, generating it. Generated chunks start dirty.
func (w *World) EnsureChunk(cx, cy, cz, lod int32) (*store.Chunk, error) {
	if ch := w.store.Chunk(int(cx), int(cy), int(cz), int(lod)); ch != nil {
		return ch, nil
	}
	ch, ok, err := w.LoadChunk(cx, cy, cz, lod)
	if err != nil {
		return nil, err
	}
	if ok {
		return ch, nil
	}
	if !w.cfg.GenerateMissing {
		return nil, fmt.Errorf("%w: (%d,%d,%d) lod %d has no save", store.ErrChunkNotLoaded, cx, cy, cz, lod)
	}
	return w.store.GetOrGenChunk(cx, cy, cz, lod, w.cfg.Generator, w.cfg.Seed)
}

// EvictChunk empties a slot as the chunk leaves the render volume. With
// persist set, a dirty chunk is written first; a failed write keeps the
// chunk loaded. Save sinks run with the store locked during eviction.
func (w *World) EvictChunk(cx, cy, cz, lod int32, persist bool) error {
	slot, err := w.store.Geo.SlotIndex(int(cx), int(cy), int(cz), int(lod))
	if err != nil {
		return err
	}
	if !persist {
		return w.store.EvictSlot(slot, nil)
	}
	return w.store.EvictSlot(slot, w.persistChunk)
}

// GetMaterial reads a voxel; unloaded voxels read as store.OutOfWorld.
func (w *World) GetMaterial(x, y, z int) byte { return w.store.GetMaterial(x, y, z) }

// SetMaterial writes a voxel, loading or generating its chunk first.
func (w *World) SetMaterial(x, y, z int, m byte) error {
	bits := w.store.Geo.ChunkBits
	if !w.store.InBounds(x>>bits, y>>bits, z>>bits) {
		return fmt.Errorf("%w: voxel (%d,%d,%d)", store.ErrOutOfBounds, x, y, z)
	}
	if _, err := w.EnsureChunk(int32(x>>bits), int32(y>>bits), int32(z>>bits), 0); err != nil {
		return err
	}
	return w.store.SetMaterial(x, y, z, m)
}

// LoadRegion ensures every lod-0 chunk inside the render volume whose
// distance from the centre chunk is at most radius (Chebyshev).
func (w *World) LoadRegion(cx, cy, cz, radius int32) (int, error) {
	n := 0
	for y := cy - radius; y <= cy+radius; y++ {
		for z := cz - radius; z <= cz+radius; z++ {
			for x := cx - radius; x <= cx+radius; x++ {
				if !w.store.InBounds(int(x), int(y), int(z)) {
					continue
				}
				if _, err := w.EnsureChunk(x, y, z, 0); err != nil {
					return n, err
				}
				n++
			}
		}
	}
	return n, nil
}
