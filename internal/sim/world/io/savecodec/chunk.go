// Package savecodec holds the on-disk field order of every persisted
// entity. Field order never changes; a change breaks existing saves.
package savecodec

import (
	"fmt"

	"voxelvault.ai/internal/persistence/codec"
	"voxelvault.ai/internal/sim/world/terrain/store"
)

// ChunkCodec: i32 X, i32 Y, i32 Z, i32 LOD, bytes materials.
type ChunkCodec struct {
	Bits int
}

func (c ChunkCodec) Encode(w *codec.Writer, ch *store.Chunk) {
	w.Int32(ch.X)
	w.Int32(ch.Y)
	w.Int32(ch.Z)
	w.Int32(ch.LOD)
	w.Bytes(ch.Materials.Bytes())
}

func (c ChunkCodec) Decode(r *codec.Reader) (*store.Chunk, error) {
	x := r.Int32()
	y := r.Int32()
	z := r.Int32()
	lod := r.Int32()
	materials := r.Bytes(1 << (3 * c.Bits))
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(materials) != 1<<(3*c.Bits) {
		return nil, &codec.DecodeError{Kind: codec.ErrOutOfRange, Offset: r.Offset(), Field: "chunk materials", Detail: fmt.Sprintf("%d bytes, want %d", len(materials), 1<<(3*c.Bits))}
	}
	return store.ChunkFromBytes(x, y, z, lod, c.Bits, materials)
}
