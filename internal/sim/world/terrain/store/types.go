package store

import (
	"errors"
	"fmt"
	"sync"
)

// Material codes are opaque bytes owned by the material table. One value is
// reserved as the answer for voxels whose chunk is not loaded.
const (
	OutOfWorld  byte = 0xFF
	MaxMaterial byte = OutOfWorld - 1
)

var (
	ErrOutOfBounds      = errors.New("chunk outside render volume")
	ErrBadLOD           = errors.New("lod outside configured tiers")
	ErrReservedMaterial = errors.New("material code is reserved")
	ErrChunkNotLoaded   = errors.New("chunk not loaded")
	ErrShapeMismatch    = errors.New("chunk shape mismatch")
)

// Geometry fixes chunk size and the bounded render volume. The volume
// spans Width x Height x Width chunks starting at Origin (x, y, z).
type Geometry struct {
	ChunkBits int
	Width     int
	Height    int
	LODLevels int
	Origin    [3]int32
}

func (g Geometry) Validate() error {
	if g.ChunkBits < 1 || g.ChunkBits > 8 {
		return fmt.Errorf("chunk bits %d not in [1,8]", g.ChunkBits)
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("render volume %dx%d must be positive", g.Width, g.Height)
	}
	if g.LODLevels <= 0 {
		return fmt.Errorf("lod levels %d must be positive", g.LODLevels)
	}
	return nil
}

func (g Geometry) ChunkSize() int   { return 1 << g.ChunkBits }
func (g Geometry) ChunkVolume() int { return 1 << (3 * g.ChunkBits) }
func (g Geometry) mask() int        { return g.ChunkSize() - 1 }

// Volume is the number of chunk positions in one lod tier.
func (g Geometry) Volume() int { return g.Width * g.Width * g.Height }

// Capacity is the slot count across all lod tiers.
func (g Geometry) Capacity() int { return g.Volume() * g.LODLevels }

// Linearize maps chunk coordinates to the chunk id used for slots and file
// names: x fastest, then z, then y.
func (g Geometry) Linearize(cx, cy, cz int) (int, bool) {
	x := cx - int(g.Origin[0])
	y := cy - int(g.Origin[1])
	z := cz - int(g.Origin[2])
	if x < 0 || x >= g.Width || z < 0 || z >= g.Width || y < 0 || y >= g.Height {
		return 0, false
	}
	return x + z*g.Width + y*g.Width*g.Width, true
}

// Delinearize is the inverse of Linearize for ids in [0, Volume).
func (g Geometry) Delinearize(id int) (cx, cy, cz int) {
	x := id % g.Width
	z := (id / g.Width) % g.Width
	y := id / (g.Width * g.Width)
	return x + int(g.Origin[0]), y + int(g.Origin[1]), z + int(g.Origin[2])
}

// SlotIndex folds the lod tier in as the outermost dimension.
func (g Geometry) SlotIndex(cx, cy, cz, lod int) (int, error) {
	if lod < 0 || lod >= g.LODLevels {
		return 0, fmt.Errorf("%w: %d", ErrBadLOD, lod)
	}
	id, ok := g.Linearize(cx, cy, cz)
	if !ok {
		return 0, fmt.Errorf("%w: (%d,%d,%d)", ErrOutOfBounds, cx, cy, cz)
	}
	return id + lod*g.Volume(), nil
}

// LocalIndex orders voxels x | z<<bits | y<<2bits. Every reader and writer
// of chunk bytes uses this order.
func LocalIndex(bits, lx, ly, lz int) int {
	return lx | lz<<bits | ly<<(2*bits)
}

// MaterialBlock holds one byte per voxel of a chunk.
type MaterialBlock struct {
	b []byte
}

func NewMaterialBlock(volume int) MaterialBlock {
	return MaterialBlock{b: make([]byte, volume)}
}

// MaterialBlockFromBytes takes ownership of b.
func MaterialBlockFromBytes(b []byte) MaterialBlock {
	return MaterialBlock{b: b}
}

func (m MaterialBlock) Len() int          { return len(m.b) }
func (m MaterialBlock) Get(i int) byte    { return m.b[i] }
func (m MaterialBlock) Set(i int, v byte) { m.b[i] = v }

// Bytes exposes the backing array for bulk serialization.
func (m MaterialBlock) Bytes() []byte { return m.b }

func (m MaterialBlock) Fill(v byte) {
	for i := range m.b {
		m.b[i] = v
	}
}

type ChunkKey struct {
	X, Y, Z, LOD int32
}

type Chunk struct {
	X, Y, Z, LOD int32
	Materials    MaterialBlock

	bits  int
	dirty bool
}

// NewChunk returns a clean chunk filled with material 0.
func NewChunk(x, y, z, lod int32, bits int) *Chunk {
	return &Chunk{
		X: x, Y: y, Z: z, LOD: lod,
		Materials: NewMaterialBlock(1 << (3 * bits)),
		bits:      bits,
	}
}

// ChunkFromBytes wraps decoded materials. The chunk starts clean.
func ChunkFromBytes(x, y, z, lod int32, bits int, materials []byte) (*Chunk, error) {
	if len(materials) != 1<<(3*bits) {
		return nil, fmt.Errorf("%w: %d material bytes, want %d", ErrShapeMismatch, len(materials), 1<<(3*bits))
	}
	return &Chunk{
		X: x, Y: y, Z: z, LOD: lod,
		Materials: MaterialBlockFromBytes(materials),
		bits:      bits,
	}, nil
}

func (c *Chunk) Key() ChunkKey { return ChunkKey{X: c.X, Y: c.Y, Z: c.Z, LOD: c.LOD} }
func (c *Chunk) Bits() int     { return c.bits }
func (c *Chunk) Dirty() bool   { return c.dirty }
func (c *Chunk) MarkDirty()    { c.dirty = true }

// snapshot copies the chunk's position and bytes. The copy is clean.
func (c *Chunk) snapshot() *Chunk {
	b := make([]byte, len(c.Materials.b))
	copy(b, c.Materials.b)
	return &Chunk{
		X: c.X, Y: c.Y, Z: c.Z, LOD: c.LOD,
		Materials: MaterialBlockFromBytes(b),
		bits:      c.bits,
	}
}

func (c *Chunk) Get(lx, ly, lz int) byte {
	return c.Materials.Get(LocalIndex(c.bits, lx, ly, lz))
}

func (c *Chunk) Set(lx, ly, lz int, m byte) {
	i := LocalIndex(c.bits, lx, ly, lz)
	if c.Materials.Get(i) == m {
		return
	}
	c.Materials.Set(i, m)
	c.dirty = true
}

// ChunkStore is the dense slot array of loaded chunks. A nil slot is empty.
//
// mu guards slots and every chunk's bytes and dirty flag. saveMu orders
// writes to disk so an older copy of a chunk never lands after a newer one;
// it is always taken before mu.
type ChunkStore struct {
	Geo Geometry

	saveMu sync.Mutex
	mu     sync.RWMutex
	slots  []*Chunk
}

func NewChunkStore(geo Geometry) (*ChunkStore, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	return &ChunkStore{
		Geo:   geo,
		slots: make([]*Chunk, geo.Capacity()),
	}, nil
}
