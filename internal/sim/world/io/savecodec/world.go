package savecodec

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelvault.ai/internal/persistence/codec"
)

const maxNameLen = 255

// WorldMeta records the shape a world was created with so a later session
// can refuse to open it with an incompatible configuration.
type WorldMeta struct {
	Name            string
	Seed            int64
	ChunkBits       int32
	Width           int32
	Height          int32
	LODLevels       int32
	Origin          codec.Vec3i
	Spawn           mgl32.Vec3
	GenerateMissing bool
}

// WorldMetaCodec: bytes name, i64 seed, i32 chunk bits, i32 width,
// i32 height, i32 lod levels, vec3i origin, vec3 spawn, bool generate.
type WorldMetaCodec struct{}

func (WorldMetaCodec) Encode(w *codec.Writer, m WorldMeta) {
	w.String(m.Name)
	w.Int64(m.Seed)
	w.Int32(m.ChunkBits)
	w.Int32(m.Width)
	w.Int32(m.Height)
	w.Int32(m.LODLevels)
	w.Vec3i(m.Origin)
	w.Vec3(m.Spawn)
	w.Bool(m.GenerateMissing)
}

func (WorldMetaCodec) Decode(r *codec.Reader) (WorldMeta, error) {
	var m WorldMeta
	m.Name = r.String(maxNameLen)
	m.Seed = r.Int64()
	m.ChunkBits = r.Int32()
	m.Width = r.Int32()
	m.Height = r.Int32()
	m.LODLevels = r.Int32()
	m.Origin = r.Vec3i()
	m.Spawn = r.Vec3()
	m.GenerateMissing = r.Bool()
	return m, r.Err()
}
