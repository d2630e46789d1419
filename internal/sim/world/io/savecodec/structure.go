package savecodec

import (
	"fmt"

	"voxelvault.ai/internal/persistence/codec"
)

// maxStructureVolume bounds decoded templates to 256^3 voxels.
const maxStructureVolume = 1 << 24

// Structure is a reusable block of materials stamped into the world at an
// offset from Anchor.
type Structure struct {
	Name      string
	Size      codec.Vec3i
	Anchor    codec.Vec3i
	Materials []byte
}

func (s Structure) Volume() int {
	return int(s.Size[0]) * int(s.Size[1]) * int(s.Size[2])
}

// Index orders structure voxels x fastest, then z, then y, like chunks.
func (s Structure) Index(x, y, z int) int {
	return x + z*int(s.Size[0]) + y*int(s.Size[0])*int(s.Size[2])
}

// StructureCodec: bytes name, vec3i size, vec3i anchor, bytes materials.
type StructureCodec struct{}

func (StructureCodec) Encode(w *codec.Writer, s Structure) {
	w.String(s.Name)
	w.Vec3i(s.Size)
	w.Vec3i(s.Anchor)
	w.Bytes(s.Materials)
}

func (StructureCodec) Decode(r *codec.Reader) (Structure, error) {
	var s Structure
	s.Name = r.String(maxNameLen)
	s.Size = r.Vec3i()
	s.Anchor = r.Vec3i()
	if err := r.Err(); err != nil {
		return s, err
	}
	for _, d := range s.Size {
		if d < 0 || d > 256 {
			return s, &codec.DecodeError{Kind: codec.ErrOutOfRange, Offset: r.Offset(), Field: "structure size", Detail: fmt.Sprintf("%v", s.Size)}
		}
	}
	s.Materials = r.Bytes(maxStructureVolume)
	if err := r.Err(); err != nil {
		return s, err
	}
	if len(s.Materials) != s.Volume() {
		return s, &codec.DecodeError{Kind: codec.ErrOutOfRange, Offset: r.Offset(), Field: "structure materials", Detail: fmt.Sprintf("%d bytes for size %v", len(s.Materials), s.Size)}
	}
	return s, nil
}
