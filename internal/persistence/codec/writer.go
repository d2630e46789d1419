package codec

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelvault.ai/internal/persistence/buffer"
)

// Vec2i, Vec3i and Vec4i are fixed-size integer vectors (block/chunk coords).
type (
	Vec2i [2]int32
	Vec3i [3]int32
	Vec4i [4]int32
)

// Writer appends fixed-width big-endian primitives to a Buffer.
type Writer struct {
	buf *buffer.Buffer
	tmp [8]byte
}

func NewWriter(buf *buffer.Buffer) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) Buffer() *buffer.Buffer { return w.buf }

func (w *Writer) Uint8(v uint8) { w.buf.Append(v) }
func (w *Writer) Int8(v int8)   { w.buf.Append(uint8(v)) }

func (w *Writer) Uint16(v uint16) {
	binary.BigEndian.PutUint16(w.tmp[:2], v)
	w.buf.AppendBytes(w.tmp[:2])
}

func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

func (w *Writer) Uint32(v uint32) {
	binary.BigEndian.PutUint32(w.tmp[:4], v)
	w.buf.AppendBytes(w.tmp[:4])
}

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Uint64(v uint64) {
	binary.BigEndian.PutUint64(w.tmp[:8], v)
	w.buf.AppendBytes(w.tmp[:8])
}

func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

func (w *Writer) Bool(v bool) {
	if v {
		w.buf.Append(1)
		return
	}
	w.buf.Append(0)
}

// Float32 writes the IEEE-754 bit pattern, so NaN payloads and -0 survive.
func (w *Writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }
func (w *Writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }

// Bytes writes a u32 length prefix followed by the raw bytes.
func (w *Writer) Bytes(p []byte) {
	w.Uint32(uint32(len(p)))
	w.buf.AppendBytes(p)
}

func (w *Writer) String(s string) {
	w.Uint32(uint32(len(s)))
	w.buf.AppendBytes([]byte(s))
}

func (w *Writer) Vec2(v mgl32.Vec2) {
	for _, c := range v {
		w.Float32(c)
	}
}

func (w *Writer) Vec3(v mgl32.Vec3) {
	for _, c := range v {
		w.Float32(c)
	}
}

func (w *Writer) Vec4(v mgl32.Vec4) {
	for _, c := range v {
		w.Float32(c)
	}
}

func (w *Writer) Vec2i(v Vec2i) {
	for _, c := range v {
		w.Int32(c)
	}
}

func (w *Writer) Vec3i(v Vec3i) {
	for _, c := range v {
		w.Int32(c)
	}
}

func (w *Writer) Vec4i(v Vec4i) {
	for _, c := range v {
		w.Int32(c)
	}
}
