package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrTruncated  = errors.New("truncated input")
	ErrOutOfRange = errors.New("value out of range")
)

// DecodeError reports where a decode failed. It matches ErrTruncated or
// ErrOutOfRange through errors.Is.
type DecodeError struct {
	Kind   error
	Offset int
	Field  string
	Detail string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Kind)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Kind }

// Reader decodes primitives written by Writer. The first failure sticks:
// later reads return zero values and Err keeps the original error.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Reset points the reader at data with the cursor at 0.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.off = 0
	r.err = nil
}

func (r *Reader) Offset() int    { return r.off }
func (r *Reader) Remaining() int { return len(r.data) - r.off }
func (r *Reader) Err() error     { return r.err }

// Done returns the sticky error, or an out-of-range error when input
// remains unread.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return &DecodeError{Kind: ErrOutOfRange, Offset: r.off, Field: "eof", Detail: fmt.Sprintf("%d trailing bytes", len(r.data)-r.off)}
	}
	return nil
}

func (r *Reader) fail(kind error, field, detail string) {
	if r.err == nil {
		r.err = &DecodeError{Kind: kind, Offset: r.off, Field: field, Detail: detail}
	}
}

func (r *Reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.data)-r.off {
		r.fail(ErrTruncated, field, fmt.Sprintf("need %d bytes, have %d", n, len(r.data)-r.off))
		return nil
	}
	p := r.data[r.off : r.off+n]
	r.off += n
	return p
}

func (r *Reader) Uint8() uint8 {
	p := r.take(1, "u8")
	if p == nil {
		return 0
	}
	return p[0]
}

func (r *Reader) Int8() int8 { return int8(r.Uint8()) }

func (r *Reader) Uint16() uint16 {
	p := r.take(2, "u16")
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint16(p)
}

func (r *Reader) Int16() int16 { return int16(r.Uint16()) }

func (r *Reader) Uint32() uint32 {
	p := r.take(4, "u32")
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint32(p)
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Uint64() uint64 {
	p := r.take(8, "u64")
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint64(p)
}

func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

func (r *Reader) Bool() bool {
	p := r.take(1, "bool")
	if p == nil {
		return false
	}
	switch p[0] {
	case 0:
		return false
	case 1:
		return true
	}
	r.off--
	r.fail(ErrOutOfRange, "bool", fmt.Sprintf("byte %d", p[0]))
	return false
}

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }
func (r *Reader) Float64() float64 { return math.Float64frombits(r.Uint64()) }

// Bytes reads a length-prefixed byte array and returns a copy. Lengths
// larger than max (when max >= 0) or than the remaining input fail.
func (r *Reader) Bytes(max int) []byte {
	start := r.off
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	if max >= 0 && uint64(n) > uint64(max) {
		r.off = start
		r.fail(ErrOutOfRange, "bytes", fmt.Sprintf("length %d exceeds limit %d", n, max))
		return nil
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.off = start
		r.fail(ErrOutOfRange, "bytes", fmt.Sprintf("length %d exceeds remaining %d", n, r.Remaining()))
		return nil
	}
	p := r.take(int(n), "bytes")
	out := make([]byte, len(p))
	copy(out, p)
	return out
}

func (r *Reader) String(max int) string {
	return string(r.Bytes(max))
}

func (r *Reader) Vec2() mgl32.Vec2 {
	var v mgl32.Vec2
	for i := range v {
		v[i] = r.Float32()
	}
	return v
}

func (r *Reader) Vec3() mgl32.Vec3 {
	var v mgl32.Vec3
	for i := range v {
		v[i] = r.Float32()
	}
	return v
}

func (r *Reader) Vec4() mgl32.Vec4 {
	var v mgl32.Vec4
	for i := range v {
		v[i] = r.Float32()
	}
	return v
}

func (r *Reader) Vec2i() Vec2i {
	var v Vec2i
	for i := range v {
		v[i] = r.Int32()
	}
	return v
}

func (r *Reader) Vec3i() Vec3i {
	var v Vec3i
	for i := range v {
		v[i] = r.Int32()
	}
	return v
}

func (r *Reader) Vec4i() Vec4i {
	var v Vec4i
	for i := range v {
		v[i] = r.Int32()
	}
	return v
}
