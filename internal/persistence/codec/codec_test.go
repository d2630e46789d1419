package codec

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"voxelvault.ai/internal/persistence/buffer"
)

func TestWriter_BigEndianLayout(t *testing.T) {
	buf := buffer.New(0)
	w := NewWriter(buf)
	w.Int16(0x0102)
	w.Int32(0x03040506)
	w.Int64(0x0708090A0B0C0D0E)
	w.Bool(true)
	w.Bool(false)
	w.Bytes([]byte{0xAA, 0xBB})

	want := []byte{
		0x01, 0x02,
		0x03, 0x04, 0x05, 0x06,
		0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E,
		0x01,
		0x00,
		0x00, 0x00, 0x00, 0x02, 0xAA, 0xBB,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("layout mismatch:\n got %x\nwant %x", buf.Bytes(), want)
	}
}

func TestReader_RoundTripPrimitives(t *testing.T) {
	buf := buffer.New(0)
	w := NewWriter(buf)

	nan := math.Float32frombits(0x7FC00123)
	w.Uint8(0xFF)
	w.Int8(-128)
	w.Uint16(0xFFFF)
	w.Int16(math.MinInt16)
	w.Uint32(math.MaxUint32)
	w.Int32(math.MinInt32)
	w.Uint64(math.MaxUint64)
	w.Int64(math.MinInt64)
	w.Int64(math.MaxInt64)
	w.Bool(true)
	w.Float32(float32(math.Copysign(0, -1)))
	w.Float32(nan)
	w.Float64(math.Pi)
	w.Bytes(nil)
	w.String("voxel")
	w.Vec2(mgl32.Vec2{1.5, -2})
	w.Vec3(mgl32.Vec3{0.25, 3, -7})
	w.Vec4(mgl32.Vec4{1, 2, 3, 4})
	w.Vec2i(Vec2i{-1, 1})
	w.Vec3i(Vec3i{math.MinInt32, 0, math.MaxInt32})
	w.Vec4i(Vec4i{4, 3, 2, 1})

	r := NewReader(buf.Snapshot())
	if got := r.Uint8(); got != 0xFF {
		t.Fatalf("u8: %d", got)
	}
	if got := r.Int8(); got != -128 {
		t.Fatalf("i8: %d", got)
	}
	if got := r.Uint16(); got != 0xFFFF {
		t.Fatalf("u16: %d", got)
	}
	if got := r.Int16(); got != math.MinInt16 {
		t.Fatalf("i16: %d", got)
	}
	if got := r.Uint32(); got != math.MaxUint32 {
		t.Fatalf("u32: %d", got)
	}
	if got := r.Int32(); got != math.MinInt32 {
		t.Fatalf("i32: %d", got)
	}
	if got := r.Uint64(); got != math.MaxUint64 {
		t.Fatalf("u64: %d", got)
	}
	if got := r.Int64(); got != math.MinInt64 {
		t.Fatalf("i64 min: %d", got)
	}
	if got := r.Int64(); got != math.MaxInt64 {
		t.Fatalf("i64 max: %d", got)
	}
	if !r.Bool() {
		t.Fatalf("bool: want true")
	}
	if got := r.Float32(); math.Float32bits(got) != 0x80000000 {
		t.Fatalf("-0: bits %x", math.Float32bits(got))
	}
	if got := r.Float32(); math.Float32bits(got) != 0x7FC00123 {
		t.Fatalf("nan payload: bits %x", math.Float32bits(got))
	}
	if got := r.Float64(); got != math.Pi {
		t.Fatalf("f64: %v", got)
	}
	if got := r.Bytes(-1); len(got) != 0 {
		t.Fatalf("empty bytes: %v", got)
	}
	if got := r.String(16); got != "voxel" {
		t.Fatalf("string: %q", got)
	}
	if got := r.Vec2(); got != (mgl32.Vec2{1.5, -2}) {
		t.Fatalf("vec2: %v", got)
	}
	if got := r.Vec3(); got != (mgl32.Vec3{0.25, 3, -7}) {
		t.Fatalf("vec3: %v", got)
	}
	if got := r.Vec4(); got != (mgl32.Vec4{1, 2, 3, 4}) {
		t.Fatalf("vec4: %v", got)
	}
	if got := r.Vec2i(); got != (Vec2i{-1, 1}) {
		t.Fatalf("vec2i: %v", got)
	}
	if got := r.Vec3i(); got != (Vec3i{math.MinInt32, 0, math.MaxInt32}) {
		t.Fatalf("vec3i: %v", got)
	}
	if got := r.Vec4i(); got != (Vec4i{4, 3, 2, 1}) {
		t.Fatalf("vec4i: %v", got)
	}
	if err := r.Done(); err != nil {
		t.Fatalf("Done: %v", err)
	}
}

func TestReader_Truncated(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01})
	_ = r.Int32()
	err := r.Err()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Offset != 0 {
		t.Fatalf("expected DecodeError at offset 0, got %#v", err)
	}
	// Sticky: later reads keep the first error.
	_ = r.Uint8()
	if r.Err() != err {
		t.Fatalf("error not sticky")
	}
}

func TestReader_OutOfRange(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		read func(r *Reader)
	}{
		{
			name: "length beyond input",
			data: []byte{0x00, 0x00, 0x00, 0x09, 1, 2},
			read: func(r *Reader) { r.Bytes(-1) },
		},
		{
			name: "length beyond limit",
			data: []byte{0x00, 0x00, 0x00, 0x02, 1, 2},
			read: func(r *Reader) { r.Bytes(1) },
		},
		{
			name: "bad bool",
			data: []byte{0x02},
			read: func(r *Reader) { r.Bool() },
		},
		{
			name: "trailing bytes",
			data: []byte{0x01, 0x02},
			read: func(r *Reader) { r.Uint8() },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(tc.data)
			tc.read(r)
			if err := r.Done(); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("expected ErrOutOfRange, got %v", err)
			}
		})
	}
}

func TestReader_ResetRewinds(t *testing.T) {
	r := NewReader([]byte{0x02})
	_ = r.Bool()
	if r.Err() == nil {
		t.Fatalf("expected error")
	}
	r.Reset([]byte{0x00, 0x00, 0x00, 0x07})
	if got := r.Int32(); got != 7 || r.Err() != nil {
		t.Fatalf("after reset: got %d err %v", got, r.Err())
	}
}
