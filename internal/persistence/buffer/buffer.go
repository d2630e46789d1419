package buffer

// Buffer is an append-only byte buffer meant to be reused across many
// encode calls. Clear resets the length but keeps the backing array.
type Buffer struct {
	b []byte
}

func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{b: make([]byte, 0, capacity)}
}

func (b *Buffer) Len() int { return len(b.b) }
func (b *Buffer) Cap() int { return cap(b.b) }

// Bytes returns the valid bytes without copying. The slice is only valid
// until the next mutating call.
func (b *Buffer) Bytes() []byte { return b.b }

// Snapshot returns a copy of the valid bytes.
func (b *Buffer) Snapshot() []byte {
	out := make([]byte, len(b.b))
	copy(out, b.b)
	return out
}

// Clear resets the length to zero without releasing capacity.
func (b *Buffer) Clear() { b.b = b.b[:0] }

func (b *Buffer) Append(c byte) {
	b.grow(1)
	b.b = append(b.b, c)
}

func (b *Buffer) AppendBytes(p []byte) {
	b.grow(len(p))
	b.b = append(b.b, p...)
}

// Reserve advances the length by n without writing meaningful data and
// returns the offset of the reserved range. Fill it later with PutAt.
func (b *Buffer) Reserve(n int) int {
	if n < 0 {
		panic("buffer: negative reserve")
	}
	off := len(b.b)
	b.grow(n)
	b.b = b.b[:off+n]
	clear(b.b[off:])
	return off
}

// PutAt overwrites bytes at off. The range must already be inside Len.
func (b *Buffer) PutAt(off int, p []byte) {
	if off < 0 || off+len(p) > len(b.b) {
		panic("buffer: PutAt out of range")
	}
	copy(b.b[off:], p)
}

// grow makes room for n more bytes: doubling, or exact fit when doubling
// is not enough.
func (b *Buffer) grow(n int) {
	need := len(b.b) + n
	if need <= cap(b.b) {
		return
	}
	newCap := cap(b.b) * 2
	if newCap < need {
		newCap = need
	}
	nb := make([]byte, len(b.b), newCap)
	copy(nb, b.b)
	b.b = nb
}
