package savecodec

import "voxelvault.ai/internal/persistence/codec"

// Server is the per-world game clock.
type Server struct {
	CurrentTick int64
}

// ServerCodec: i64 current tick.
type ServerCodec struct{}

func (ServerCodec) Encode(w *codec.Writer, s Server) {
	w.Int64(s.CurrentTick)
}

func (ServerCodec) Decode(r *codec.Reader) (Server, error) {
	s := Server{CurrentTick: r.Int64()}
	return s, r.Err()
}
