package session_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voxelvault.ai/internal/persistence/codec"
	"voxelvault.ai/internal/persistence/session"
	"voxelvault.ai/internal/sim/world/io/savecodec"
	"voxelvault.ai/internal/sim/world/terrain/store"
)

func TestSession_ServerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := session.New[savecodec.Server]("server", savecodec.ServerCodec{})

	for _, tick := range []int64{0, -1, math.MinInt64, math.MaxInt64, 123456789012} {
		path := filepath.Join(dir, "server.dat")
		if err := s.Save(path, "w", savecodec.Server{CurrentTick: tick}); err != nil {
			t.Fatalf("Save(%d): %v", tick, err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if len(raw) != 8 {
			t.Fatalf("tick %d: file size %d want 8", tick, len(raw))
		}
		got, ok, err := s.Load(path)
		if err != nil || !ok {
			t.Fatalf("Load(%d): ok=%v err=%v", tick, ok, err)
		}
		if got.CurrentTick != tick {
			t.Fatalf("tick: got %d want %d", got.CurrentTick, tick)
		}
	}
}

func TestSession_LoadMissingIsAbsent(t *testing.T) {
	s := session.New[savecodec.Server]("server", savecodec.ServerCodec{})
	got, ok, err := s.Load(filepath.Join(t.TempDir(), "nope", "server.dat"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatalf("expected absent")
	}
	if got.CurrentTick != 0 {
		t.Fatalf("absent value should be zero, got %+v", got)
	}
}

func TestSession_ReuseTruncatesOldBytes(t *testing.T) {
	dir := t.TempDir()
	s := session.New[savecodec.Structure]("structure", savecodec.StructureCodec{}, session.WithCapacity(4))
	path := filepath.Join(dir, "s.struct")

	big := savecodec.Structure{Name: "big", Size: codec.Vec3i{4, 4, 4}, Materials: bytes.Repeat([]byte{3}, 64)}
	small := savecodec.Structure{Name: "s", Size: codec.Vec3i{1, 1, 1}, Materials: []byte{8}}

	if err := s.Save(path, "big", big); err != nil {
		t.Fatalf("Save big: %v", err)
	}
	if err := s.Save(path, "small", small); err != nil {
		t.Fatalf("Save small: %v", err)
	}
	got, ok, err := s.Load(path)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Name != "s" || !bytes.Equal(got.Materials, []byte{8}) {
		t.Fatalf("got %+v", got)
	}
}

func TestSession_LoadCorruptFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.dat")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := session.New[savecodec.Server]("server", savecodec.ServerCodec{})
	if _, ok, err := s.Load(path); ok || !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("expected truncated error, ok=%v err=%v", ok, err)
	}

	if err := os.WriteFile(path, make([]byte, 9), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := s.Load(path); !errors.Is(err, codec.ErrOutOfRange) {
		t.Fatalf("expected trailing-bytes error, got %v", err)
	}
}

func TestSession_SaveFailureReported(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should go makes the write fail.
	path := filepath.Join(dir, "server.dat")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	var events int
	s := session.New[savecodec.Server]("server", savecodec.ServerCodec{},
		session.WithSinks(session.SinkFunc(func(session.SaveEvent) { events++ })))
	if err := s.Save(path, "w", savecodec.Server{CurrentTick: 5}); err == nil {
		t.Fatalf("expected save error")
	}
	if events != 0 {
		t.Fatalf("failed save should not emit events")
	}
}

func TestSession_SinksReceiveEvents(t *testing.T) {
	dir := t.TempDir()
	var got []session.SaveEvent
	s := session.New[*store.Chunk]("chunk", savecodec.ChunkCodec{Bits: 2},
		session.WithTick(func() int64 { return 77 }),
		session.WithSinks(session.SinkFunc(func(ev session.SaveEvent) { got = append(got, ev) })))

	ch := store.NewChunk(1, 2, 3, 0, 2)
	path := filepath.Join(dir, "chunks", "lod0", "1.chunk")
	if err := s.Save(path, "1", ch); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("events: got %d want 1", len(got))
	}
	ev := got[0]
	if ev.Kind != "chunk" || ev.Key != "1" || ev.Path != path || ev.Tick != 77 {
		t.Fatalf("event: %+v", ev)
	}
	if ev.Bytes != 16+4+64 || len(ev.Digest) != 64 {
		t.Fatalf("event size/digest: %+v", ev)
	}
}
