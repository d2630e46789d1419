package world

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"

	"voxelvault.ai/internal/persistence/session"
	"voxelvault.ai/internal/sim/world/terrain/store"
)

func chunkBytes(w *World, cx, cy, cz int32) []byte {
	bits := w.store.Geo.ChunkBits
	size := 1 << bits
	out := make([]byte, 0, size*size*size)
	for y := 0; y < size; y++ {
		for z := 0; z < size; z++ {
			for x := 0; x < size; x++ {
				out = append(out, w.GetMaterial(int(cx)<<bits+x, int(cy)<<bits+y, int(cz)<<bits+z))
			}
		}
	}
	return out
}

func fileBytes(t *testing.T, w *World, cx, cy, cz int32) []byte {
	t.Helper()
	path, _, err := w.chunkPath(cx, cy, cz, 0)
	if err != nil {
		t.Fatalf("chunkPath: %v", err)
	}
	ch, ok, err := w.chunks.Load(path)
	if err != nil || !ok {
		t.Fatalf("load %s: ok=%v err=%v", path, ok, err)
	}
	bits := w.store.Geo.ChunkBits
	size := 1 << bits
	out := make([]byte, 0, size*size*size)
	for y := 0; y < size; y++ {
		for z := 0; z < size; z++ {
			for x := 0; x < size; x++ {
				out = append(out, ch.Get(x, y, z))
			}
		}
	}
	return out
}

func TestWorld_WriteFromSinkDuringSaveStaysDirty(t *testing.T) {
	dir := t.TempDir()
	w := openWorld(t, testConfig(dir), "alpha")
	ch, err := w.EnsureChunk(0, 0, 0, 0)
	if err != nil {
		t.Fatalf("EnsureChunk: %v", err)
	}

	var fired atomic.Bool
	w.AddSink(session.SinkFunc(func(ev session.SaveEvent) {
		if ev.Kind != "chunk" || !fired.CompareAndSwap(false, true) {
			return
		}
		if err := w.SetMaterial(1, 1, 1, 77); err != nil {
			t.Errorf("SetMaterial from sink: %v", err)
		}
	}))

	if err := w.SaveChunk(ch); err != nil {
		t.Fatalf("SaveChunk: %v", err)
	}
	if got := w.GetMaterial(1, 1, 1); got != 77 {
		t.Fatalf("voxel: got %d want 77", got)
	}
	if !w.Store().IsDirty(ch) {
		t.Fatalf("voxel written after the file was encoded; chunk should be dirty")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again := openWorld(t, testConfig(dir), "alpha")
	if _, err := again.EnsureChunk(0, 0, 0, 0); err != nil {
		t.Fatalf("EnsureChunk: %v", err)
	}
	if got := again.GetMaterial(1, 1, 1); got != 77 {
		t.Fatalf("reloaded voxel: got %d want 77", got)
	}
}

func TestWorld_ConcurrentWritesAndSaves(t *testing.T) {
	dir := t.TempDir()
	w := openWorld(t, testConfig(dir), "alpha")
	ch, err := w.EnsureChunk(0, 0, 0, 0)
	if err != nil {
		t.Fatalf("EnsureChunk: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 400; i++ {
			if err := w.SetMaterial(i%8, (i/8)%8, (i/64)%8, byte(3+i%100)); err != nil {
				t.Errorf("SetMaterial: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 40; i++ {
			if err := w.SaveChunk(ch); err != nil {
				t.Errorf("SaveChunk: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if !w.Store().IsDirty(ch) && !bytes.Equal(fileBytes(t, w, 0, 0, 0), chunkBytes(w, 0, 0, 0)) {
		t.Fatalf("chunk is clean but its file differs from memory")
	}
	want := chunkBytes(w, 0, 0, 0)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again := openWorld(t, testConfig(dir), "alpha")
	if _, err := again.EnsureChunk(0, 0, 0, 0); err != nil {
		t.Fatalf("EnsureChunk: %v", err)
	}
	if got := chunkBytes(again, 0, 0, 0); !bytes.Equal(got, want) {
		t.Fatalf("reloaded chunk differs from memory at close")
	}
	if got := again.GetMaterial(0, 0, 0); got == store.OutOfWorld {
		t.Fatalf("chunk not loaded after reopen")
	}
}
