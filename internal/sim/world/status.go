package world

import "voxelvault.ai/internal/transport/observer"

// Status implements observer.StatusSource.
func (w *World) Status() observer.Status {
	return observer.Status{
		World:        w.Name(),
		Tick:         w.CurrentTick(),
		ChunkBits:    w.store.Geo.ChunkBits,
		LoadedChunks: w.store.Loaded(),
		DirtyChunks:  w.store.Dirty(),
	}
}
