package world

import (
	"fmt"

	"voxelvault.ai/internal/sim/world/io/savecodec"
	"voxelvault.ai/internal/sim/world/terrain/store"
)

func (w *World) SaveStructure(s savecodec.Structure) error {
	if len(s.Materials) != s.Volume() {
		return fmt.Errorf("structure %q: %d materials for size %v", s.Name, len(s.Materials), s.Size)
	}
	path, err := w.layout.Structure(w.Name(), s.Name)
	if err != nil {
		return err
	}
	return w.structures.Save(path, s.Name, s)
}

// LoadStructure returns ok=false for a structure that was never saved.
func (w *World) LoadStructure(name string) (savecodec.Structure, bool, error) {
	path, err := w.layout.Structure(w.Name(), name)
	if err != nil {
		return savecodec.Structure{}, false, err
	}
	return w.structures.Load(path)
}

// StampStructure writes s so that its anchor lands on (x,y,z). Voxels
// holding store.OutOfWorld in the template are left untouched. Returns the
// number of voxels written.
func (w *World) StampStructure(s savecodec.Structure, x, y, z int) (int, error) {
	ox := x - int(s.Anchor[0])
	oy := y - int(s.Anchor[1])
	oz := z - int(s.Anchor[2])
	n := 0
	for sy := 0; sy < int(s.Size[1]); sy++ {
		for sz := 0; sz < int(s.Size[2]); sz++ {
			for sx := 0; sx < int(s.Size[0]); sx++ {
				m := s.Materials[s.Index(sx, sy, sz)]
				if m == store.OutOfWorld {
					continue
				}
				if err := w.SetMaterial(ox+sx, oy+sy, oz+sz, m); err != nil {
					return n, fmt.Errorf("stamp %q at (%d,%d,%d): %w", s.Name, ox+sx, oy+sy, oz+sz, err)
				}
				n++
			}
		}
	}
	return n, nil
}
