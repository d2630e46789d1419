// Package gen holds the terrain generator contract. Real terrain comes from
// the caller; Layered is a deterministic stand-in for tools and tests.
package gen

import "voxelvault.ai/internal/sim/world/logic/mathx"

// Generator picks the material of a voxel in world coordinates for a lod tier.
type Generator interface {
	Material(seed int64, x, y, z int, lod int32) byte
}

type GeneratorFunc func(seed int64, x, y, z int, lod int32) byte

func (f GeneratorFunc) Material(seed int64, x, y, z int, lod int32) byte { return f(seed, x, y, z, lod) }

// Layered fills stone below GroundY-DirtDepth, dirt up to GroundY and air
// above, with hash-sprinkled stone in the dirt layer.
type Layered struct {
	GroundY   int
	DirtDepth int

	Air   byte
	Dirt  byte
	Stone byte

	SprinkleStonePermille int
}

func (l Layered) Material(seed int64, x, y, z int, _ int32) byte {
	switch {
	case y >= l.GroundY:
		return l.Air
	case y < l.GroundY-l.DirtDepth:
		return l.Stone
	}
	if mathx.Hash3(seed, x, y, z)%1000 < uint64(mathx.ClampPermille(l.SprinkleStonePermille)) {
		return l.Stone
	}
	return l.Dirt
}
