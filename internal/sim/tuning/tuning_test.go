package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "world.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
world_name: alpha
seed: 7
chunk_bits: 3
render_width: 8
lod_levels: 2
origin: [-4, 0, -4]
spawn: [1.5, 20, 1.5]
terrain:
  ground_y: 12
  stone: 9
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorldName != "alpha" || cfg.Seed != 7 || cfg.ChunkBits != 3 || cfg.RenderWidth != 8 || cfg.LODLevels != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.RenderHeight != 4 {
		t.Fatalf("render_height default: got %d", cfg.RenderHeight)
	}
	if cfg.Origin != [3]int32{-4, 0, -4} || cfg.Spawn != [3]float32{1.5, 20, 1.5} {
		t.Fatalf("vectors: origin=%v spawn=%v", cfg.Origin, cfg.Spawn)
	}
	if cfg.Terrain.GroundY != 12 || cfg.Terrain.Stone != 9 || cfg.Terrain.Dirt != 2 {
		t.Fatalf("terrain: %+v", cfg.Terrain)
	}
}

func TestLoad_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "chunk_bitz: 4\n",
		"bits too large":    "chunk_bits: 12\n",
		"reserved material": "terrain:\n  stone: 255\n",
		"short origin":      "origin: [1, 2]\n",
		"slash in name":     "world_name: a/b\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("got %+v want defaults", cfg)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
