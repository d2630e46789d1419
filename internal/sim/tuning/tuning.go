package tuning

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchema string

type Config struct {
	DataDir         string     `yaml:"data_dir"`
	WorldName       string     `yaml:"world_name"`
	Seed            int64      `yaml:"seed"`
	ChunkBits       int        `yaml:"chunk_bits"`
	RenderWidth     int        `yaml:"render_width"`
	RenderHeight    int        `yaml:"render_height"`
	LODLevels       int        `yaml:"lod_levels"`
	Origin          [3]int32   `yaml:"origin"`
	Spawn           [3]float32 `yaml:"spawn"`
	GenerateMissing bool       `yaml:"generate_missing"`
	Terrain         Terrain    `yaml:"terrain"`

	Journal    bool `yaml:"journal"`
	IndexDB    bool `yaml:"index_db"`
	TickRateHz int  `yaml:"tick_rate_hz"`
}

type Terrain struct {
	GroundY               int  `yaml:"ground_y"`
	DirtDepth             int  `yaml:"dirt_depth"`
	Air                   byte `yaml:"air"`
	Dirt                  byte `yaml:"dirt"`
	Stone                 byte `yaml:"stone"`
	SprinkleStonePermille int  `yaml:"sprinkle_stone_permille"`
}

// Defaults is a 16x4x16 chunk volume of 16^3 chunks centred on the origin.
func Defaults() Config {
	return Config{
		DataDir:         "./data",
		ChunkBits:       4,
		RenderWidth:     16,
		RenderHeight:    4,
		LODLevels:       1,
		Origin:          [3]int32{-8, 0, -8},
		Spawn:           [3]float32{0.5, 33, 0.5},
		GenerateMissing: true,
		Terrain: Terrain{
			GroundY:               32,
			DirtDepth:             4,
			Air:                   0,
			Dirt:                  2,
			Stone:                 1,
			SprinkleStonePermille: 50,
		},
		Journal:    true,
		IndexDB:    true,
		TickRateHz: 20,
	}
}

// Load reads path over Defaults. The raw document is validated against the
// embedded schema before decoding.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := validate(raw); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) Normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.WorldName = strings.TrimSpace(c.WorldName)
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LODLevels <= 0 {
		c.LODLevels = 1
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
}

var schema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("config.schema.json", configSchema)
})

func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, err := schema()
	if err != nil {
		return err
	}
	return s.Validate(v)
}
