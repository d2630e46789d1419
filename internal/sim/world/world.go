package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelvault.ai/internal/persistence/codec"
	"voxelvault.ai/internal/persistence/paths"
	"voxelvault.ai/internal/persistence/session"
	"voxelvault.ai/internal/sim/world/io/savecodec"
	genpkg "voxelvault.ai/internal/sim/world/terrain/gen"
	"voxelvault.ai/internal/sim/world/terrain/store"
)

var (
	ErrNameSet       = errors.New("world name already set")
	ErrMetaMismatch  = errors.New("saved world shape differs from config")
	ErrChunkMismatch = errors.New("chunk file holds a different chunk")
)

type Config struct {
	DataDir  string
	Geometry store.Geometry
	Seed     int64
	Spawn    mgl32.Vec3

	// GenerateMissing fills chunks that have never been saved from Generator.
	GenerateMissing bool
	Generator       genpkg.Generator

	TickRateHz int
	Logger     *log.Logger
	Sinks      []session.Sink
}

// World is the explicit context every persistence and store call goes
// through: it owns the chunk slots, the game clock and one session per
// entity kind. Store and session calls are internally locked; lifecycle
// calls (SetName, Load*, Close) belong to the owning goroutine.
type World struct {
	cfg    Config
	layout paths.Layout
	log    *log.Logger

	nameMu sync.RWMutex
	name   string

	store *store.ChunkStore
	tick  atomic.Int64

	chunks     *session.Session[*store.Chunk]
	server     *session.Session[savecodec.Server]
	meta       *session.Session[savecodec.WorldMeta]
	structures *session.Session[savecodec.Structure]

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) (*World, error) {
	s, err := store.NewChunkStore(cfg.Geometry)
	if err != nil {
		return nil, fmt.Errorf("world geometry: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.GenerateMissing && cfg.Generator == nil {
		return nil, fmt.Errorf("generate_missing set without a generator")
	}

	w := &World{
		cfg:    cfg,
		layout: paths.Layout{DataDir: cfg.DataDir},
		log:    cfg.Logger,
		store:  s,
		stop:   make(chan struct{}),
	}
	opts := []session.Option{
		session.WithLogger(cfg.Logger),
		session.WithSinks(cfg.Sinks...),
		session.WithTick(w.CurrentTick),
	}
	chunkOpts := append([]session.Option{session.WithCapacity(cfg.Geometry.ChunkVolume() + 32)}, opts...)
	w.chunks = session.New[*store.Chunk]("chunk", savecodec.ChunkCodec{Bits: cfg.Geometry.ChunkBits}, chunkOpts...)
	w.server = session.New[savecodec.Server]("server", savecodec.ServerCodec{}, opts...)
	w.meta = session.New[savecodec.WorldMeta]("world", savecodec.WorldMetaCodec{}, opts...)
	w.structures = session.New[savecodec.Structure]("structure", savecodec.StructureCodec{}, opts...)
	return w, nil
}

// Open creates a world, names it and loads its server clock and metadata.
func Open(cfg Config, name string) (*World, error) {
	w, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := w.SetName(name); err != nil {
		return nil, err
	}
	if err := w.LoadMeta(); err != nil {
		return nil, err
	}
	if err := w.LoadServer(); err != nil {
		return nil, err
	}
	return w, nil
}

// SetName assigns the world name. It can only be set once.
func (w *World) SetName(name string) error {
	if err := paths.ValidName(name); err != nil {
		return err
	}
	w.nameMu.Lock()
	defer w.nameMu.Unlock()
	if w.name != "" {
		return fmt.Errorf("%w: %q", ErrNameSet, w.name)
	}
	w.name = name
	return nil
}

func (w *World) Name() string {
	w.nameMu.RLock()
	defer w.nameMu.RUnlock()
	return w.name
}

func (w *World) Store() *store.ChunkStore { return w.store }
func (w *World) Config() Config           { return w.cfg }
func (w *World) CurrentTick() int64       { return w.tick.Load() }

// AddSink registers a save sink on every session.
func (w *World) AddSink(s session.Sink) {
	w.chunks.AddSink(s)
	w.server.AddSink(s)
	w.meta.AddSink(s)
	w.structures.AddSink(s)
}

// LoadServer restores the game clock. A world never saved starts at tick 0.
func (w *World) LoadServer() error {
	path, err := w.layout.Server(w.Name())
	if err != nil {
		return err
	}
	srv, ok, err := w.server.Load(path)
	if err != nil {
		return err
	}
	if !ok {
		srv = savecodec.Server{}
	}
	w.tick.Store(srv.CurrentTick)
	return nil
}

func (w *World) SaveServer() error {
	path, err := w.layout.Server(w.Name())
	if err != nil {
		return err
	}
	return w.server.Save(path, w.Name(), savecodec.Server{CurrentTick: w.CurrentTick()})
}

func (w *World) metaFromConfig() savecodec.WorldMeta {
	g := w.cfg.Geometry
	return savecodec.WorldMeta{
		Name:            w.Name(),
		Seed:            w.cfg.Seed,
		ChunkBits:       int32(g.ChunkBits),
		Width:           int32(g.Width),
		Height:          int32(g.Height),
		LODLevels:       int32(g.LODLevels),
		Origin:          codec.Vec3i(g.Origin),
		Spawn:           w.cfg.Spawn,
		GenerateMissing: w.cfg.GenerateMissing,
	}
}

// LoadMeta checks the saved world shape against the config. A world with
// no metadata file is new; its metadata is written on Close.
func (w *World) LoadMeta() error {
	path, err := w.layout.WorldMeta(w.Name())
	if err != nil {
		return err
	}
	saved, ok, err := w.meta.Load(path)
	if err != nil || !ok {
		return err
	}
	want := w.metaFromConfig()
	if saved.ChunkBits != want.ChunkBits || saved.Width != want.Width || saved.Height != want.Height ||
		saved.LODLevels != want.LODLevels || saved.Origin != want.Origin {
		return fmt.Errorf("%w: saved bits=%d volume=%dx%d lods=%d origin=%v", ErrMetaMismatch,
			saved.ChunkBits, saved.Width, saved.Height, saved.LODLevels, saved.Origin)
	}
	if saved.Seed != want.Seed {
		w.log.Printf("world %s: keeping saved seed %d (config %d)", w.Name(), saved.Seed, want.Seed)
		w.cfg.Seed = saved.Seed
	}
	w.cfg.Spawn = saved.Spawn
	return nil
}

func (w *World) SaveMeta() error {
	path, err := w.layout.WorldMeta(w.Name())
	if err != nil {
		return err
	}
	return w.meta.Save(path, w.Name(), w.metaFromConfig())
}

// Spawn is the saved (or configured) spawn point.
func (w *World) Spawn() mgl32.Vec3 { return w.cfg.Spawn }

// Step advances the game clock by one tick.
func (w *World) Step() int64 { return w.tick.Add(1) }

// Run advances the clock at the configured rate until ctx ends or Stop.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case <-ticker.C:
			w.Step()
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// CleanUp persists every dirty chunk. Clean chunks are not touched.
func (w *World) CleanUp() error {
	if _, err := w.layout.WorldDir(w.Name()); err != nil {
		return err
	}
	saved, err := w.store.CleanUp(w.persistChunk)
	w.log.Printf("world %s: cleanup saved %d chunks", w.Name(), saved)
	return err
}

// Close is world teardown: dirty chunks, then the clock and metadata. Every
// step is attempted; failures are joined.
func (w *World) Close() error {
	w.Stop()
	var errs []error
	if err := w.CleanUp(); err != nil {
		errs = append(errs, err)
	}
	if err := w.SaveServer(); err != nil {
		errs = append(errs, err)
	}
	if err := w.SaveMeta(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
