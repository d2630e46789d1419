package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	persistlog "voxelvault.ai/internal/persistence/log"
	"voxelvault.ai/internal/persistence/paths"
	"voxelvault.ai/internal/sim/tuning"
	"voxelvault.ai/internal/sim/world"
	"voxelvault.ai/internal/sim/world/terrain/gen"
	"voxelvault.ai/internal/sim/world/terrain/store"
	"voxelvault.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("config", "./configs/world.yaml", "path to world config yaml")
		worldName  = flag.String("world", "", "world name (overrides world_name in config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides data_dir in config)")
		seed       = flag.Int64("seed", 0, "world seed for a fresh world (0 keeps the config seed)")
		radius     = flag.Int("preload_radius", 1, "chunks around spawn to load at startup")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	if s := strings.TrimSpace(*worldName); s != "" {
		tune.WorldName = s
	}
	if s := strings.TrimSpace(*dataDir); s != "" {
		tune.DataDir = s
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if tune.WorldName == "" {
		logger.Fatalf("no world name: set world_name in %s or pass -world", *tuningPath)
	}

	runID := uuid.NewString()
	layout := paths.Layout{DataDir: tune.DataDir}

	w, err := world.Open(worldConfig(tune, logger), tune.WorldName)
	if err != nil {
		logger.Fatalf("open world %s: %v", tune.WorldName, err)
	}
	logger.Printf("world=%s run=%s tick=%d seed=%d", w.Name(), runID, w.CurrentTick(), w.Config().Seed)

	if tune.Journal {
		dir, err := layout.JournalDir(w.Name())
		if err != nil {
			logger.Fatalf("journal: %v", err)
		}
		journal := persistlog.NewSaveJournal(dir, w.Name(), runID, logger)
		defer journal.Close()
		w.AddSink(journal)
	}

	idx, err := openSaveIndex(layout, w.Name(), tune.IndexDB, logger)
	if err != nil {
		logger.Fatalf("open save index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		w.AddSink(idx)
	}

	obsSrv := observer.NewServer(w, logger)
	w.AddSink(obsSrv)

	sp := w.Spawn()
	bits := w.Store().Geo.ChunkBits
	center := [3]int32{
		int32(int(math.Floor(float64(sp[0]))) >> bits),
		int32(int(math.Floor(float64(sp[1]))) >> bits),
		int32(int(math.Floor(float64(sp[2]))) >> bits),
	}
	start := time.Now()
	n, err := w.LoadRegion(center[0], center[1], center[2], int32(*radius))
	if err != nil {
		logger.Fatalf("preload around spawn %v: %v", sp, err)
	}
	logger.Printf("preloaded %d chunks around %v in %s", n, center, time.Since(start).Round(time.Millisecond))

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := w.Status()

		fmt.Fprintf(rw, "# HELP voxelvault_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE voxelvault_world_tick gauge\n")
		fmt.Fprintf(rw, "voxelvault_world_tick{world=%q} %d\n", st.World, st.Tick)

		fmt.Fprintf(rw, "# HELP voxelvault_world_loaded_chunks Loaded chunk count.\n")
		fmt.Fprintf(rw, "# TYPE voxelvault_world_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "voxelvault_world_loaded_chunks{world=%q} %d\n", st.World, st.LoadedChunks)

		fmt.Fprintf(rw, "# HELP voxelvault_world_dirty_chunks Chunks modified since their last save.\n")
		fmt.Fprintf(rw, "# TYPE voxelvault_world_dirty_chunks gauge\n")
		fmt.Fprintf(rw, "voxelvault_world_dirty_chunks{world=%q} %d\n", st.World, st.DirtyChunks)

		fmt.Fprintf(rw, "# HELP voxelvault_observer_subscribers Connected save stream subscribers.\n")
		fmt.Fprintf(rw, "# TYPE voxelvault_observer_subscribers gauge\n")
		fmt.Fprintf(rw, "voxelvault_observer_subscribers{world=%q} %d\n", st.World, obsSrv.Subscribers())

		fmt.Fprintf(rw, "# HELP voxelvault_observer_dropped_total Save events dropped for slow subscribers.\n")
		fmt.Fprintf(rw, "# TYPE voxelvault_observer_dropped_total counter\n")
		fmt.Fprintf(rw, "voxelvault_observer_dropped_total{world=%q} %d\n", st.World, obsSrv.Dropped())

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP voxelvault_index_queue_depth Save index queue depth.\n")
			fmt.Fprintf(rw, "# TYPE voxelvault_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "voxelvault_index_queue_depth{world=%q} %d\n", st.World, s.QueueDepth)
			fmt.Fprintf(rw, "voxelvault_index_written_total{world=%q} %d\n", st.World, s.Written)
			fmt.Fprintf(rw, "voxelvault_index_dropped_total{world=%q} %d\n", st.World, s.Dropped)
		}
	})
	mux.HandleFunc("/v1/status", obsSrv.StatusHandler())
	mux.HandleFunc("/v1/saves", obsSrv.WSHandler())

	if envBool("VC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			dirty := w.Store().Dirty()
			rw.Header().Set("Content-Type", "application/json")
			if err := w.CleanUp(); err != nil {
				rw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": w.CurrentTick(), "error": err.Error()})
				return
			}
			if err := w.SaveServer(); err != nil {
				rw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": w.CurrentTick(), "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": w.CurrentTick(), "chunks": dirty})
		})
	} else {
		logger.Printf("admin endpoints disabled (VC_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("VC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
	}

	start = time.Now()
	dirty := w.Store().Dirty()
	if err := w.Close(); err != nil {
		logger.Printf("world close: %v", err)
	}
	logger.Printf("saved %d chunks (%s each) in %s", dirty,
		humanize.Bytes(uint64(w.Store().Geo.ChunkVolume()+20)), time.Since(start).Round(time.Millisecond))
}

func worldConfig(t tuning.Config, logger *log.Logger) world.Config {
	return world.Config{
		DataDir: t.DataDir,
		Geometry: store.Geometry{
			ChunkBits: t.ChunkBits,
			Width:     t.RenderWidth,
			Height:    t.RenderHeight,
			LODLevels: t.LODLevels,
			Origin:    t.Origin,
		},
		Seed:            t.Seed,
		Spawn:           mgl32.Vec3(t.Spawn),
		GenerateMissing: t.GenerateMissing,
		Generator: gen.Layered{
			GroundY:               t.Terrain.GroundY,
			DirtDepth:             t.Terrain.DirtDepth,
			Air:                   t.Terrain.Air,
			Dirt:                  t.Terrain.Dirt,
			Stone:                 t.Terrain.Stone,
			SprinkleStonePermille: t.Terrain.SprinkleStonePermille,
		},
		TickRateHz: t.TickRateHz,
		Logger:     logger,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
