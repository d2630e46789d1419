package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"

	persistlog "voxelvault.ai/internal/persistence/log"
	"voxelvault.ai/internal/persistence/paths"
	"voxelvault.ai/internal/persistence/session"
	"voxelvault.ai/internal/sim/encoding"
	"voxelvault.ai/internal/sim/world/io/savecodec"
	"voxelvault.ai/internal/sim/world/terrain/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "chunk":
			chunkCmd(os.Args[2:])
			return
		case "server":
			serverCmd(os.Args[2:])
			return
		case "meta":
			metaCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, size := dirUsage(filepath.Join(base, e.Name()))
		fmt.Printf("%-24s %6d files %10s\n", e.Name(), files, humanize.Bytes(uint64(size)))
	}
}

func dirUsage(dir string) (files int, size int64) {
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size
}

func chunkCmd(args []string) {
	fs := flag.NewFlagSet("chunk", flag.ExitOnError)
	bits := fs.Int("bits", 4, "chunk bits the file was written with")
	rle := fs.Bool("rle", false, "include run-length encoded materials")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin chunk [-bits N] [-rle] <file.chunk>")
		os.Exit(2)
	}

	s := session.New[*store.Chunk]("chunk", savecodec.ChunkCodec{Bits: *bits})
	ch, ok, err := s.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "no such file:", fs.Arg(0))
		os.Exit(1)
	}

	counts := map[byte]int{}
	for _, m := range ch.Materials.Bytes() {
		counts[m]++
	}
	mats := make([]int, 0, len(counts))
	for m := range counts {
		mats = append(mats, int(m))
	}
	sort.Ints(mats)

	hist := make([]map[string]int, 0, len(mats))
	for _, m := range mats {
		hist = append(hist, map[string]int{"material": m, "voxels": counts[byte(m)]})
	}
	enc, runs, err := checkedRLE(ch.Materials.Bytes())
	if err != nil {
		fmt.Fprintln(os.Stderr, "rle:", err)
		os.Exit(1)
	}
	out := map[string]any{
		"chunk":     [3]int32{ch.X, ch.Y, ch.Z},
		"lod":       ch.LOD,
		"voxels":    ch.Materials.Len(),
		"runs":      runs,
		"materials": hist,
	}
	if *rle {
		out["rle"] = enc
	}
	printJSON(out)
}

// checkedRLE encodes materials and decodes the result again, so a printed
// encoding is known to expand back to the chunk.
func checkedRLE(materials []byte) (enc string, runs int, err error) {
	enc, runs = encoding.EncodeMaterialsRLE(materials)
	back, err := encoding.DecodeMaterialsRLE(enc, len(materials))
	if err != nil {
		return "", 0, err
	}
	if !bytes.Equal(back, materials) {
		return "", 0, fmt.Errorf("encoding does not round-trip")
	}
	return enc, runs, nil
}

func serverCmd(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldName := fs.String("world", "", "world name")
	_ = fs.Parse(args)

	path, err := paths.Layout{DataDir: *dataDir}.Server(*worldName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	srv, ok, err := session.New[savecodec.Server]("server", savecodec.ServerCodec{}).Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	printJSON(map[string]any{"world": *worldName, "saved": ok, "current_tick": srv.CurrentTick})
}

func metaCmd(args []string) {
	fs := flag.NewFlagSet("meta", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldName := fs.String("world", "", "world name")
	_ = fs.Parse(args)

	path, err := paths.Layout{DataDir: *dataDir}.WorldMeta(*worldName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	meta, ok, err := session.New[savecodec.WorldMeta]("world", savecodec.WorldMetaCodec{}).Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "no world metadata at", path)
		os.Exit(1)
	}
	printJSON(meta)
}

// journalCmd prints journal entries, oldest file first, filtered by kind.
func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldName := fs.String("world", "", "world name")
	kind := fs.String("kind", "", "only this save kind (chunk, server, world, structure)")
	limit := fs.Int("limit", 0, "stop after this many entries (0 = all)")
	_ = fs.Parse(args)

	dir, err := paths.Layout{DataDir: *dataDir}.JournalDir(*worldName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "glob:", err)
		os.Exit(1)
	}
	sort.Strings(files)

	n := 0
	for _, p := range files {
		err := readJournal(p, func(e persistlog.JournalEntry) bool {
			if *kind != "" && !strings.EqualFold(e.Kind, *kind) {
				return true
			}
			b, _ := json.Marshal(e)
			fmt.Println(string(b))
			n++
			return *limit <= 0 || n < *limit
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p, err)
			os.Exit(1)
		}
		if *limit > 0 && n >= *limit {
			return
		}
	}
}

func readJournal(path string, fn func(persistlog.JournalEntry) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e persistlog.JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if !fn(e) {
			return nil
		}
	}
	return sc.Err()
}
