package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"voxelvault.ai/internal/persistence/paths"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldName := fs.String("world", "", "world name (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	kind := fs.String("kind", "", "save kind filter (chunk, server, world, structure)")
	key := fs.String("key", "", "file key filter (history)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "summary"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		p, err := paths.Layout{DataDir: *dataDir}.IndexDB(*worldName)
		if err != nil {
			fmt.Fprintln(os.Stderr, "missing -world or -db:", err)
			os.Exit(2)
		}
		path = p
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()
	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "summary":
		rows, err := db.Query(`SELECT kind,COUNT(*),COALESCE(SUM(bytes),0),COALESCE(MAX(tick),0) FROM files GROUP BY kind ORDER BY kind`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Kind     string `json:"kind"`
				Files    int    `json:"files"`
				Bytes    int64  `json:"bytes"`
				Size     string `json:"size"`
				LastTick int64  `json:"last_tick"`
			}
			if err := rows.Scan(&r.Kind, &r.Files, &r.Bytes, &r.LastTick); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.Size = humanize.Bytes(uint64(r.Bytes))
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "files":
		query := `SELECT kind,key,path,bytes,digest,tick,saved_at FROM files ORDER BY saved_at DESC LIMIT ?`
		qargs := []any{*limit}
		if k := strings.TrimSpace(*kind); k != "" {
			query = `SELECT kind,key,path,bytes,digest,tick,saved_at FROM files WHERE kind=? ORDER BY saved_at DESC LIMIT ?`
			qargs = []any{k, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Kind    string `json:"kind"`
				Key     string `json:"key"`
				Path    string `json:"path"`
				Bytes   int64  `json:"bytes"`
				Digest  string `json:"digest"`
				Tick    int64  `json:"tick"`
				SavedAt string `json:"saved_at"`
			}
			if err := rows.Scan(&r.Kind, &r.Key, &r.Path, &r.Bytes, &r.Digest, &r.Tick, &r.SavedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "history":
		if strings.TrimSpace(*kind) == "" || strings.TrimSpace(*key) == "" {
			fmt.Fprintln(os.Stderr, "history needs -kind and -key")
			os.Exit(2)
		}
		rows, err := db.Query(`SELECT seq,bytes,digest,tick,saved_at FROM saves WHERE kind=? AND key=? ORDER BY seq DESC LIMIT ?`,
			strings.TrimSpace(*kind), strings.TrimSpace(*key), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Seq     int64  `json:"seq"`
				Bytes   int64  `json:"bytes"`
				Digest  string `json:"digest"`
				Tick    int64  `json:"tick"`
				SavedAt string `json:"saved_at"`
			}
			if err := rows.Scan(&r.Seq, &r.Bytes, &r.Digest, &r.Tick, &r.SavedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-kind K] [-key K] summary|files|history")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
