package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"voxelvault.ai/internal/persistence/indexdb"
	"voxelvault.ai/internal/persistence/paths"
	"voxelvault.ai/internal/persistence/session"
)

type saveIndex interface {
	session.Sink
	Close() error
	Stats() indexdb.Stats
}

// openSaveIndex picks the save index backend. VC_INDEX_BACKEND overrides the
// tuning switch; only sqlite is built in.
func openSaveIndex(layout paths.Layout, world string, enabled bool, logger *log.Logger) (saveIndex, error) {
	if !enabled {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		logger.Printf("save index disabled (VC_INDEX_BACKEND=%s)", backend)
		return nil, nil
	case "sqlite":
		dbPath, err := layout.IndexDB(world)
		if err != nil {
			return nil, err
		}
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported VC_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
