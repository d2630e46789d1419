package paths

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLayout_Deterministic(t *testing.T) {
	l := Layout{DataDir: "/data"}

	p, err := l.Chunk("alpha", 2, 517)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if want := filepath.Join("/data", "worlds", "alpha", "chunks", "lod2", "517.chunk"); p != want {
		t.Fatalf("chunk path: got %s want %s", p, want)
	}

	p, err = l.Server("alpha")
	if err != nil {
		t.Fatalf("Server: %v", err)
	}
	if want := filepath.Join("/data", "worlds", "alpha", "server.dat"); p != want {
		t.Fatalf("server path: got %s want %s", p, want)
	}
}

func TestLayout_RequiresName(t *testing.T) {
	l := Layout{DataDir: "/data"}
	if _, err := l.Server(""); !errors.Is(err, ErrNoWorldName) {
		t.Fatalf("expected ErrNoWorldName, got %v", err)
	}
	for _, bad := range []string{"..", "a/b", `a\b`} {
		if _, err := l.WorldMeta(bad); !errors.Is(err, ErrBadWorldName) {
			t.Fatalf("%q: expected ErrBadWorldName, got %v", bad, err)
		}
	}
	if _, err := l.Structure("alpha", "../x"); err == nil {
		t.Fatalf("expected structure name error")
	}
}
