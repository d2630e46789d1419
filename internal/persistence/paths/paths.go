// Package paths maps world entities to files under the data directory.
//
//	<data>/worlds/<world>/world.dat
//	<data>/worlds/<world>/server.dat
//	<data>/worlds/<world>/chunks/lod<lod>/<id>.chunk
//	<data>/worlds/<world>/structures/<name>.struct
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrNoWorldName  = errors.New("world name not set")
	ErrBadWorldName = errors.New("invalid world name")
)

type Layout struct {
	DataDir string
}

// ValidName rejects names that would escape the worlds directory.
func ValidName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNoWorldName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrBadWorldName, name)
	}
	return nil
}

func (l Layout) WorldDir(world string) (string, error) {
	if err := ValidName(world); err != nil {
		return "", err
	}
	return filepath.Join(l.DataDir, "worlds", world), nil
}

func (l Layout) WorldMeta(world string) (string, error) {
	dir, err := l.WorldDir(world)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "world.dat"), nil
}

func (l Layout) Server(world string) (string, error) {
	dir, err := l.WorldDir(world)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "server.dat"), nil
}

func (l Layout) Chunk(world string, lod int32, id int) (string, error) {
	dir, err := l.WorldDir(world)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chunks", "lod"+strconv.Itoa(int(lod)), strconv.Itoa(id)+".chunk"), nil
}

func (l Layout) Structure(world, name string) (string, error) {
	dir, err := l.WorldDir(world)
	if err != nil {
		return "", err
	}
	if err := ValidName(name); err != nil {
		return "", fmt.Errorf("structure: %w", err)
	}
	return filepath.Join(dir, "structures", name+".struct"), nil
}

// JournalDir and IndexDB hold the ambient save journal and sqlite index.
func (l Layout) JournalDir(world string) (string, error) {
	dir, err := l.WorldDir(world)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal"), nil
}

func (l Layout) IndexDB(world string) (string, error) {
	dir, err := l.WorldDir(world)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index", "saves.sqlite"), nil
}
