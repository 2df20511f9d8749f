package migration

import (
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// File is one versioned migration pair
type File struct {
	Version uint
	Name    string
	Up      string
	Down    string
}

// List returns the migrations found in sourceFS ordered by version. Every up
// file must have a matching down file.
func List(sourceFS fs.FS) ([]File, error) {
	entries, err := fs.ReadDir(sourceFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*File)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		var direction string
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			direction = "up"
		case strings.HasSuffix(name, ".down.sql"):
			direction = "down"
		default:
			continue
		}

		base := strings.TrimSuffix(strings.TrimSuffix(name, ".up.sql"), ".down.sql")
		prefix, label, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %q has no version prefix", name)
		}
		version, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("migration %q has an invalid version: %w", name, err)
		}

		f, ok := byVersion[uint(version)]
		if !ok {
			f = &File{Version: uint(version), Name: label}
			byVersion[uint(version)] = f
		}
		if f.Name != label {
			return nil, fmt.Errorf("migration version %d is used by %q and %q", version, f.Name, label)
		}
		if direction == "up" {
			f.Up = name
		} else {
			f.Down = name
		}
	}

	files := make([]File, 0, len(byVersion))
	for _, f := range byVersion {
		if f.Up == "" || f.Down == "" {
			return nil, fmt.Errorf("migration %d_%s is missing its up or down file", f.Version, f.Name)
		}
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
