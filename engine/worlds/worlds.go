// Package worlds enumerates the Foundry worlds available under a data directory.
//
// Every call re-reads the filesystem; nothing is cached, so the result is
// always as fresh as the directory itself.
package worlds

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/pkg/errors"
)

const descriptorName = "world.json"

// World is one switchable world
type World struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type descriptor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Dir returns the directory holding the world directories, <dataPath>/Data/worlds
func Dir(dataPath string) string {
	return filepath.Join(dataPath, "Data", "worlds")
}

// ListWorlds lists every world directory with a readable world.json.
//
// A missing worlds directory yields an empty list and an error log line.
// Symlinked world directories are followed. Directories without world.json
// are skipped silently, broken descriptors (including json that is not an
// object) are skipped with an error log line. Order follows the directory listing.
func ListWorlds(dataPath string) []World {
	worldsDir := Dir(dataPath)
	entries, err := ioutil.ReadDir(worldsDir)
	if err != nil {
		if os.IsNotExist(err) {
			fslog.Errorf("Worlds directory not found: %s", worldsDir)
		} else {
			fslog.Errorf("Read worlds directory %s failed: %v", worldsDir, err)
		}
		return []World{}
	}

	worlds := make([]World, 0, len(entries))
	for _, entry := range entries {
		worldPath := filepath.Join(worldsDir, entry.Name())
		if !isDir(entry, worldPath) {
			continue
		}

		world, ok, err := readWorld(worldPath)
		if err != nil {
			fslog.Errorf("Error reading %s in %s: %v", descriptorName, worldPath, err)
			continue
		}
		if ok {
			worlds = append(worlds, world)
		}
	}
	return worlds
}

// isDir follows symlinks, ReadDir entries do not
func isDir(entry os.FileInfo, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Mode()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		fslog.Warnf("Skipping world link %s: %v", path, err)
		return false
	}
	return info.IsDir()
}

func readWorld(worldPath string) (World, bool, error) {
	data, err := ioutil.ReadFile(filepath.Join(worldPath, descriptorName))
	if err != nil {
		if os.IsNotExist(err) {
			return World{}, false, nil
		}
		return World{}, false, err
	}

	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return World{}, false, errors.New("parse: descriptor is not a json object")
	}
	var desc descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return World{}, false, errors.Wrap(err, "parse")
	}

	name := filepath.Base(worldPath)
	world := World{ID: desc.ID, Title: desc.Title}
	if world.ID == "" {
		world.ID = name
	}
	if world.Title == "" {
		world.Title = name
	}
	return world, true, nil
}

// Find returns the first world with the given id
func Find(worlds []World, id string) (World, bool) {
	for _, w := range worlds {
		if w.ID == id {
			return w, true
		}
	}
	return World{}, false
}

// Search returns up to limit worlds whose title contains query, case-insensitively.
// A limit <= 0 means no limit.
func Search(worlds []World, query string, limit int) []World {
	query = strings.ToLower(query)
	res := []World{}
	for _, w := range worlds {
		if limit > 0 && len(res) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(w.Title), query) {
			res = append(res, w)
		}
	}
	return res
}

// Catalog lists the worlds of one fixed data directory
type Catalog struct {
	DataPath string
}

// ListWorlds lists the worlds of the catalog's data directory
func (c Catalog) ListWorlds() []World {
	return ListWorlds(c.DataPath)
}
