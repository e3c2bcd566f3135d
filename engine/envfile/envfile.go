// Package envfile edits the world selection inside the flat KEY=value file
// the Foundry container reads at startup.
package envfile

import (
	"fmt"
	"io/ioutil"
	"os"
	"regexp"
	"strings"

	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/pkg/errors"
)

// WorldKey is the variable holding the selected world id
const WorldKey = "FOUNDRY_WORLD"

var worldLinePattern = regexp.MustCompile(`(?m)^` + WorldKey + `=([^\r\n]*)`)

// IOError is returned when the env file can not be read or written
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Cause returns the underlying error
func (e *IOError) Cause() error {
	return e.Err
}

func ioError(path, op string, err error) error {
	return &IOError{Path: path, Op: op, Err: err}
}

// SetWorld persists worldID as the selected world in the env file at path.
//
// The first FOUNDRY_WORLD line is rewritten in place and any later duplicates
// are dropped; every other line is kept byte-for-byte in its original order.
// Without such a line the assignment is appended. A missing file is created
// holding only the assignment. The read, rewrite and truncate all happen on
// one exclusively locked handle.
func SetWorld(path, worldID string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return ioError(path, "open", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return ioError(path, "lock", err)
	}
	defer unlockFile(f)

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return ioError(path, "read", err)
	}

	content := Replace(string(data), worldID)

	if _, err := f.Seek(0, 0); err != nil {
		return ioError(path, "seek", err)
	}
	if _, err := f.WriteString(content); err != nil {
		return ioError(path, "write", err)
	}
	if err := f.Truncate(int64(len(content))); err != nil {
		return ioError(path, "truncate", err)
	}
	if err := f.Sync(); err != nil {
		return ioError(path, "sync", err)
	}

	fslog.Infof("Updated %s with world: %s", path, worldID)
	return nil
}

// Replace returns content with the world assignment set to worldID
func Replace(content string, worldID string) string {
	assignment := WorldKey + "=" + worldID

	locs := worldLinePattern.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		trimmed := strings.TrimRight(content, " \t\r\n")
		if trimmed == "" {
			return assignment + "\n"
		}
		return trimmed + "\n" + assignment + "\n"
	}

	var sb strings.Builder
	sb.Grow(len(content) + len(assignment))
	last := 0
	for i, loc := range locs {
		sb.WriteString(content[last:loc[0]])
		last = loc[1]
		if i == 0 {
			sb.WriteString(assignment)
			continue
		}
		// drop the duplicate line together with its line break
		if strings.HasPrefix(content[last:], "\r\n") {
			last += 2
		} else if strings.HasPrefix(content[last:], "\n") {
			last++
		}
	}
	sb.WriteString(content[last:])
	return sb.String()
}

// GetWorld returns the currently selected world id in the env file at path
func GetWorld(path string) (worldID string, ok bool, err error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, ioError(path, "read", errors.WithStack(err))
	}

	m := worldLinePattern.FindStringSubmatch(string(data))
	if m == nil {
		return "", false, nil
	}
	return m[1], true, nil
}
