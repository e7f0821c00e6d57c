// Package plog owns the on-disk layout of a run: the numbered run directory
// under the output root and one directory per process inside it.
package plog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MaxRunID is the largest run directory id.
const MaxRunID = 9999

// Lister reports the numeric run ids already present under an output root.
type Lister interface {
	List() ([]int, error)
}

// DirLister lists the all-digit directory names under Root. A missing root
// holds no runs.
type DirLister struct {
	Root string
}

func (d DirLister) List() ([]int, error) {
	entries, err := os.ReadDir(d.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		if !e.IsDir() || !allDigits(e.Name()) {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AllocateRunID returns the smallest id in [0, MaxRunID] absent from
// existing.
func AllocateRunID(existing []int) (int, error) {
	taken := slices.Clone(existing)
	slices.Sort(taken)
	taken = slices.Compact(taken)

	next := 0
	for _, id := range taken {
		if id < next {
			continue
		}
		if id > next {
			break
		}
		next++
	}
	if next > MaxRunID {
		return 0, fmt.Errorf("%w: all %d ids in use", ErrRunDirectoryExhausted, MaxRunID+1)
	}
	return next, nil
}

// Run is an allocated run directory.
type Run struct {
	ID      int
	Dir     string
	UUID    string
	Started time.Time
}

// Manifest is the run.yaml document.
type Manifest struct {
	UUID         string    `yaml:"uuid"`
	ID           int       `yaml:"id"`
	Started      time.Time `yaml:"started"`
	Finished     time.Time `yaml:"finished,omitempty"`
	Combinations int       `yaml:"combinations"`
	Workers      int       `yaml:"workers"`
	Nice         int       `yaml:"nice"`
	BER          string    `yaml:"ber"`
	Received     int       `yaml:"received"`
	Status       string    `yaml:"status"`
}

// Create allocates and creates the next run directory under root. The lister
// is queried once; a directory created concurrently by another run makes
// Create fail instead of sharing it.
func Create(root string, l Lister) (*Run, error) {
	existing, err := l.List()
	if err != nil {
		return nil, fmt.Errorf("plog: list %s: %w", root, err)
	}
	id, err := AllocateRunID(existing)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	dir := filepath.Join(root, fmt.Sprintf("%04d", id))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, err
	}
	return &Run{ID: id, Dir: dir, UUID: uuid.NewString(), Started: time.Now()}, nil
}

// Path joins name onto the run directory.
func (r *Run) Path(name string) string { return filepath.Join(r.Dir, name) }

// SaveConfig writes the full input set as config.yaml.
func (r *Run) SaveConfig(cfg any) error {
	return writeYAML(r.Path("config.yaml"), cfg)
}

// SaveManifest writes run.yaml. UUID, ID and Started are filled from r.
func (r *Run) SaveManifest(m Manifest) error {
	m.UUID, m.ID, m.Started = r.UUID, r.ID, r.Started
	return writeYAML(r.Path("run.yaml"), m)
}

// Process creates the directory of process pid.
func (r *Run) Process(pid int) (*Process, error) {
	dir := filepath.Join(r.Dir, fmt.Sprintf("%012d", pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Process{PID: pid, Dir: dir}, nil
}

func writeYAML(path string, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
