package plog

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ja7ad/spsim/pkg/types"
)

// Process is the directory of one worker.
type Process struct {
	PID int
	Dir string
}

// Metadata is the metadata.yaml document. It is first written with only
// Begin set so an aborted worker still leaves a trace.
type Metadata struct {
	Begin      time.Time   `yaml:"begin"`
	End        time.Time   `yaml:"end,omitempty"`
	OSPid      int         `yaml:"os_pid,omitempty"`
	Nice       int         `yaml:"nice"`
	CPUSeconds float64     `yaml:"cpu_seconds"`
	PeakRSS    types.Bytes `yaml:"peak_rss_bytes"`
	ExitCode   int         `yaml:"exit_code"`
	Status     int         `yaml:"status"`
	Detail     string      `yaml:"detail,omitempty"`
}

func (p *Process) Path(name string) string { return filepath.Join(p.Dir, name) }

// LogPath is where the worker's stderr is captured.
func (p *Process) LogPath() string { return p.Path("worker.log") }

// SaveConfig writes the combination the worker ran.
func (p *Process) SaveConfig(c any) error {
	return writeYAML(p.Path("config.yaml"), c)
}

func (p *Process) SaveMetadata(m Metadata) error {
	return writeYAML(p.Path("metadata.yaml"), m)
}

// SaveRaw writes msdu_times.csv with one row per delivered MSDU.
func (p *Process) SaveRaw(generated, departed []int64) error {
	if len(generated) != len(departed) {
		return ErrShortRaw
	}
	f, err := os.Create(p.Path("msdu_times.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	if err := w.Write([]string{"generation_ns", "departure_ns"}); err != nil {
		return err
	}
	for i := range generated {
		if err := w.Write([]string{
			strconv.FormatInt(generated[i], 10),
			strconv.FormatInt(departed[i], 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
