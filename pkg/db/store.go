// Package db is the result store of a run: five tables keyed by process id,
// kept in memory and flushed to CSV, and optionally to an XLSX workbook and a
// SQLite database. A Store has a single writer and no locking.
package db

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ja7ad/spsim/pkg/stat"
	"github.com/ja7ad/spsim/pkg/study"
)

// Table names. The CSV file of a table is its name plus ".csv".
const (
	ConfigTable     = "config_table"
	MCSTable        = "mcs_table"
	LatencyTable    = "msdu_latency"
	ThroughputTable = "throughput_table"
	StatusTable     = "status_table"
)

// KeyColumn heads the first column of every table.
const KeyColumn = "pid"

// Table is a snapshot of one result table. Rows are ordered by process id and
// start with it.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Sink persists table snapshots into dir.
type Sink interface {
	Name() string
	Save(dir string, tables []Table) error
}

type table struct {
	name   string
	header []string
	rows   [][]string // by pid, nil until written
}

// Store holds the results of one run of n combinations.
type Store struct {
	n       int
	written int
	tables  []*table
	sinks   []Sink
}

// New returns a store for process ids [0, n). Finalize saves to CSV and then
// to every extra sink.
func New(n int, sinks ...Sink) *Store {
	mk := func(name string, cols ...string) *table {
		return &table{
			name:   name,
			header: append([]string{KeyColumn}, cols...),
			rows:   make([][]string, n),
		}
	}
	s := &Store{n: n, sinks: sinks}
	s.tables = []*table{
		mk(ConfigTable, study.Columns...),
		mk(MCSTable, "mcs"),
		mk(LatencyTable, stat.Columns...),
		mk(ThroughputTable, "throughput", "lost", "backlog"),
		mk(StatusTable, "status", "detail"),
	}
	return s
}

// Len is the number of expected process ids.
func (s *Store) Len() int { return s.n }

// Written is the number of distinct process ids stored.
func (s *Store) Written() int { return s.written }

// Has reports whether pid has been written.
func (s *Store) Has(pid int) bool {
	return pid >= 0 && pid < s.n && s.tables[0].rows[pid] != nil
}

// Write stores r under r.ProcessID. Fields a result marks invalid become
// empty cells.
func (s *Store) Write(r study.Result) error {
	pid := r.ProcessID
	if pid < 0 || pid >= s.n {
		return fmt.Errorf("%w: %d (n=%d)", ErrUnknownProcess, pid, s.n)
	}
	if s.Has(pid) {
		return fmt.Errorf("%w: %d", ErrDuplicate, pid)
	}
	key := strconv.Itoa(pid)

	mcs := ""
	if r.MCS != nil {
		mcs = formatFloat(*r.MCS)
	}

	latency := make([]string, len(stat.Columns))
	if r.Latency != nil {
		for i, v := range r.Latency.Values() {
			latency[i] = formatFloat(v)
		}
	}

	// lost and backlog only mean something when the combination was simulated
	thr := []string{"", "", ""}
	if r.Throughput != nil {
		thr[0] = formatFloat(*r.Throughput)
		thr[1], thr[2] = strconv.Itoa(r.Lost), strconv.Itoa(r.Backlog)
	}

	cells := [][]string{
		r.Combination.Record(),
		{mcs},
		latency,
		thr,
		{strconv.Itoa(int(r.Status.Code())), r.Status.Detail},
	}
	for i, t := range s.tables {
		t.rows[pid] = append([]string{key}, cells[i]...)
	}
	s.written++
	return nil
}

// Tables returns a snapshot of the written rows of every table.
func (s *Store) Tables() []Table {
	out := make([]Table, 0, len(s.tables))
	for _, t := range s.tables {
		tb := Table{Name: t.name, Header: t.header}
		for _, row := range t.rows {
			if row != nil {
				tb.Rows = append(tb.Rows, row)
			}
		}
		out = append(out, tb)
	}
	return out
}

// Checkpoint writes the CSV tables only.
func (s *Store) Checkpoint(dir string) error {
	return CSV{}.Save(dir, s.Tables())
}

// Finalize writes the CSV tables and every extra sink.
func (s *Store) Finalize(dir string) error {
	tables := s.Tables()
	if err := (CSV{}).Save(dir, tables); err != nil {
		return err
	}
	for _, sink := range s.sinks {
		if err := sink.Save(dir, tables); err != nil {
			return fmt.Errorf("db: %s sink: %w", sink.Name(), err)
		}
	}
	return nil
}

// Path returns the CSV path of table name under dir.
func Path(dir, name string) string { return filepath.Join(dir, name+".csv") }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
