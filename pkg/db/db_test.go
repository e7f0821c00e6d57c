package db

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/ja7ad/spsim/pkg/stat"
	"github.com/ja7ad/spsim/pkg/study"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func results() []study.Result {
	mcs, thr := 12.0, 3.5
	a := study.Result{
		ProcessID:   0,
		Combination: study.Combination{ProcessID: 0, MSDULength: 1500, AllowedBER: 1e-4, EbN0: 6}.WithDefaults(),
		Status:      study.Success(),
		MCS:         &mcs,
		Latency:     &stat.Summary{Count: 4, Mean: 10, Min: 5, Max: 20},
		Throughput:  &thr,
		Lost:        1,
		Backlog:     2,
	}
	b := study.Result{
		ProcessID:   1,
		Combination: study.Combination{ProcessID: 1, MSDULength: 1500, AllowedBER: 1e-9, EbN0: 0}.WithDefaults(),
		Status:      study.EarlyExit("no scheme"),
	}
	return []study.Result{a, b}
}

func readCSV(t *testing.T, dir, name string) [][]string {
	t.Helper()
	f, err := os.Open(Path(dir, name))
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestStoreWrite(t *testing.T) {
	s := New(2)
	for _, r := range results() {
		require.NoError(t, s.Write(r))
	}
	assert.Equal(t, 2, s.Written())
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(2))

	t.Run("duplicate", func(t *testing.T) {
		err := s.Write(results()[0])
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.Equal(t, 2, s.Written())
	})

	t.Run("unknown process", func(t *testing.T) {
		r := results()[0]
		r.ProcessID = 7
		assert.ErrorIs(t, s.Write(r), ErrUnknownProcess)
		r.ProcessID = -1
		assert.ErrorIs(t, s.Write(r), ErrUnknownProcess)
	})

	t.Run("tables", func(t *testing.T) {
		tables := s.Tables()
		require.Len(t, tables, 5)
		names := make([]string, len(tables))
		for i, tb := range tables {
			names[i] = tb.Name
			assert.Equal(t, KeyColumn, tb.Header[0])
			require.Len(t, tb.Rows, 2, tb.Name)
			for i, row := range tb.Rows {
				assert.Len(t, row, len(tb.Header), tb.Name)
				assert.Equal(t, []string{"0", "1"}[i], row[0])
			}
		}
		assert.Equal(t, []string{ConfigTable, MCSTable, LatencyTable, ThroughputTable, StatusTable}, names)

		assert.Equal(t, []string{"1", ""}, tables[1].Rows[1])
		assert.Equal(t, []string{"0", "12"}, tables[1].Rows[0])
		assert.Equal(t, []string{"0", "3.5", "1", "2"}, tables[3].Rows[0])
		assert.Equal(t, []string{"1", "", "", ""}, tables[3].Rows[1], "nothing simulated")
		assert.Equal(t, []string{"0", "0", ""}, tables[4].Rows[0])
		assert.Equal(t, []string{"1", "1", "no scheme"}, tables[4].Rows[1])

		for _, cell := range tables[2].Rows[1][1:] {
			assert.Empty(t, cell)
		}
		assert.Equal(t, "4", tables[2].Rows[0][1])
	})
}

func TestStoreErrorRow(t *testing.T) {
	s := New(1)
	c := study.Combination{ProcessID: 0}.WithDefaults()
	require.NoError(t, s.Write(study.Failed(c, os.ErrDeadlineExceeded)))

	tables := s.Tables()
	assert.Equal(t, []string{"0", "", "", ""}, tables[3].Rows[0])
	assert.Equal(t, "-1", tables[4].Rows[0][1])
	assert.NotEmpty(t, tables[4].Rows[0][2])
}

func TestCheckpointWritesOnlyWrittenRows(t *testing.T) {
	dir := t.TempDir()
	s := New(3)
	require.NoError(t, s.Write(results()[1]))
	require.NoError(t, s.Checkpoint(dir))

	recs := readCSV(t, dir, StatusTable)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"pid", "status", "detail"}, recs[0])
	assert.Equal(t, "1", recs[1][0])

	require.NoError(t, s.Write(results()[0]))
	require.NoError(t, s.Checkpoint(dir))
	recs = readCSV(t, dir, StatusTable)
	require.Len(t, recs, 3)
	assert.Equal(t, "0", recs[1][0])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 5, "no temp files left behind")
}

func TestFinalizeXLSX(t *testing.T) {
	dir := t.TempDir()
	s := New(2, XLSX{})
	for _, r := range results() {
		require.NoError(t, s.Write(r))
	}
	require.NoError(t, s.Finalize(dir))

	f, err := excelize.OpenFile(filepath.Join(dir, XLSXFile))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ConfigTable, MCSTable, LatencyTable, ThroughputTable, StatusTable}, f.GetSheetList())

	rows, err := f.GetRows(StatusTable)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"pid", "status", "detail"}, rows[0])
	assert.Equal(t, []string{"1", "1", "no scheme"}, rows[2])

	v, err := f.GetCellValue(MCSTable, "B2")
	require.NoError(t, err)
	assert.Equal(t, "12", v)
}

func TestFinalizeSQLite(t *testing.T) {
	dir := t.TempDir()

	probe, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "probe.db"))
	require.NoError(t, err)
	if err := probe.Ping(); err != nil {
		probe.Close()
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	probe.Close()

	s := New(2, SQLite{})
	for _, r := range results() {
		require.NoError(t, s.Write(r))
	}
	require.NoError(t, s.Finalize(dir))
	// a second finalize upserts instead of failing on the key
	require.NoError(t, s.Finalize(dir))

	db, err := sql.Open("sqlite3", filepath.Join(dir, SQLiteFile))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "status_table"`).Scan(&count))
	assert.Equal(t, 2, count)

	var mcs sql.NullString
	require.NoError(t, db.QueryRow(`SELECT "mcs" FROM "mcs_table" WHERE "pid" = 1`).Scan(&mcs))
	assert.False(t, mcs.Valid)

	var detail string
	require.NoError(t, db.QueryRow(`SELECT "detail" FROM "status_table" WHERE "pid" = 1`).Scan(&detail))
	assert.Equal(t, "no scheme", detail)
}
