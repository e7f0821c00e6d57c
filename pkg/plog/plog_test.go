package plog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fixedLister []int

func (f fixedLister) List() ([]int, error) { return f, nil }

func TestAllocateRunID(t *testing.T) {
	cases := []struct {
		name     string
		existing []int
		want     int
	}{
		{"empty", nil, 0},
		{"dense", []int{0, 1, 2}, 3},
		{"gap", []int{0, 1, 3, 4}, 2},
		{"zero free", []int{1, 2}, 0},
		{"unsorted with dupes", []int{2, 0, 0, 1, 5}, 3},
		{"out of range ignored", []int{0, 12_000}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AllocateRunID(tc.existing)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAllocateRunID_Exhausted(t *testing.T) {
	all := make([]int, MaxRunID+1)
	for i := range all {
		all[i] = i
	}
	_, err := AllocateRunID(all)
	assert.ErrorIs(t, err, ErrRunDirectoryExhausted)

	// freeing one id makes it the only choice
	got, err := AllocateRunID(append(all[:17:17], all[18:]...))
	require.NoError(t, err)
	assert.Equal(t, 17, got)
}

func TestCreate_Sequential(t *testing.T) {
	root := filepath.Join(t.TempDir(), "log")
	l := DirLister{Root: root}

	a, err := Create(root, l)
	require.NoError(t, err)
	b, err := Create(root, l)
	require.NoError(t, err)

	assert.Equal(t, 0, a.ID)
	assert.Equal(t, 1, b.ID)
	assert.Equal(t, filepath.Join(root, "0001"), b.Dir)
	assert.NotEqual(t, a.UUID, b.UUID)

	require.NoError(t, os.RemoveAll(a.Dir))
	c, err := Create(root, l)
	require.NoError(t, err)
	assert.Equal(t, 0, c.ID, "freed id is reused")
}

func TestCreate_Exhausted(t *testing.T) {
	all := make(fixedLister, MaxRunID+1)
	for i := range all {
		all[i] = i
	}
	root := t.TempDir()
	_, err := Create(root, all)
	assert.ErrorIs(t, err, ErrRunDirectoryExhausted)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing created on exhaustion")
}

func TestDirLister(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"0000", "0003", "tmp", "12a"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "0002"), nil, 0o644))

	ids, err := DirLister{Root: root}.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 3}, ids)

	ids, err = DirLister{Root: filepath.Join(root, "missing")}.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProcess(t *testing.T) {
	run, err := Create(t.TempDir(), fixedLister{})
	require.NoError(t, err)

	p, err := run.Process(42)
	require.NoError(t, err)
	assert.Equal(t, "000000000042", filepath.Base(p.Dir))
	assert.Equal(t, filepath.Join(p.Dir, "worker.log"), p.LogPath())

	begin := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.SaveMetadata(Metadata{Begin: begin, Status: 0, CPUSeconds: 1.5}))

	b, err := os.ReadFile(p.Path("metadata.yaml"))
	require.NoError(t, err)
	var m Metadata
	require.NoError(t, yaml.Unmarshal(b, &m))
	assert.True(t, begin.Equal(m.Begin))
	assert.True(t, m.End.IsZero())
	assert.Equal(t, 1.5, m.CPUSeconds)

	require.NoError(t, p.SaveRaw([]int64{1, 2}, []int64{10, 20}))
	raw, err := os.ReadFile(p.Path("msdu_times.csv"))
	require.NoError(t, err)
	assert.Equal(t, "generation_ns,departure_ns\n1,10\n2,20\n", string(raw))

	assert.ErrorIs(t, p.SaveRaw([]int64{1}, nil), ErrShortRaw)
}

func TestRun_Manifest(t *testing.T) {
	run, err := Create(t.TempDir(), fixedLister{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, run.ID)

	require.NoError(t, run.SaveManifest(Manifest{Combinations: 4, Status: "running"}))
	b, err := os.ReadFile(run.Path("run.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "uuid: "+run.UUID)
	assert.Contains(t, string(b), "combinations: 4")
}
