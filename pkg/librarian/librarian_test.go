package librarian

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ja7ad/spsim/pkg/db"
	"github.com/ja7ad/spsim/pkg/metrics"
	"github.com/ja7ad/spsim/pkg/study"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type started map[int]bool

func (s started) Started(pid int) bool { return s[pid] }

func result(pid int) study.Result {
	c := study.Combination{ProcessID: pid, MSDULength: 1500, AllowedBER: 1e-4}.WithDefaults()
	return study.Result{ProcessID: pid, Combination: c, Status: study.Success()}
}

func TestRunComplete(t *testing.T) {
	const n = 5
	store := db.New(n)
	results := make(chan study.Result, n)
	// out of order on purpose
	for _, pid := range []int{3, 0, 4, 1, 2} {
		results <- result(pid)
	}

	l := New(store, Options{Metrics: metrics.New(n)})
	require.NoError(t, l.Run(context.Background(), results))
	assert.Equal(t, n, l.Received())
	assert.Equal(t, n, store.Written())
}

func TestRunDropsDuplicates(t *testing.T) {
	store := db.New(2)
	results := make(chan study.Result, 4)
	results <- result(0)
	results <- result(0)
	results <- result(9)
	results <- result(1)

	l := New(store, Options{})
	require.NoError(t, l.Run(context.Background(), results))
	assert.Equal(t, 2, l.Received())
}

func TestRunCheckpoints(t *testing.T) {
	dir := t.TempDir()
	store := db.New(3)
	results := make(chan study.Result, 3)
	results <- result(1)
	results <- result(0)

	l := New(store, Options{Dir: dir, CheckpointEvery: 2, Timeout: 50 * time.Millisecond})
	err := l.Run(context.Background(), results)
	require.ErrorIs(t, err, ErrIncomplete)

	// the checkpoint after the second result is on disk
	b, err := os.ReadFile(db.Path(dir, db.StatusTable))
	require.NoError(t, err)
	assert.Equal(t, "pid,status,detail\n0,0,\n1,0,\n", string(b))
}

func TestRunIncomplete(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		store := db.New(4)
		results := make(chan study.Result, 4)
		results <- result(0)
		results <- study.Failed(study.Combination{ProcessID: 1}, errors.New("crashed"))

		l := New(store, Options{Timeout: 20 * time.Millisecond, Progress: started{0: true, 1: true, 2: true}})
		err := l.Run(context.Background(), results)

		var inc *IncompleteError
		require.ErrorAs(t, err, &inc)
		assert.ErrorIs(t, err, ErrIncomplete)
		t.Logf("%v", err)
		assert.Equal(t, "timeout", inc.Cause)
		assert.Equal(t, 2, inc.Received)
		assert.Equal(t, 4, inc.Expected)
		// the failed worker is stored, so it is not missing
		assert.Equal(t, []int{3}, inc.Missing.NotStarted)
		assert.Equal(t, []int{2}, inc.Missing.NotFinished)
		assert.Equal(t, 2, inc.Missing.Len())
	})

	t.Run("closed", func(t *testing.T) {
		store := db.New(2)
		results := make(chan study.Result, 1)
		results <- result(1)
		close(results)

		err := New(store, Options{}).Run(context.Background(), results)
		var inc *IncompleteError
		require.ErrorAs(t, err, &inc)
		assert.Equal(t, "channel closed", inc.Cause)
		assert.Empty(t, inc.Missing.NotStarted)
		assert.Equal(t, []int{0}, inc.Missing.NotFinished)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := New(db.New(1), Options{}).Run(ctx, make(chan study.Result))
		var inc *IncompleteError
		require.ErrorAs(t, err, &inc)
		assert.Equal(t, "cancelled", inc.Cause)
	})
}
