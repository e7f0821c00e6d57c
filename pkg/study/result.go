package study

import (
	"time"

	"github.com/ja7ad/spsim/pkg/stat"
)

// Slot is a transmission opportunity on one worker's timeline, ns.
type Slot struct {
	Start    int64 `json:"start"`
	Duration int64 `json:"duration"`
}

func (s Slot) End() int64 { return s.Start + s.Duration }

// Result is what a worker reports for one combination. Nil numeric fields are
// invalid for this outcome and must be persisted as absent.
type Result struct {
	ProcessID   int           `json:"pid"`
	Combination Combination   `json:"config"`
	Status      Status        `json:"status"`
	MCS         *float64      `json:"mcs,omitempty"`
	Latency     *stat.Summary `json:"msdu_latency,omitempty"`
	Throughput  *float64      `json:"throughput,omitempty"`

	Lost    int `json:"lost"`
	Backlog int `json:"backlog"`

	// Raw times, ns, index-aligned. Only with StoreRaw.
	Generated []int64 `json:"generated,omitempty"`
	Departed  []int64 `json:"departed,omitempty"`

	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

// Failed builds the result reported for a worker that could not produce one.
func Failed(c Combination, err error) Result {
	now := time.Now()
	return Result{
		ProcessID:   c.ProcessID,
		Combination: c,
		Status:      Error(err.Error()),
		Begin:       now,
		End:         now,
	}
}
