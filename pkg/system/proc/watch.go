//go:build linux

package proc

import (
	"context"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/ja7ad/spsim/pkg/types"
)

// Usage is the accounting of one worker process.
type Usage struct {
	CPUSeconds float64     `json:"cpu_seconds" yaml:"cpu_seconds"`
	PeakRSS    types.Bytes `json:"peak_rss" yaml:"peak_rss"`
}

// Merge keeps the larger value of each field.
func (u Usage) Merge(o Usage) Usage {
	return Usage{
		CPUSeconds: max(u.CPUSeconds, o.CPUSeconds),
		PeakRSS:    max(u.PeakRSS, o.PeakRSS),
	}
}

// FromState reads the accounting of a reaped process. A nil state yields
// the zero Usage.
func FromState(ps *os.ProcessState) Usage {
	if ps == nil {
		return Usage{}
	}
	u := Usage{CPUSeconds: (ps.UserTime() + ps.SystemTime()).Seconds()}
	if ru, ok := ps.SysUsage().(*syscall.Rusage); ok && ru.Maxrss > 0 {
		// ru_maxrss is in kilobytes on Linux
		u.PeakRSS = types.Bytes(ru.Maxrss) * 1024
	}
	return u
}

// Watcher polls one process until stopped or until the process is gone.
type Watcher struct {
	pid    int
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	usage Usage
}

// Watch starts polling pid every interval. A non-positive interval means
// 100ms. The returned Watcher must be stopped.
func Watch(ctx context.Context, pid int, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{pid: pid, cancel: cancel, done: make(chan struct{})}
	w.sample()

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !w.sample() {
					return
				}
			}
		}
	}()
	return w
}

// sample reports false once the process can no longer be read.
func (w *Watcher) sample() bool {
	cpu, err := CPUSeconds(w.pid)
	if err != nil {
		return false
	}
	rss, err := ReadPeakRSS(w.pid)
	if err != nil {
		return false
	}
	w.mu.Lock()
	w.usage = w.usage.Merge(Usage{CPUSeconds: cpu, PeakRSS: rss})
	w.mu.Unlock()
	return true
}

// Usage returns what has been observed so far.
func (w *Watcher) Usage() Usage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.usage
}

// Stop ends polling and returns the observed usage. Stop is idempotent.
func (w *Watcher) Stop() Usage {
	w.cancel()
	<-w.done
	return w.Usage()
}
