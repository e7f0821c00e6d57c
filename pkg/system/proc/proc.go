//go:build linux

package proc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ja7ad/spsim/pkg/types"
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE).
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}

// Exists reports whether a given PID currently exists in /proc.
func Exists(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

// ReadProcStat parses /proc/<pid>/stat and returns the user and system CPU
// jiffies. comm (2nd field) is in parens and may contain spaces, so fields
// are counted from the last ") ".
func ReadProcStat(pid int) (utime, stime uint64, err error) {
	if pid <= 0 {
		return 0, 0, ErrBadPID
	}
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, 0, err
	}
	line := strings.TrimSpace(string(b))
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return 0, 0, ErrNoStat
	}
	fields := strings.Fields(line[i+2:])

	// utime and stime are the 14th and 15th fields overall.
	if len(fields) < 13 {
		return 0, 0, ErrShortStat
	}
	if utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: utime: %w", ErrNoStat, err)
	}
	if stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: stime: %w", ErrNoStat, err)
	}
	return utime, stime, nil
}

// CPUSeconds is the user plus system CPU time of pid so far.
func CPUSeconds(pid int) (float64, error) {
	ut, st, err := ReadProcStat(pid)
	if err != nil {
		return 0, err
	}
	return float64(ut+st) / float64(ClockTicks()), nil
}

// ReadProcRSS returns the current resident set size of pid. It prefers
// smaps_rollup and falls back to statm's resident page count.
func ReadProcRSS(pid int) (types.Bytes, error) {
	if pid <= 0 {
		return 0, ErrBadPID
	}
	if kb, ok := scanKB(fmt.Sprintf("/proc/%d/smaps_rollup", pid), "Rss:"); ok {
		return types.Bytes(kb * 1024), nil
	}
	if b, err := os.ReadFile(fmt.Sprintf("/proc/%d/statm", pid)); err == nil {
		fs := strings.Fields(string(b))
		if len(fs) >= 2 {
			pages, _ := strconv.ParseUint(fs[1], 10, 64)
			return types.Bytes(pages * uint64(PageSize())), nil
		}
	}
	return 0, ErrNoRSS
}

// ReadPeakRSS returns the high water mark of the resident set (VmHWM) of
// pid, or the current RSS when the kernel does not report it.
func ReadPeakRSS(pid int) (types.Bytes, error) {
	if pid <= 0 {
		return 0, ErrBadPID
	}
	if kb, ok := scanKB(fmt.Sprintf("/proc/%d/status", pid), "VmHWM:"); ok {
		return types.Bytes(kb * 1024), nil
	}
	return ReadProcRSS(pid)
}

// scanKB finds "<key> <n> kB" in a /proc file.
func scanKB(path, key string) (uint64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, key) {
			continue
		}
		fs := strings.Fields(line)
		if len(fs) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseUint(fs[1], 10, 64)
		return kb, err == nil
	}
	return 0, false
}
