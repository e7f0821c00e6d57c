// Package proc samples the resource usage of worker processes on Linux.
//
// A Watcher polls /proc/<pid> while a worker runs and keeps the last CPU time
// and the highest resident set size it saw. Once the worker has been reaped,
// FromState reads the kernel's own accounting from the wait status, and
// Usage.Merge combines both views:
//
//	w := proc.Watch(ctx, cmd.Process.Pid, 50*time.Millisecond)
//	err := cmd.Wait()
//	u := w.Stop().Merge(proc.FromState(cmd.ProcessState))
//
// Sources
//
//   - CPU seconds: utime+stime of /proc/<pid>/stat divided by CLK_TCK, or the
//     user and system time of the wait status.
//   - Peak RSS: VmHWM of /proc/<pid>/status, else the current RSS from
//     smaps_rollup or statm, or ru_maxrss of the wait status.
//
// Only /proc is read, no privileges are needed.
package proc
