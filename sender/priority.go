package sender

import "golang.org/x/sys/unix"

// RaisePriority sets this process's niceness to nice, an absolute value
// rather than a delta; a value below the current niceness raises its
// scheduling priority. It mirrors original_source's process-priority
// hint applied before a large synchronization pass so the sender isn't
// starved by unrelated work on the box pushing data into the diode.
// Errors are non-fatal: plenty of deployments run the sender without the
// privilege required to renice, and the transfer works fine without it.
func RaisePriority(nice int) error {
	pid := unix.Getpid()
	return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
}
