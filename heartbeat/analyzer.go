package heartbeat

import (
	"sync"

	"github.com/blindftp/blindftp/protocol"
)

// Analyzer tracks per-session heartbeat sequence numbers on the receiver
// side and reports loss, per spec.md §4.8: lost = new_seq - last_seq - 1.
// The very first heartbeat ever observed is an unavoidably ambiguous
// restart-or-startup case and always reports zero loss. A session_id
// change seen after that is not ambiguous: spec.md §4.8 calls for a
// clean restart (seq 0) to report no loss, but a session change
// presenting a nonzero seq means heartbeats from the new session were
// already missed, and that gap is reported as loss.
type Analyzer struct {
	mu sync.Mutex

	haveSession bool
	sessionID   int32
	lastSeq     int32

	received int64
	lost     int64
}

// NewAnalyzer returns an analyzer with no session observed yet.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Observe records one heartbeat, returning the number of heartbeats lost
// since the previous observation and whether this observation started a
// new session. First contact always reports zero loss; a later session
// change reports zero loss only when it restarts at seq 0, otherwise the
// new session's own seq is reported as the count of heartbeats missed
// before this one arrived.
func (a *Analyzer) Observe(hb protocol.Heartbeat) (lost int32, newSession bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.received++

	if !a.haveSession {
		a.haveSession = true
		a.sessionID = hb.SessionID
		a.lastSeq = hb.Seq
		return 0, true
	}

	if hb.SessionID != a.sessionID {
		a.sessionID = hb.SessionID
		a.lastSeq = hb.Seq
		if hb.Seq == 0 {
			return 0, true
		}
		a.lost += int64(hb.Seq)
		return hb.Seq, true
	}

	gap := hb.Seq - a.lastSeq - 1
	if gap < 0 {
		// out-of-order or duplicate datagram, not loss.
		gap = 0
	}
	a.lastSeq = hb.Seq
	a.lost += int64(gap)
	return gap, false
}

// Stats reports the current session id and cumulative counters.
func (a *Analyzer) Stats() (sessionID int32, received, lost int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID, a.received, a.lost
}
