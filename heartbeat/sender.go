// Package heartbeat implements the liveness datagrams described in
// spec.md §4.8: a periodic emitter on the sender side, and a loss
// analyzer plus an overdue-heartbeat watchdog on the receiver side.
package heartbeat

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/blindftp/blindftp/logger"
	"github.com/blindftp/blindftp/protocol"
)

// Sender periodically transmits Heartbeat datagrams on conn, grounded on
// kxps.krps's Start()-spawns-a-sampling-goroutine shape.
type Sender struct {
	conn      net.PacketConn
	addr      net.Addr
	sessionID int32
	delay     time.Duration

	mu  sync.Mutex
	seq int32
}

// NewSender builds a heartbeat emitter for one session. sessionID should
// be stable for the lifetime of one sync/send run.
func NewSender(conn net.PacketConn, addr net.Addr, sessionID int32, delay time.Duration) *Sender {
	return &Sender{conn: conn, addr: addr, sessionID: sessionID, delay: delay}
}

// Start runs the emission loop until ctx is cancelled.
func (s *Sender) Start(ctx context.Context, lctx logger.Context) {
	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.beat(); err != nil {
				logger.W(lctx, "heartbeat send failed, err is", err)
			}
		}
	}
}

func (s *Sender) beat() error {
	s.mu.Lock()
	seq := s.seq
	s.seq++
	s.mu.Unlock()

	hb := protocol.Heartbeat{
		SessionID: s.sessionID,
		Seq:       seq,
		DelayMs:   int32(s.delay / time.Millisecond),
	}
	buf, err := protocol.EncodeHeartbeat(hb)
	if err != nil {
		return err
	}
	_, err = s.conn.WriteTo(buf, s.addr)
	return err
}
