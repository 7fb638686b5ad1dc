// Package receiver drives the one-way receive side of blindftp: bind a
// UDP socket, decode incoming datagrams, and dispatch each to the
// reassembly engine or the heartbeat analyzer. Per spec.md §1's
// unidirectional requirement, nothing here ever writes back to the wire.
package receiver

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/blindftp/blindftp/bferrors"
	"github.com/blindftp/blindftp/heartbeat"
	"github.com/blindftp/blindftp/logger"
	"github.com/blindftp/blindftp/protocol"
	"github.com/blindftp/blindftp/reassembly"
)

// Config carries every receiver-side tunable from spec.md §6's
// configuration surface.
type Config struct {
	ListenAddr       string
	DestRoot         string
	ScratchDir       string
	RcvBufBytes      int
	HeartbeatTimeout time.Duration
}

// Stats exposes read-only counters for the metrics package to poll.
type Stats struct {
	PacketsReceived int64
	BytesReceived   int64
	DecodeErrors    int64
}

// Receiver owns the UDP socket and the per-run reassembly/heartbeat
// state. It is built once per run and is not reused across runs.
type Receiver struct {
	conn     *net.UDPConn
	engine   *reassembly.Engine
	analyzer *heartbeat.Analyzer
	watchdog *heartbeat.Watchdog
	hooks    ReceiveHooks

	stats Stats
}

// ReceiveHooks lets callers observe per-datagram outcomes (for metrics)
// without the receiver importing the metrics package.
type ReceiveHooks struct {
	OnDecodeError func(err error)
	OnHeartbeat   func(lost int32, newSession bool)
}

// New binds the receive socket and wires the reassembly engine. If
// cfg.HeartbeatTimeout is positive, a watchdog is attached automatically
// using onOverdue as its escalation callback.
func New(cfg Config, reassemblyHooks reassembly.Hooks, hooks ReceiveHooks, onOverdue func(elapsed time.Duration, level int)) (*Receiver, error) {
	conn, err := bind(cfg.ListenAddr, cfg.RcvBufBytes)
	if err != nil {
		return nil, bferrors.NewIOError("bind", cfg.ListenAddr, err)
	}

	r := &Receiver{
		conn:     conn,
		engine:   reassembly.New(cfg.DestRoot, cfg.ScratchDir, reassemblyHooks),
		analyzer: heartbeat.NewAnalyzer(),
		hooks:    hooks,
	}
	if cfg.HeartbeatTimeout > 0 {
		r.watchdog = heartbeat.NewWatchdog(cfg.HeartbeatTimeout, onOverdue)
	}
	return r, nil
}

// Close releases the receive socket.
func (r *Receiver) Close() error {
	return r.conn.Close()
}

// Analyzer exposes the heartbeat loss analyzer for metrics polling.
func (r *Receiver) Analyzer() *heartbeat.Analyzer { return r.analyzer }

// Stats returns a snapshot of the receive counters.
func (r *Receiver) Stats() Stats { return r.stats }

// Run drives the receive loop until ctx is cancelled or the socket is
// closed. Per spec.md §4.2, a malformed datagram or a processing error
// is logged and the loop continues — nothing here ever terminates the
// run on bad input.
func (r *Receiver) Run(ctx context.Context, lctx logger.Context) error {
	if r.watchdog != nil {
		stop := make(chan struct{})
		go r.watchdog.Start(lctx, stop)
		go func() {
			<-ctx.Done()
			close(stop)
		}()
	}
	go func() {
		<-ctx.Done()
		// wake a ReadFrom blocked with no traffic so the loop sees ctx.
		r.conn.SetReadDeadline(time.Now())
	}()

	buf := make([]byte, protocol.MaxDatagram)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.W(lctx, "udp read failed, err is", err)
			continue
		}

		r.stats.PacketsReceived++
		r.stats.BytesReceived += int64(n)

		datagram := make([]byte, n)
		copy(datagram, buf[:n])

		pkt, err := protocol.Decode(datagram)
		if err != nil {
			r.stats.DecodeErrors++
			logger.W(lctx, "dropping malformed datagram, err is", err)
			if r.hooks.OnDecodeError != nil {
				r.hooks.OnDecodeError(err)
			}
			continue
		}

		r.dispatch(lctx, pkt)
	}
}

func (r *Receiver) dispatch(lctx logger.Context, pkt protocol.Packet) {
	switch p := pkt.(type) {
	case protocol.FileChunk:
		if err := r.engine.HandleChunk(p); err != nil {
			logger.W(lctx, "chunk handling failed for", p.Name, "err is", err)
		}
	case protocol.Heartbeat:
		if r.watchdog != nil {
			r.watchdog.Touch()
		}
		lost, newSession := r.analyzer.Observe(p)
		if r.hooks.OnHeartbeat != nil {
			r.hooks.OnHeartbeat(lost, newSession)
		}
		if lost > 0 {
			logger.W(lctx, "heartbeat loss detected, lost", lost, "datagrams")
		}
	case protocol.Delete:
		if err := r.engine.HandleDelete(p); err != nil {
			logger.W(lctx, "delete handling failed for", p.Path, "err is", err)
		}
	}
}
