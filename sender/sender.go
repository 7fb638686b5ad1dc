// Package sender drives the transmit side of blindftp: one-shot single
// file sends and the continuous directory-synchronization loop described
// in spec.md §4.7, both built atop the rate-limited UDP wire codec.
package sender

import (
	"net"
	"time"

	"github.com/blindftp/blindftp/bferrors"
	"github.com/blindftp/blindftp/protocol"
	"github.com/blindftp/blindftp/ratelimit"
)

// Config carries every sender-side tunable named in spec.md §6.
type Config struct {
	RootPath          string
	TargetAddr        string
	SyncFilePath      string
	Resume            bool
	RateKbps          int
	Pause             time.Duration
	MinFileRedundancy int
	OfflineRetention  time.Duration
	HeartbeatDelay    time.Duration
	LoopCount         int // 0 means run until every file exceeds MinFileRedundancy sends
	SessionID         int32
	// PropagateDeletes selects "-S" (strict synchronize) over "-s":
	// when true, a file vanishing from the synchronized root announces
	// a Delete to the receiver; when false, the reference entry still
	// ages out locally but the receiver is never told to remove it.
	PropagateDeletes bool
}

// Sender owns the outbound UDP socket and the rate limiter shared by
// single-file sends and the synchronization loop.
type Sender struct {
	cfg     Config
	conn    net.Conn
	limiter *ratelimit.Limiter
	seq     int32
}

// New dials the target as a connected UDP socket: spec.md §1 forbids any
// return path, and net.Dial("udp", ...) never issues a handshake, it
// only fixes the destination address for subsequent Write calls.
func New(cfg Config) (*Sender, error) {
	conn, err := net.Dial("udp", cfg.TargetAddr)
	if err != nil {
		return nil, bferrors.NewIOError("dial", cfg.TargetAddr, err)
	}
	return &Sender{
		cfg:     cfg,
		conn:    conn,
		limiter: ratelimit.NewFromKbps(cfg.RateKbps),
	}, nil
}

// Close releases the outbound socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

func (s *Sender) nextSeq() int32 {
	v := s.seq
	s.seq++
	return v
}

// send rate-limits and writes one already-encoded datagram.
func (s *Sender) send(buf []byte) error {
	s.limiter.Enforce()
	n, err := s.conn.Write(buf)
	if err != nil {
		return bferrors.NewIOError("write", s.cfg.TargetAddr, err)
	}
	s.limiter.Account(n)
	return nil
}

// SendFile transmits one file standalone, outside the synchronization
// loop, for spec.md §4.5's "-e" single-file send mode. There is no
// reference-tree cache in this mode, so the CRC is always recomputed.
func (s *Sender) SendFile(path, relName string) error {
	return s.sendFileWithCRC(path, relName, nil)
}

// sendFileWithCRC is SendFile with an optional pre-computed CRC, letting
// the synchronization loop skip a full-file re-read on redundant resends
// of a file it has already checksummed (spec.md §4.7 step 9).
func (s *Sender) sendFileWithCRC(path, relName string, cachedCRC *uint32) error {
	return buildChunks(path, relName, s.cfg.SessionID, s.nextSeq(), cachedCRC, func(fc protocol.FileChunk) error {
		buf, err := protocol.EncodeFileChunk(fc)
		if err != nil {
			return err
		}
		return s.send(buf)
	})
}

// sendDelete announces that relName should be removed on the receiver.
func (s *Sender) sendDelete(relName string) error {
	buf, err := protocol.EncodeDelete(protocol.Delete{Path: relName})
	if err != nil {
		return err
	}
	return s.send(buf)
}
