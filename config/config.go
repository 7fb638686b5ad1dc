// Package config centralizes blindftp's defaults and the surface-level
// validation that must happen before any socket is opened or any
// transfer starts.
package config

import (
	"time"

	"github.com/blindftp/blindftp/bferrors"
	"github.com/blindftp/blindftp/protocol"
)

// Defaults mirror original_source/bftp_utils.py's module-level constants.
const (
	DefaultPort              = protocol.DefaultPort
	DefaultRateKbps          = 8000
	DefaultPause             = 300 * time.Second
	DefaultOfflineRetention  = 7 * 24 * time.Hour
	DefaultMinFileRedundancy = 5
	DefaultHeartbeatDelay    = 10 * time.Second
	DefaultHeartbeatTimeout  = 60 * time.Second
	DefaultRcvBufBytes       = 4 << 20
)

// Mode selects which of blindftp's four run modes a process performs.
// Exactly one must be chosen; spec.md's CLI surface treats selecting
// zero or more than one as a configuration error, not a runtime one.
type Mode int

const (
	ModeUnset Mode = iota
	ModeSendFile
	ModeSync
	ModeStrictSync
	ModeReceive
)

// Config is the fully-resolved set of options for one blindftp run,
// populated by cmd/blindftp's flag parsing.
type Config struct {
	Mode Mode

	// Shared
	Addr string
	Port int

	// Sender
	RootPath          string
	SinglePath        string
	SyncFilePath      string
	Resume            bool
	RateKbps          int
	Pause             time.Duration
	MinFileRedundancy int
	OfflineRetention  time.Duration
	HeartbeatDelay    time.Duration
	LoopCount         int
	Nice              int

	// Receiver
	DestRoot        string
	ScratchDir      string
	RcvBufBytes     int
	HeartbeatTimeout time.Duration

	// Observability
	Debug       bool
	MetricsAddr string
}

// Validate enforces the CLI-level invariants from spec.md §6: exactly
// one mode, and the paths each mode actually needs are non-empty.
func (c Config) Validate() error {
	if c.Mode == ModeUnset {
		return bferrors.NewConfigError("no run mode selected: choose one of send-file, sync, strict-sync, receive")
	}
	if c.Addr == "" {
		return bferrors.NewConfigError("address is required")
	}

	switch c.Mode {
	case ModeSendFile:
		if c.SinglePath == "" {
			return bferrors.NewConfigError("send-file mode requires a file path")
		}
	case ModeSync, ModeStrictSync:
		if c.RootPath == "" {
			return bferrors.NewConfigError("sync mode requires a root directory")
		}
		if c.SyncFilePath == "" {
			return bferrors.NewConfigError("sync mode requires a reference tree file path")
		}
	case ModeReceive:
		if c.DestRoot == "" {
			return bferrors.NewConfigError("receive mode requires a destination directory")
		}
	}
	return nil
}
