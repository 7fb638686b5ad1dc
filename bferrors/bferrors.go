// The blindftp bferrors package provides the typed error taxonomy shared
// by the wire codec, the reassembly engine, and the synchronization loop:
//	MalformedFrame, for a datagram that violates a decode-time invariant.
//	IntegrityError, for a published file whose size or CRC32 does not match.
//	IOError, for filesystem or socket failures during scan/read/write/commit.
//	ConfigError, for surface-level CLI flag conflicts.
// @remark callers branch on kind with errors.As, per the propagation
// policy: MalformedFrame and per-datagram IOError are logged and
// skipped, IntegrityError discards the receiving record, ConfigError
// aborts before any transfer starts.
package bferrors

import "fmt"

// MalformedFrame reports a datagram that failed decode-time validation.
// Invariant names the specific rule that was violated (e.g. "short-header",
// "unknown-kind", "name-too-long", "bad-utf8", "forbidden-path",
// "offset-overflow", "length-mismatch").
type MalformedFrame struct {
	Invariant string
	Detail    string
}

func (e *MalformedFrame) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("malformed frame: %s", e.Invariant)
	}
	return fmt.Sprintf("malformed frame: %s: %s", e.Invariant, e.Detail)
}

func NewMalformedFrame(invariant, detail string) *MalformedFrame {
	return &MalformedFrame{Invariant: invariant, Detail: detail}
}

// IntegrityError reports a size or CRC32 mismatch discovered at publish time.
type IntegrityError struct {
	Path        string
	WantSize    uint64
	GotSize     uint64
	WantCRC32   int32
	GotCRC32    int32
	SizeMatched bool
}

func (e *IntegrityError) Error() string {
	if !e.SizeMatched {
		return fmt.Sprintf("integrity error on %q: size mismatch, want %d got %d", e.Path, e.WantSize, e.GotSize)
	}
	return fmt.Sprintf("integrity error on %q: crc32 mismatch, want %#x got %#x", e.Path, uint32(e.WantCRC32), uint32(e.GotCRC32))
}

// IOError wraps a filesystem or socket failure encountered during scan,
// chunk read, chunk write, or commit, retaining the underlying cause.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("io error during %s on %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// ConfigError reports a surface-level CLI option conflict, such as
// selecting zero or more than one of the mutually exclusive run modes.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Message)
}

func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}
