package logger

import (
	"encoding/binary"

	"github.com/rs/xid"
)

// SessionContext implements Context by wrapping an rs/xid unique id,
// giving every receiver/sender process invocation (and every
// receiving-file record) a correlation id that threads through log
// lines without colliding across restarts.
type SessionContext struct {
	id  xid.ID
	cid int
}

// NewSessionContext mints a fresh correlation id.
func NewSessionContext() *SessionContext {
	id := xid.New()
	return &SessionContext{
		id:  id,
		cid: int(binary.BigEndian.Uint32(id[:4])),
	}
}

// Cid satisfies the Context interface.
func (c *SessionContext) Cid() int {
	return c.cid
}

// String returns the human-readable xid, for inclusion in log messages
// that want the full correlation id rather than just its Cid() hash.
func (c *SessionContext) String() string {
	return c.id.String()
}
