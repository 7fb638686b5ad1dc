package receiver

import (
	"net"

	"github.com/higebu/netfd"
	"golang.org/x/sys/unix"
)

// bind opens the receiving UDP socket and, when rcvBufBytes is positive,
// raises SO_RCVBUF on the underlying file descriptor. The default kernel
// buffer is routinely too small for a diode receiver bursting at full
// line rate, so spec.md §4.2's "sized receive buffer" requirement is
// satisfied via netfd.GetFdFromConn plus a raw setsockopt rather than
// anything exposed on net.UDPConn itself.
func bind(addr string, rcvBufBytes int) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	if rcvBufBytes <= 0 {
		return conn, nil
	}
	if err := setRcvBuf(conn, rcvBufBytes); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func setRcvBuf(conn *net.UDPConn, bytes int) error {
	fd, err := netfd.GetFdFromConn(conn)
	if err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
}
