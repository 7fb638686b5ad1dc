// The blindftp crcutil package provides streaming IEEE CRC32 computation
// over a file or arbitrary reader, shared by the sender (file fingerprint
// for the packet header) and the receiver (publish-time integrity check).
package crcutil

import (
	"hash/crc32"
	"io"
	"os"
)

// blockSize matches the publish-time commit block size from spec.md §4.3.
const blockSize = 16 * 1024

var ieeeTable = crc32.MakeTable(crc32.IEEE)

// StreamReader computes the IEEE CRC32 of everything remaining in r,
// reading in blockSize chunks so it never holds the whole file in memory.
func StreamReader(r io.Reader) (uint32, error) {
	h := crc32.New(ieeeTable)
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// StreamFile opens path and computes its IEEE CRC32.
func StreamFile(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return StreamReader(f)
}

// Writer wraps an io.Writer, feeding everything written through it into a
// running CRC32, for use during publish-time commit (spec.md §4.3 step 2).
type Writer struct {
	w io.Writer
	h uint32
	t *crc32.Table
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, t: ieeeTable}
}

func (c *Writer) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.h = crc32.Update(c.h, c.t, p[:n])
	}
	return n, err
}

func (c *Writer) Sum32() uint32 {
	return c.h
}
