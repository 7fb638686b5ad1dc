// Package reassembly implements the receiver-side file reconstruction
// described in spec.md §4.6: one scratch file and bitmap per in-flight
// file name, filled in as chunks arrive in any order, then published
// atomically once every chunk has been seen and the whole-file CRC32
// checks out.
package reassembly

import (
	"os"

	"github.com/blindftp/blindftp/bitset"
)

// receiving is the bookkeeping record for one file currently being
// reassembled. It owns a scratch file under the engine's scratch
// directory; publish copies it into place rather than moving it.
type receiving struct {
	name string

	scratch     *os.File
	scratchPath string
	bits        *bitset.BitSet

	fileSize  uint64
	fileMtime uint64
	crc32     int32

	sessionID  int32
	correlation string
}

func (r *receiving) close() {
	if r.scratch != nil {
		r.scratch.Close()
	}
	if r.scratchPath != "" {
		os.Remove(r.scratchPath)
	}
}

// metadataMatches reports whether a newly arrived chunk describes the
// same logical file as this in-flight record (spec.md §4.6's supersede
// rule fires whenever any of these disagree).
func (r *receiving) metadataMatches(fileSize, fileMtime uint64, crc32 int32, chunkCount int32) bool {
	return r.fileSize == fileSize && r.fileMtime == fileMtime && r.crc32 == crc32 && r.bits.Len() == int(chunkCount)
}
