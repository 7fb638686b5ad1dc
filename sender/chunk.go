package sender

import (
	"os"

	"github.com/blindftp/blindftp/crcutil"
	"github.com/blindftp/blindftp/protocol"
)

// chunkPayloadSize returns the largest payload that still fits a single
// FileChunk datagram for a file named relName: spec.md §4.1/§4.5 size
// every chunk to protocol.MaxDatagram minus the fixed header and the
// name tail, rather than a fixed size, so the name doesn't push the
// frame over MaxDatagram.
func chunkPayloadSize(relName string) int {
	return protocol.MaxDatagram - protocol.HeaderSize - len(relName)
}

// chunkCount returns how many chunkPayloadSize-sized pieces a file of
// the given size splits into; an empty file still produces one chunk
// (spec.md §8's empty-file boundary case).
func chunkCount(size int64, payloadSize int) int32 {
	if size == 0 {
		return 1
	}
	return int32((size + int64(payloadSize) - 1) / int64(payloadSize))
}

// buildChunks reads path and yields one FileChunk per call to emit, in
// index order, stamping every chunk with the same session/file metadata.
// cachedCRC, if non-nil, is used instead of re-streaming the whole file
// for its checksum (spec.md §4.5 step 1 / §4.7 step 9's "unless a cached
// CRC is supplied" cache).
func buildChunks(path, relName string, sessionID, sessionSeq int32, cachedCRC *uint32, emit func(protocol.FileChunk) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var crc uint32
	if cachedCRC != nil {
		crc = *cachedCRC
	} else {
		crc, err = crcutil.StreamFile(path)
		if err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	size := info.Size()
	payloadSize := chunkPayloadSize(relName)
	count := chunkCount(size, payloadSize)
	buf := make([]byte, payloadSize)

	for i := int32(0); i < count; i++ {
		offset := int64(i) * int64(payloadSize)
		want := payloadSize
		if remaining := size - offset; int64(want) > remaining {
			want = int(remaining)
		}
		n, err := f.ReadAt(buf[:want], offset)
		if err != nil && n == 0 {
			return err
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		fc := protocol.FileChunk{
			Name:       relName,
			Data:       data,
			Offset:     uint64(offset),
			SessionID:  sessionID,
			SessionSeq: sessionSeq,
			ChunkIndex: i,
			ChunkCount: count,
			FileSize:   uint64(size),
			FileMtime:  uint64(info.ModTime().Unix()),
			CRC32:      int32(crc),
		}
		if err := emit(fc); err != nil {
			return err
		}
	}
	return nil
}
