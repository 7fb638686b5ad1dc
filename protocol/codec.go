package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/blindftp/blindftp/bferrors"
)

// EncodeFileChunk packs a file-chunk datagram: fixed header, then the
// UTF-8 destination-relative name, then the payload bytes.
func EncodeFileChunk(p FileChunk) ([]byte, error) {
	nameBytes := []byte(p.Name)
	if len(nameBytes) > MaxNameLen {
		return nil, bferrors.NewMalformedFrame("name-too-long", fmt.Sprintf("%d bytes", len(nameBytes)))
	}

	h := Header{
		Kind:       KindFileChunk,
		NameLen:    int32(len(nameBytes)),
		DataLen:    uint64(len(p.Data)),
		Offset:     p.Offset,
		SessionID:  p.SessionID,
		SessionSeq: p.SessionSeq,
		ChunkIndex: p.ChunkIndex,
		ChunkCount: p.ChunkCount,
		FileSize:   p.FileSize,
		FileMtime:  p.FileMtime,
		CRC32:      p.CRC32,
	}

	buf, err := encodeFrame(h, nameBytes, p.Data)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeHeartbeat packs a heartbeat datagram. Per the repurposing
// documented on protocol.Heartbeat, chunk_index carries Seq and
// session_seq carries DelayMs; there is no name tail.
func EncodeHeartbeat(p Heartbeat) ([]byte, error) {
	payload := []byte(p.Payload)
	h := Header{
		Kind:       KindHeartbeat,
		NameLen:    0,
		DataLen:    uint64(len(payload)),
		SessionID:  p.SessionID,
		SessionSeq: p.DelayMs,
		ChunkIndex: p.Seq,
	}
	return encodeFrame(h, nil, payload)
}

// EncodeDelete packs a delete-notification datagram: the target path
// travels in the name tail, with no payload.
func EncodeDelete(p Delete) ([]byte, error) {
	nameBytes := []byte(p.Path)
	if len(nameBytes) > MaxNameLen {
		return nil, bferrors.NewMalformedFrame("name-too-long", fmt.Sprintf("%d bytes", len(nameBytes)))
	}
	h := Header{
		Kind:    KindDelete,
		NameLen: int32(len(nameBytes)),
		DataLen: 0,
	}
	return encodeFrame(h, nameBytes, nil)
}

func encodeFrame(h Header, name, data []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(HeaderSize + len(name) + len(data))

	fields := []interface{}{
		h.Kind, h.NameLen, h.DataLen, h.Offset, h.SessionID,
		h.SessionSeq, h.ChunkIndex, h.ChunkCount, h.FileSize,
		h.FileMtime, h.CRC32,
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.BigEndian, f); err != nil {
			return nil, bferrors.NewIOError("encode-header", "", err)
		}
	}
	buf.Write(name)
	buf.Write(data)

	if buf.Len() > MaxDatagram {
		return nil, bferrors.NewMalformedFrame("datagram-too-large", fmt.Sprintf("%d bytes", buf.Len()))
	}
	return buf.Bytes(), nil
}

// Decode parses a raw datagram into one of FileChunk, Heartbeat, or
// Delete, enforcing every invariant from spec.md §4.1 before returning.
func Decode(datagram []byte) (Packet, error) {
	if len(datagram) < HeaderSize {
		return nil, bferrors.NewMalformedFrame("short-header", fmt.Sprintf("%d bytes", len(datagram)))
	}

	r := bytes.NewReader(datagram[:HeaderSize])
	var h Header
	fields := []interface{}{
		&h.Kind, &h.NameLen, &h.DataLen, &h.Offset, &h.SessionID,
		&h.SessionSeq, &h.ChunkIndex, &h.ChunkCount, &h.FileSize,
		&h.FileMtime, &h.CRC32,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return nil, bferrors.NewMalformedFrame("short-header", err.Error())
		}
	}

	if !h.Kind.valid() {
		return nil, bferrors.NewMalformedFrame("unknown-kind", fmt.Sprintf("%d", h.Kind))
	}
	if h.NameLen < 0 || int(h.NameLen) > MaxNameLen {
		return nil, bferrors.NewMalformedFrame("name-too-long", fmt.Sprintf("%d", h.NameLen))
	}

	tail := datagram[HeaderSize:]
	if len(tail) < int(h.NameLen) {
		return nil, bferrors.NewMalformedFrame("length-mismatch", "name truncated")
	}
	nameBytes := tail[:h.NameLen]
	rest := tail[h.NameLen:]

	switch h.Kind {
	case KindFileChunk:
		return decodeFileChunk(h, nameBytes, rest)
	case KindHeartbeat:
		return decodeHeartbeat(h, nameBytes, rest)
	case KindDelete:
		return decodeDelete(h, nameBytes, rest)
	default:
		return nil, bferrors.NewMalformedFrame("unknown-kind", fmt.Sprintf("%d", h.Kind))
	}
}

func decodeFileChunk(h Header, nameBytes, rest []byte) (Packet, error) {
	if !utf8.Valid(nameBytes) {
		return nil, bferrors.NewMalformedFrame("bad-utf8", "file name")
	}
	name := string(nameBytes)
	if err := ValidatePath(name); err != nil {
		return nil, err
	}
	if uint64(len(rest)) != h.DataLen {
		return nil, bferrors.NewMalformedFrame("length-mismatch", fmt.Sprintf("declared %d, have %d", h.DataLen, len(rest)))
	}
	if h.Offset+h.DataLen > h.FileSize {
		return nil, bferrors.NewMalformedFrame("offset-overflow", fmt.Sprintf("offset=%d data_len=%d file_size=%d", h.Offset, h.DataLen, h.FileSize))
	}
	if h.ChunkCount <= 0 || h.ChunkIndex < 0 || h.ChunkIndex >= h.ChunkCount {
		return nil, bferrors.NewMalformedFrame("chunk-index-range", fmt.Sprintf("index=%d count=%d", h.ChunkIndex, h.ChunkCount))
	}

	data := make([]byte, len(rest))
	copy(data, rest)

	return FileChunk{
		Name:       name,
		Data:       data,
		Offset:     h.Offset,
		SessionID:  h.SessionID,
		SessionSeq: h.SessionSeq,
		ChunkIndex: h.ChunkIndex,
		ChunkCount: h.ChunkCount,
		FileSize:   h.FileSize,
		FileMtime:  h.FileMtime,
		CRC32:      h.CRC32,
	}, nil
}

func decodeHeartbeat(h Header, nameBytes, rest []byte) (Packet, error) {
	if len(nameBytes) != 0 {
		return nil, bferrors.NewMalformedFrame("length-mismatch", "heartbeat carries no name")
	}
	if uint64(len(rest)) != h.DataLen {
		return nil, bferrors.NewMalformedFrame("length-mismatch", fmt.Sprintf("declared %d, have %d", h.DataLen, len(rest)))
	}
	return Heartbeat{
		SessionID: h.SessionID,
		Seq:       h.ChunkIndex,
		DelayMs:   h.SessionSeq,
		Payload:   string(rest),
	}, nil
}

func decodeDelete(h Header, nameBytes, rest []byte) (Packet, error) {
	if len(nameBytes) == 0 {
		return nil, bferrors.NewMalformedFrame("forbidden-path", "empty name")
	}
	if !utf8.Valid(nameBytes) {
		return nil, bferrors.NewMalformedFrame("bad-utf8", "delete path")
	}
	path := string(nameBytes)
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if uint64(len(rest)) != h.DataLen {
		return nil, bferrors.NewMalformedFrame("length-mismatch", fmt.Sprintf("declared %d, have %d", h.DataLen, len(rest)))
	}
	return Delete{Path: path}, nil
}
