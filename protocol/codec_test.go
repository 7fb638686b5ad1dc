package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestFileChunk_RoundTrip(t *testing.T) {
	deadbeef := uint32(0xDEADBEEF)
	original := FileChunk{
		Name:       "docs/a.txt",
		Data:       []byte("hello world"),
		Offset:     100,
		SessionID:  1234,
		SessionSeq: 5,
		ChunkIndex: 2,
		ChunkCount: 4,
		FileSize:   200000,
		FileMtime:  1700000000,
		CRC32:      int32(deadbeef),
	}

	buf, err := EncodeFileChunk(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	fc, ok := decoded.(FileChunk)
	if !ok {
		t.Fatalf("expected FileChunk, got %T", decoded)
	}

	if fc.Name != original.Name {
		t.Errorf("name mismatch: want %q got %q", original.Name, fc.Name)
	}
	if !bytes.Equal(fc.Data, original.Data) {
		t.Errorf("data mismatch")
	}
	if fc.Offset != original.Offset || fc.SessionID != original.SessionID ||
		fc.SessionSeq != original.SessionSeq || fc.ChunkIndex != original.ChunkIndex ||
		fc.ChunkCount != original.ChunkCount || fc.FileSize != original.FileSize ||
		fc.FileMtime != original.FileMtime || fc.CRC32 != original.CRC32 {
		t.Errorf("field mismatch: want %+v got %+v", original, fc)
	}
}

func TestHeartbeat_RoundTrip(t *testing.T) {
	original := Heartbeat{
		SessionID: 42,
		Seq:       7,
		DelayMs:   10000,
		Payload:   "alive",
	}

	buf, err := EncodeHeartbeat(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	hb, ok := decoded.(Heartbeat)
	if !ok {
		t.Fatalf("expected Heartbeat, got %T", decoded)
	}
	if hb != original {
		t.Errorf("heartbeat mismatch: want %+v got %+v", original, hb)
	}
}

func TestDelete_RoundTrip(t *testing.T) {
	original := Delete{Path: "old/report.csv"}

	buf, err := EncodeDelete(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	d, ok := decoded.(Delete)
	if !ok {
		t.Fatalf("expected Delete, got %T", decoded)
	}
	if d.Path != original.Path {
		t.Errorf("path mismatch: want %q got %q", original.Path, d.Path)
	}
}

func TestEmptyFile_SingleZeroLengthChunk(t *testing.T) {
	fc := FileChunk{
		Name:       "empty.bin",
		Data:       nil,
		Offset:     0,
		ChunkIndex: 0,
		ChunkCount: 1,
		FileSize:   0,
	}
	buf, err := EncodeFileChunk(fc)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	got := decoded.(FileChunk)
	if len(got.Data) != 0 {
		t.Errorf("expected zero-length payload, got %d bytes", len(got.Data))
	}
}

func TestDecode_RejectsShortHeader(t *testing.T) {
	_, err := Decode(make([]byte, HeaderSize-1))
	if err == nil {
		t.Fatalf("expected error for short header")
	}
}

func TestDecode_RejectsUnknownKind(t *testing.T) {
	fc := FileChunk{Name: "a", ChunkIndex: 0, ChunkCount: 1, FileSize: 0}
	buf, _ := EncodeFileChunk(fc)
	buf[3] = 99 // corrupt the low byte of the big-endian kind field
	if _, err := Decode(buf); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestDecode_RejectsOffsetOverflow(t *testing.T) {
	fc := FileChunk{
		Name:       "a",
		Data:       []byte("toolong"),
		Offset:     10,
		ChunkIndex: 0,
		ChunkCount: 1,
		FileSize:   12, // 10 + 7 > 12
	}
	buf, err := EncodeFileChunk(fc)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := Decode(buf); err == nil {
		t.Fatalf("expected offset-overflow error")
	}
}

func TestNameLength_BoundaryAtMax(t *testing.T) {
	name := strings.Repeat("a", MaxNameLen)
	fc := FileChunk{Name: name, ChunkIndex: 0, ChunkCount: 1, FileSize: 0}
	if _, err := EncodeFileChunk(fc); err != nil {
		t.Fatalf("expected 1024-byte name accepted, got %v", err)
	}

	tooLong := strings.Repeat("a", MaxNameLen+1)
	fc2 := FileChunk{Name: tooLong, ChunkIndex: 0, ChunkCount: 1, FileSize: 0}
	if _, err := EncodeFileChunk(fc2); err == nil {
		t.Fatalf("expected 1025-byte name rejected")
	}
}

func TestValidatePath_RejectsForbiddenNames(t *testing.T) {
	cases := []string{"../escape", "/etc/x", "a/../b", "x.tmp", "C:\\windows"}
	for _, c := range cases {
		if err := ValidatePath(c); err == nil {
			t.Errorf("expected %q to be rejected", c)
		}
	}
}

func TestValidatePath_AcceptsOrdinaryNames(t *testing.T) {
	cases := []string{"a.txt", "dir/sub/file.dat", "no-extension"}
	for _, c := range cases {
		if err := ValidatePath(c); err != nil {
			t.Errorf("expected %q to be accepted, got %v", c, err)
		}
	}
}
