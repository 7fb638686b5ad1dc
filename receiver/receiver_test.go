package receiver

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blindftp/blindftp/crcutil"
	"github.com/blindftp/blindftp/protocol"
	"github.com/blindftp/blindftp/reassembly"
)

type staticContext struct{}

func (staticContext) Cid() int { return 1 }

func TestReceiver_ReceivesAndPublishesFile(t *testing.T) {
	destRoot := t.TempDir()
	scratchDir := t.TempDir()

	r, err := New(Config{
		ListenAddr: "127.0.0.1:0",
		DestRoot:   destRoot,
		ScratchDir: scratchDir,
	}, reassembly.Hooks{}, ReceiveHooks{}, nil)
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, staticContext{}) }()

	client, err := net.Dial("udp", r.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	data := []byte("hello over the diode")
	crc, err := crcutil.StreamReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("crc: %v", err)
	}
	fc := protocol.FileChunk{
		Name:       "note.txt",
		Data:       data,
		Offset:     0,
		ChunkIndex: 0,
		ChunkCount: 1,
		FileSize:   uint64(len(data)),
		FileMtime:  1700000000,
		CRC32:      int32(crc),
	}
	buf, err := protocol.EncodeFileChunk(fc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := client.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(destRoot, "note.txt")); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	got, err := os.ReadFile(filepath.Join(destRoot, "note.txt"))
	if err != nil {
		t.Fatalf("expected published file, stat err: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content mismatch: got %q", got)
	}

	cancel()
	<-done
}
