package sender

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blindftp/blindftp/logger"
	"github.com/blindftp/blindftp/protocol"
)

type staticContext struct{}

func (staticContext) Cid() int { return 1 }

func collectDatagrams(t *testing.T, conn *net.UDPConn, want int, timeout time.Duration) []protocol.Packet {
	t.Helper()
	var out []protocol.Packet
	buf := make([]byte, protocol.MaxDatagram)
	deadline := time.Now().Add(timeout)
	for len(out) < want && time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, err := conn.Read(buf)
		if err != nil {
			continue
		}
		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		out = append(out, pkt)
	}
	return out
}

func TestSendFile_ProducesDecodableChunks(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	data := bytes.Repeat([]byte("x"), chunkPayloadSize("payload.bin")+1234)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := New(Config{TargetAddr: server.LocalAddr().String(), RateKbps: 1 << 20})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	defer s.Close()

	if err := s.SendFile(path, "payload.bin"); err != nil {
		t.Fatalf("send file: %v", err)
	}

	pkts := collectDatagrams(t, server, 2, 2*time.Second)
	if len(pkts) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(pkts))
	}
	total := 0
	for _, p := range pkts {
		fc, ok := p.(protocol.FileChunk)
		if !ok {
			t.Fatalf("expected FileChunk, got %T", p)
		}
		total += len(fc.Data)
	}
	if total != len(data) {
		t.Errorf("want %d total bytes reassembled, got %d", len(data), total)
	}
}

func TestRunSync_SendsNewFileUntilRedundancyMet(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := New(Config{
		TargetAddr:        server.LocalAddr().String(),
		RootPath:          root,
		SyncFilePath:      filepath.Join(t.TempDir(), "sync.xml"),
		RateKbps:          1 << 20,
		Pause:             10 * time.Millisecond,
		MinFileRedundancy: 2,
		LoopCount:         3,
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sent := 0
	hooks := SyncHooks{OnFileSent: func(path string, nbSend int) { sent++ }}
	if err := s.RunSync(ctx, staticContext{}, hooks); err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if sent != 3 {
		t.Errorf("want 3 sends across 3 passes (NbSend 1,2,3 all <= redundancy+1 boundary), got %d", sent)
	}
}

var _ = logger.Context(staticContext{})
