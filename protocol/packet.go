package protocol

// Packet is implemented by FileChunk, Heartbeat, and Delete: the tagged
// variant Decode produces, letting the receive loop switch on concrete
// type instead of branching on a raw Kind (spec.md §9's "dynamic
// dispatch on packet kind" redesign note).
type Packet interface {
	packetKind() Kind
}

// FileChunk carries one payload slice of a file, self-describing enough
// (file_size, file_mtime, crc32, chunk_count) to be processed in
// isolation, per spec.md §1's stateless-wire requirement.
type FileChunk struct {
	Name       string
	Data       []byte
	Offset     uint64
	SessionID  int32
	SessionSeq int32
	ChunkIndex int32
	ChunkCount int32
	FileSize   uint64
	FileMtime  uint64
	CRC32      int32
}

func (FileChunk) packetKind() Kind { return KindFileChunk }

// Heartbeat carries sender liveness information. Per spec.md §3, the
// header's session_seq field is repurposed to hold the inter-beat delay
// rather than a running count; chunk_index instead holds the heartbeat's
// own monotonic sequence number, since chunk_index/chunk_count carry no
// file-chunking meaning for this kind (see DESIGN.md's Open Question
// decision on this field repurposing).
type Heartbeat struct {
	SessionID int32
	Seq       int32
	DelayMs   int32
	Payload   string
}

func (Heartbeat) packetKind() Kind { return KindHeartbeat }

// Delete names a destination-relative path the receiver should remove
// (a file, or an empty directory — never a non-empty directory).
type Delete struct {
	Path string
}

func (Delete) packetKind() Kind { return KindDelete }
