package reassembly

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/blindftp/blindftp/bferrors"
	"github.com/blindftp/blindftp/bitset"
	"github.com/blindftp/blindftp/crcutil"
	"github.com/blindftp/blindftp/protocol"
)

// Hooks lets callers (the receiver's metrics wiring) observe engine
// outcomes without the engine importing the metrics package directly.
// Any field left nil is simply not called.
type Hooks struct {
	OnPublished        func(name string, size uint64)
	OnIntegrityFailure func(name string)
	OnSuperseded       func(name string)
	OnSkippedExisting  func(name string)
	// OnPublishFailure reports a non-integrity publish error (mkdir,
	// create, rename, ...) that can no longer be returned to a caller
	// now that publication runs off the receive goroutine.
	OnPublishFailure func(name string, err error)
}

// Engine reassembles incoming FileChunk datagrams into complete files
// under destRoot, buffering partial files under scratchDir. It holds one
// receiving record per file name currently in flight; spec.md §4.6
// requires no cross-file coordination, so one mutex over the map is
// enough even though a production deployment moves many files at once.
type Engine struct {
	destRoot   string
	scratchDir string
	hooks      Hooks

	mu         sync.Mutex
	inflight   map[string]*receiving
	publishing map[string]struct{}
}

// New returns an engine that publishes into destRoot using scratchDir
// for partial files. Publish copies a scratch file into a temporary file
// beside its destination and renames that copy into place, so scratchDir
// need not share destRoot's filesystem.
func New(destRoot, scratchDir string, hooks Hooks) *Engine {
	return &Engine{
		destRoot:   destRoot,
		scratchDir: scratchDir,
		hooks:      hooks,
		inflight:   make(map[string]*receiving),
		publishing: make(map[string]struct{}),
	}
}

// HandleChunk applies one decoded FileChunk, per spec.md §4.6: skip if
// the destination already matches, supersede if the declared metadata
// changed mid-transfer, otherwise write into the scratch file and kick
// off publication once every chunk has arrived. Publication itself runs
// on a separate goroutine (see publishAsync) so committing one finished
// file never delays receiving datagrams for any other file.
func (e *Engine) HandleChunk(fc protocol.FileChunk) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.publishing[fc.Name]; busy {
		// A prior completion of this same name is still being published;
		// drop the chunk rather than race a second writer onto the same
		// destination path. Redundant re-emission means it is not lost.
		return nil
	}

	r, ok := e.inflight[fc.Name]
	if ok && !r.metadataMatches(fc.FileSize, fc.FileMtime, fc.CRC32, fc.ChunkCount) {
		if e.hooks.OnSuperseded != nil {
			e.hooks.OnSuperseded(fc.Name)
		}
		r.close()
		delete(e.inflight, fc.Name)
		ok = false
	}

	if !ok {
		if e.destinationMatches(fc) {
			if e.hooks.OnSkippedExisting != nil {
				e.hooks.OnSkippedExisting(fc.Name)
			}
			return nil
		}
		rec, err := e.begin(fc)
		if err != nil {
			return err
		}
		e.inflight[fc.Name] = rec
		r = rec
	}

	if _, err := r.scratch.WriteAt(fc.Data, int64(fc.Offset)); err != nil {
		return bferrors.NewIOError("write-chunk", r.scratchPath, err)
	}
	r.bits.Set(int(fc.ChunkIndex), true)

	if !r.bits.Complete() {
		return nil
	}

	delete(e.inflight, fc.Name)
	e.publishing[fc.Name] = struct{}{}
	go e.publishAsync(r)
	return nil
}

// publishAsync runs publish off the caller's goroutine and reports a
// non-integrity failure through OnPublishFailure, since there is no
// longer a synchronous caller to return the error to.
func (e *Engine) publishAsync(r *receiving) {
	defer r.close()
	err := e.publish(r)

	e.mu.Lock()
	delete(e.publishing, r.name)
	e.mu.Unlock()

	if err == nil {
		return
	}
	if _, isIntegrity := err.(*bferrors.IntegrityError); isIntegrity {
		return
	}
	if e.hooks.OnPublishFailure != nil {
		e.hooks.OnPublishFailure(r.name, err)
	}
}

// destinationMatches reports whether destRoot/name already exists with
// the declared size and mtime, implementing the skip-on-match rule so a
// file re-broadcast after the receiver already has it costs nothing
// beyond a stat call.
func (e *Engine) destinationMatches(fc protocol.FileChunk) bool {
	destPath, err := e.resolve(fc.Name)
	if err != nil {
		return false
	}
	info, err := os.Stat(destPath)
	if err != nil {
		return false
	}
	return uint64(info.Size()) == fc.FileSize && uint64(info.ModTime().Unix()) == fc.FileMtime
}

func (e *Engine) resolve(name string) (string, error) {
	if err := protocol.ValidatePath(name); err != nil {
		return "", err
	}
	return filepath.Join(e.destRoot, filepath.FromSlash(name)), nil
}

func (e *Engine) begin(fc protocol.FileChunk) (*receiving, error) {
	if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return nil, bferrors.NewIOError("mkdir-scratch", e.scratchDir, err)
	}
	id := xid.New()
	scratchPath := filepath.Join(e.scratchDir, id.String()+".part")
	f, err := os.Create(scratchPath)
	if err != nil {
		return nil, bferrors.NewIOError("create-scratch", scratchPath, err)
	}
	if fc.FileSize > 0 {
		if err := f.Truncate(int64(fc.FileSize)); err != nil {
			f.Close()
			os.Remove(scratchPath)
			return nil, bferrors.NewIOError("truncate-scratch", scratchPath, err)
		}
	}
	return &receiving{
		name:        fc.Name,
		scratch:     f,
		scratchPath: scratchPath,
		bits:        bitset.New(int(fc.ChunkCount)),
		fileSize:    fc.FileSize,
		fileMtime:   fc.FileMtime,
		crc32:       fc.CRC32,
		sessionID:   fc.SessionID,
		correlation: id.String(),
	}, nil
}

// publish streams the scratch file into its final destination, verifying
// size and CRC32 along the way, then sets the declared mtime. The
// scratch file is removed by the caller's deferred close regardless of
// outcome; a failed publish leaves no partial file at the destination.
func (e *Engine) publish(r *receiving) error {
	destPath, err := e.resolve(r.name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return bferrors.NewIOError("mkdir-dest", filepath.Dir(destPath), err)
	}

	if _, err := r.scratch.Seek(0, io.SeekStart); err != nil {
		return bferrors.NewIOError("seek-scratch", r.scratchPath, err)
	}

	tmpDest := destPath + ".recv"
	out, err := os.Create(tmpDest)
	if err != nil {
		return bferrors.NewIOError("create-dest", tmpDest, err)
	}
	cw := crcutil.NewWriter(out)
	written, err := io.CopyBuffer(cw, struct{ io.Reader }{r.scratch}, make([]byte, 16*1024))
	closeErr := out.Close()
	if err != nil {
		os.Remove(tmpDest)
		return bferrors.NewIOError("publish-copy", tmpDest, err)
	}
	if closeErr != nil {
		os.Remove(tmpDest)
		return bferrors.NewIOError("publish-close", tmpDest, closeErr)
	}

	gotSize := uint64(written)
	gotCRC := int32(cw.Sum32())
	if gotSize != r.fileSize || gotCRC != r.crc32 {
		os.Remove(tmpDest)
		if e.hooks.OnIntegrityFailure != nil {
			e.hooks.OnIntegrityFailure(r.name)
		}
		return &bferrors.IntegrityError{
			Path:        r.name,
			WantSize:    r.fileSize,
			GotSize:     gotSize,
			WantCRC32:   r.crc32,
			GotCRC32:    gotCRC,
			SizeMatched: gotSize == r.fileSize,
		}
	}

	mtime := time.Unix(int64(r.fileMtime), 0)
	if err := os.Chtimes(tmpDest, mtime, mtime); err != nil {
		os.Remove(tmpDest)
		return bferrors.NewIOError("set-mtime", tmpDest, err)
	}
	if err := os.Rename(tmpDest, destPath); err != nil {
		os.Remove(tmpDest)
		return bferrors.NewIOError("publish-rename", destPath, err)
	}

	if e.hooks.OnPublished != nil {
		e.hooks.OnPublished(r.name, gotSize)
	}
	return nil
}

// HandleDelete removes the named destination entry, per spec.md §4.1:
// a Delete only ever targets a file or an already-empty directory. A
// non-empty directory fails the underlying os.Remove and is ignored by
// the caller, never forced.
func (e *Engine) HandleDelete(d protocol.Delete) error {
	destPath, err := e.resolve(d.Path)
	if err != nil {
		return err
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return bferrors.NewIOError("delete", destPath, err)
	}
	return nil
}
