package sender

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/blindftp/blindftp/crcutil"
	"github.com/blindftp/blindftp/logger"
	"github.com/blindftp/blindftp/reftree"
)

// minTransmitDelay is the floor on how long a pass's transmit phase is
// allowed to run, per spec.md §4.7 step 9's
// "TransmitDelay = max(300s, now-scan_time)".
const minTransmitDelay = 300 * time.Second

// vanishedCountdownFloor is how far NbSend is allowed to run negative
// for a file that disappeared from disk before its reference entry is
// dropped entirely: spec.md §4.7 keeps re-announcing a Delete for a
// grace period in case the vanish was a transient hiccup, instead of
// pruning on the very first missed scan.
const vanishedCountdownFloor = -10

// SyncHooks lets callers (metrics, CLI progress output) observe one pass
// of the synchronization loop.
type SyncHooks struct {
	OnPassStart   func(diff reftree.Diff)
	OnFileSent    func(path string, nbSend int)
	OnFileDeleted func(path string)
	OnPassEnd     func()
}

// RunSync drives the continuous scan/diff/transmit loop from spec.md
// §4.7. It runs cfg.LoopCount passes, or, if LoopCount is 0, passes until
// every tracked file has been sent more than cfg.MinFileRedundancy times,
// sleeping cfg.Pause between passes, and returns when ctx is cancelled.
func (s *Sender) RunSync(ctx context.Context, lctx logger.Context, hooks SyncHooks) error {
	tree, err := reftree.Bootstrap(s.cfg.SyncFilePath, s.cfg.RootPath, s.cfg.Resume)
	if err != nil {
		return err
	}

	passes := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.runOnePass(tree, lctx, hooks); err != nil {
			logger.W(lctx, "synchronization pass failed, err is", err)
		}

		passes++
		if s.cfg.LoopCount > 0 && passes >= s.cfg.LoopCount {
			return nil
		}
		if s.cfg.LoopCount == 0 && tree.AllSent(s.cfg.MinFileRedundancy) {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.Pause):
		}
	}
}

func (s *Sender) runOnePass(tree *reftree.Tree, lctx logger.Context, hooks SyncHooks) error {
	scanStart := time.Now()
	disk, err := reftree.ScanDisk(s.cfg.RootPath)
	if err != nil {
		return err
	}
	diff := reftree.Compare(tree, disk)
	if hooks.OnPassStart != nil {
		hooks.OnPassStart(diff)
	}
	transmitDelay := minTransmitDelay
	if scanned := time.Since(scanStart); scanned > transmitDelay {
		transmitDelay = scanned
	}
	transmitDeadline := time.Now().Add(transmitDelay)

	now := time.Now().Unix()

	// Vanished files: clamp NbSend to -1 the pass a file is first
	// observed missing, then count down toward removal from there,
	// re-announcing the deletion on every pass while the grace period
	// lasts (spec.md §4.7 step 3).
	for _, path := range diff.OnlyRef {
		node := tree.GetFile(path)
		if node == nil {
			continue
		}
		if node.NbSend >= 0 {
			node.NbSend = -1
		} else {
			node.NbSend--
		}
		if s.cfg.PropagateDeletes {
			if err := s.sendDelete(path); err != nil {
				logger.W(lctx, "delete announce failed for", path, "err is", err)
			} else if hooks.OnFileDeleted != nil {
				hooks.OnFileDeleted(path)
			}
		}
		expired := s.cfg.OfflineRetention > 0 &&
			time.Since(time.Unix(node.LastView, 0)) > s.cfg.OfflineRetention
		if node.NbSend <= vanishedCountdownFloor || expired {
			tree.RemoveFile(path)
		}
	}
	tree.PruneEmptyDirs()

	// New and changed files reset redundancy tracking: either one needs
	// a fresh CRC and a full run of MinFileRedundancy re-transmissions.
	for _, path := range append(append([]string{}, diff.OnlyDisk...), diff.Different...) {
		diskNode := disk.GetFile(path)
		if diskNode == nil {
			continue
		}
		absPath := joinRoot(s.cfg.RootPath, path)
		crc, err := crcutil.StreamFile(absPath)
		if err != nil {
			logger.W(lctx, "crc computation failed for", path, "err is", err)
			continue
		}
		tree.InsertOrUpdateFile(path, func(f *reftree.FileNode) {
			f.Size = diskNode.Size
			f.Mtime = diskNode.Mtime
			f.CRC = crc
			f.NbSend = 0
			f.LastView = now
		})
	}

	for _, path := range diff.Same {
		if node := tree.GetFile(path); node != nil {
			node.LastView = now
		}
	}

	if err := reftree.WriteFile(tree, s.cfg.SyncFilePath); err != nil {
		logger.W(lctx, "checkpoint save failed, err is", err)
	}

	candidates := selectForTransmission(tree, s.cfg.MinFileRedundancy)
	for _, e := range candidates {
		if time.Now().After(transmitDeadline) {
			logger.W(lctx, "transmit delay exceeded, deferring remaining files to next pass")
			break
		}

		absPath := joinRoot(s.cfg.RootPath, e.Path)

		// Stability check: a file still being written when its turn to
		// transmit comes up is not sent on a stale CRC. Its reference
		// entry is reset instead, so the next pass's diff recomputes it
		// as changed (spec.md §4.7 step 9).
		info, statErr := os.Stat(absPath)
		stable := statErr == nil && info.Size() == e.Node.Size && info.ModTime().Unix() == e.Node.Mtime
		if !stable {
			if e.Node.NbSend < 0 {
				// vanished from disk: leave its deletion countdown running.
				continue
			}
			logger.W(lctx, "skipping unstable file", e.Path)
			e.Node.CRC = 0
			e.Node.NbSend = 0
			continue
		}

		cachedCRC := e.Node.CRC
		if err := s.sendFileWithCRC(absPath, e.Path, &cachedCRC); err != nil {
			logger.W(lctx, "send failed for", e.Path, "err is", err)
			continue
		}
		e.Node.NbSend++
		e.Node.LastSend = time.Now().Unix()
		if hooks.OnFileSent != nil {
			hooks.OnFileSent(e.Path, e.Node.NbSend)
		}
	}

	if err := reftree.WriteFile(tree, s.cfg.SyncFilePath); err != nil {
		logger.W(lctx, "final save failed, err is", err)
	}
	if hooks.OnPassEnd != nil {
		hooks.OnPassEnd()
	}
	return nil
}

// selectForTransmission picks every file not yet redundantly delivered
// (NbSend <= minRedundancy is the strict ">" open-question resolution: a
// file stops being resent only once it has been sent more times than
// the floor requires) and sorts least-sent-first, per spec.md §4.7 step 8.
func selectForTransmission(tree *reftree.Tree, minRedundancy int) []reftree.Entry {
	all := tree.ListFiles()
	var out []reftree.Entry
	for _, e := range all {
		if e.Node.NbSend <= minRedundancy {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Node.NbSend < out[j].Node.NbSend
	})
	return out
}

func joinRoot(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
