package reftree

import (
	"regexp"
	"time"
)

// ResetMatch is the set of files a reset operation touched, returned so
// callers can log or count what was reset.
type ResetMatch []string

// resetNbSend zeroes NbSend (and LastSend) for every file whose path
// satisfies keep, forcing the sender to treat it as never-sent on the
// next pass. Shared by the date, regexp and diff strategies below, mirroring
// original_source/xfl_reset.py's common reset_file() helper.
func resetNbSend(t *Tree, keep func(path string, f *FileNode) bool) ResetMatch {
	var matched ResetMatch
	for _, e := range t.ListFiles() {
		if keep(e.Path, e.Node) {
			e.Node.NbSend = 0
			e.Node.LastSend = 0
			matched = append(matched, e.Path)
		}
	}
	return matched
}

// ResetByDate resets every file whose mtime is at or after since, so the
// next synchronization pass re-sends everything modified since that
// moment. Ported from xfl_reset.py's date-based reset mode.
func ResetByDate(t *Tree, since time.Time) ResetMatch {
	cut := since.Unix()
	return resetNbSend(t, func(_ string, f *FileNode) bool {
		return f.Mtime >= cut
	})
}

// ResetByPath resets the single file at relPath, if tracked. Ported from
// xfl_reset.py's exact-path reset mode.
func ResetByPath(t *Tree, relPath string) ResetMatch {
	if f := t.GetFile(relPath); f != nil {
		f.NbSend = 0
		f.LastSend = 0
		return ResetMatch{relPath}
	}
	return nil
}

// ResetByRegexp resets every tracked path matching re. Ported from
// xfl_reset.py's regular-expression reset mode.
func ResetByRegexp(t *Tree, re *regexp.Regexp) ResetMatch {
	return resetNbSend(t, func(path string, _ *FileNode) bool {
		return re.MatchString(path)
	})
}

// ResetByDiff resets every file that the given Diff reports as changed
// or new (Different and OnlyDisk), leaving unchanged and vanished files
// alone. Ported from xfl_reset.py's "reset what differs from disk" mode,
// useful after a reference file is lost or corrupted independently of
// any real filesystem change.
func ResetByDiff(t *Tree, d Diff) ResetMatch {
	want := make(map[string]bool, len(d.Different)+len(d.OnlyDisk))
	for _, p := range d.Different {
		want[p] = true
	}
	for _, p := range d.OnlyDisk {
		want[p] = true
	}
	return resetNbSend(t, func(path string, _ *FileNode) bool {
		return want[path]
	})
}
