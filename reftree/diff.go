package reftree

// Diff is the four-way classification of spec.md §4.7 step 1, comparing
// the reference tree (what the sender believes it has already tracked)
// against a fresh disk scan. Ported from original_source/xfl.py's
// compare_DT, which builds a pathdict for each tree and buckets every
// path by presence and (size, mtime) equality.
type Diff struct {
	Same      []string // present both sides, size+mtime unchanged
	Different []string // present both sides, size or mtime changed
	OnlyRef   []string // vanished from disk since the last scan
	OnlyDisk  []string // new since the last scan
}

// Compare classifies every file path appearing in either ref or disk.
func Compare(ref, disk *Tree) Diff {
	refEntries := ref.ListFiles()
	diskEntries := disk.ListFiles()

	diskByPath := make(map[string]*FileNode, len(diskEntries))
	for _, e := range diskEntries {
		diskByPath[e.Path] = e.Node
	}
	refByPath := make(map[string]*FileNode, len(refEntries))
	for _, e := range refEntries {
		refByPath[e.Path] = e.Node
	}

	var d Diff
	for path, refNode := range refByPath {
		diskNode, ok := diskByPath[path]
		if !ok {
			d.OnlyRef = append(d.OnlyRef, path)
			continue
		}
		if refNode.Size == diskNode.Size && refNode.Mtime == diskNode.Mtime {
			d.Same = append(d.Same, path)
		} else {
			d.Different = append(d.Different, path)
		}
	}
	for path := range diskByPath {
		if _, ok := refByPath[path]; !ok {
			d.OnlyDisk = append(d.OnlyDisk, path)
		}
	}
	return d
}
