// The blindftp reftree package models the sender's reference directory
// tree (spec.md §3's "Reference tree"): a hierarchy of directory and
// file nodes carrying both plain filesystem metadata and the four
// synchronization attributes (crc, NbSend, LastSend, LastView).
package reftree

import (
	"encoding/xml"
	"path"
	"strings"
)

// FileNode is one file entry, matching original_source/xfl.py's TAG_FILE
// element plus the sync attributes from spec.md §3.
type FileNode struct {
	XMLName  xml.Name `xml:"file"`
	Name     string   `xml:"name,attr"`
	Size     int64    `xml:"size,attr"`
	Mtime    int64    `xml:"mtime,attr"`
	CRC      uint32   `xml:"crc,attr"`
	NbSend   int      `xml:"NbSend,attr"`
	LastSend int64    `xml:"LastSend,attr"`
	LastView int64    `xml:"LastView,attr"`
}

// DirNode is one directory entry, matching xfl.py's TAG_DIR element.
type DirNode struct {
	XMLName xml.Name   `xml:"dir"`
	Name    string     `xml:"name,attr"`
	Dirs    []*DirNode `xml:"dir"`
	Files   []*FileNode `xml:"file"`
}

// Tree is the root of a reference tree, matching xfl.py's DirTree root
// element: a scan-time attribute plus the nested dir/file elements.
type Tree struct {
	XMLName  xml.Name   `xml:"dirtree"`
	ScanTime int64      `xml:"time,attr"`
	RootName string     `xml:"name,attr"`
	Dirs     []*DirNode `xml:"dir"`
	Files    []*FileNode `xml:"file"`
}

// New returns an empty tree rooted at rootPath.
func New(rootPath string) *Tree {
	return &Tree{RootName: rootPath}
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+filepathToSlash(p)), "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// descend walks dir components from root, creating DirNodes as needed
// when create is true; returns nil if a component is missing and create
// is false.
func descend(dirs *[]*DirNode, components []string, create bool) *[]*DirNode {
	cur := dirs
	for _, c := range components {
		var found *DirNode
		for _, d := range *cur {
			if d.Name == c {
				found = d
				break
			}
		}
		if found == nil {
			if !create {
				return nil
			}
			found = &DirNode{Name: c}
			*cur = append(*cur, found)
		}
		cur = &found.Dirs
	}
	return cur
}

// InsertOrUpdateFile creates or updates the file node at relPath,
// creating any missing ancestor directories.
func (t *Tree) InsertOrUpdateFile(relPath string, mutate func(f *FileNode)) *FileNode {
	components := splitPath(relPath)
	if len(components) == 0 {
		return nil
	}
	name := components[len(components)-1]
	parentDirs := descend(&t.Dirs, components[:len(components)-1], true)

	for _, f := range *filesOf(t, parentDirs) {
		if f.Name == name {
			mutate(f)
			return f
		}
	}
	f := &FileNode{Name: name}
	mutate(f)
	*filesOf(t, parentDirs) = append(*filesOf(t, parentDirs), f)
	return f
}

// filesOf resolves the []*FileNode slice living alongside the dirs slice
// returned by descend: the root's Files when parentDirs is the root
// Dirs pointer, or the owning DirNode's Files otherwise. Since descend
// only ever hands back &somewhere.Dirs, we recover the sibling Files
// slice by walking from the root again.
func filesOf(t *Tree, dirsPtr *[]*DirNode) *[]*FileNode {
	if dirsPtr == &t.Dirs {
		return &t.Files
	}
	return findOwner(t.Dirs, dirsPtr)
}

func findOwner(dirs []*DirNode, target *[]*DirNode) *[]*FileNode {
	for _, d := range dirs {
		if &d.Dirs == target {
			return &d.Files
		}
		if f := findOwner(d.Dirs, target); f != nil {
			return f
		}
	}
	return nil
}

// GetFile looks up the file node at relPath.
func (t *Tree) GetFile(relPath string) *FileNode {
	components := splitPath(relPath)
	if len(components) == 0 {
		return nil
	}
	name := components[len(components)-1]
	dirs := descend(&t.Dirs, components[:len(components)-1], false)
	if dirs == nil {
		return nil
	}
	files := filesOf(t, dirs)
	if files == nil {
		return nil
	}
	for _, f := range *files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// RemoveFile deletes the file node at relPath, if present.
func (t *Tree) RemoveFile(relPath string) {
	components := splitPath(relPath)
	if len(components) == 0 {
		return
	}
	name := components[len(components)-1]
	dirs := descend(&t.Dirs, components[:len(components)-1], false)
	if dirs == nil {
		return
	}
	files := filesOf(t, dirs)
	if files == nil {
		return
	}
	out := (*files)[:0]
	for _, f := range *files {
		if f.Name != name {
			out = append(out, f)
		}
	}
	*files = out
}

// Entry pairs a file node with its destination-relative path, produced
// by ListFiles / diffing.
type Entry struct {
	Path string
	Node *FileNode
}

// ListFiles flattens the tree into (path, node) pairs, used by the
// sender to rank files by NbSend (spec.md §4.7 step 8).
func (t *Tree) ListFiles() []Entry {
	var out []Entry
	for _, f := range t.Files {
		out = append(out, Entry{Path: f.Name, Node: f})
	}
	for _, d := range t.Dirs {
		collectFiles(d, d.Name, &out)
	}
	return out
}

func collectFiles(d *DirNode, prefix string, out *[]Entry) {
	for _, f := range d.Files {
		*out = append(*out, Entry{Path: prefix + "/" + f.Name, Node: f})
	}
	for _, sub := range d.Dirs {
		collectFiles(sub, prefix+"/"+sub.Name, out)
	}
}

// AllSent reports whether every tracked file has been transmitted more
// times than minRedundancy, spec.md §4.7's "AllFileSendMax" termination
// condition for the "run until sufficiently redundant" (LoopCount 0)
// synchronization mode. A tree with no files is vacuously satisfied.
func (t *Tree) AllSent(minRedundancy int) bool {
	for _, e := range t.ListFiles() {
		if e.Node.NbSend <= minRedundancy {
			return false
		}
	}
	return true
}

// PruneEmptyDirs removes directory nodes that (recursively) contain no
// files, per spec.md §4.7 step 3's "for empty directories: remove from
// the reference tree". Returns the number of directories removed.
func (t *Tree) PruneEmptyDirs() int {
	removed := 0
	t.Dirs, removed = pruneDirs(t.Dirs)
	return removed
}

func pruneDirs(dirs []*DirNode) ([]*DirNode, int) {
	removed := 0
	var kept []*DirNode
	for _, d := range dirs {
		var sub int
		d.Dirs, sub = pruneDirs(d.Dirs)
		removed += sub
		if len(d.Files) == 0 && len(d.Dirs) == 0 {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	return kept, removed
}
