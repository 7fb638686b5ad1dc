package reftree

import (
	"os"
	"path/filepath"
	"time"
)

// ScanDisk walks rootPath and builds a Tree carrying only the plain
// filesystem attributes (size, mtime); the sync attributes (crc,
// NbSend, LastSend, LastView) are zero until a send pass fills them in.
// Ported from original_source/xfl.py's scan_dir, which recurses with
// os.walk and records (size, mtime) per entry.
func ScanDisk(rootPath string) (*Tree, error) {
	tree := New(rootPath)
	tree.ScanTime = time.Now().Unix()

	err := filepath.Walk(rootPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rootPath, p)
		if err != nil {
			return err
		}
		tree.InsertOrUpdateFile(rel, func(f *FileNode) {
			f.Size = info.Size()
			f.Mtime = info.ModTime().Unix()
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}
