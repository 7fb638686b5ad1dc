package reftree

import (
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/blindftp/blindftp/bferrors"
)

// ReadFile loads a Tree previously written by WriteFile.
func ReadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bferrors.NewIOError("read", path, err)
	}
	var t Tree
	if err := xml.Unmarshal(data, &t); err != nil {
		return nil, bferrors.NewIOError("unmarshal", path, err)
	}
	return &t, nil
}

// WriteFile persists the tree, backing up any existing file to path+".bak"
// before the new content replaces it, and writing through a temp file so
// a crash mid-write never leaves a truncated BFTPsynchro.xml behind.
// Ported from original_source/xfl.py's save(), which renames the previous
// file to ".bak" before writing the fresh one.
func WriteFile(t *Tree, path string) error {
	data, err := xml.MarshalIndent(t, "", "  ")
	if err != nil {
		return bferrors.NewIOError("marshal", path, err)
	}
	data = append([]byte(xml.Header), data...)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bftpsynchro-*.tmp")
	if err != nil {
		return bferrors.NewIOError("create-temp", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return bferrors.NewIOError("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return bferrors.NewIOError("close", tmpName, err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			os.Remove(tmpName)
			return bferrors.NewIOError("backup", path, err)
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return bferrors.NewIOError("publish", path, err)
	}
	return nil
}

// Bootstrap loads an existing reference tree from path when resume is
// true and the file exists, or starts a fresh empty tree otherwise. This
// is the sender's --resume behavior: reuse NbSend/LastSend/LastView
// history across restarts instead of re-sending everything from scratch.
func Bootstrap(path, rootPath string, resume bool) (*Tree, error) {
	if resume {
		if _, err := os.Stat(path); err == nil {
			return ReadFile(path)
		}
	}
	return New(rootPath), nil
}
