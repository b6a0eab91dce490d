// Package fs provides filesystem abstractions for reading site sources from local disk or git repos.
package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// SkipDir may be returned from a WalkFunc to skip the directory being visited.
var SkipDir = iofs.SkipDir

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry represents a single directory entry.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem abstracts file operations so callers can work with either
// the local filesystem or a git object database.
//
// Paths are slash-separated and relative to the filesystem root.
// The empty string and "." both name the root.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
}

// WalkFunc is called for every entry visited by Walk.
// Returning SkipDir from a directory entry skips its contents.
type WalkFunc func(path string, entry DirEntry) error

// Walk visits every entry below root depth-first, in lexical order.
// The root itself is not passed to fn.
func Walk(fsys FileSystem, root string, fn WalkFunc) error {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	for _, entry := range entries {
		childPath := Join(root, entry.Name)
		if err := fn(childPath, entry); err != nil {
			if entry.IsDir && errors.Is(err, SkipDir) {
				continue
			}
			return err
		}
		if entry.IsDir {
			if err := Walk(fsys, childPath, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Join joins slash-separated path elements, treating "" and "." as the root.
func Join(elem ...string) string {
	p := path.Join(elem...)
	if p == "." {
		return ""
	}
	return p
}

// IsNotExist reports whether err says a path does not exist,
// regardless of which FileSystem produced it.
func IsNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist) || os.IsNotExist(err)
}

func cleanPath(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}
