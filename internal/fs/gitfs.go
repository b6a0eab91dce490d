package fs

import (
	"fmt"
	"os"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitFS implements FileSystem by reading from a git ref (branch, tag, or commit).
//
// The ref is resolved once, when the GitFS is created, so every read sees
// the same tree even if the ref moves afterwards.
type GitFS struct {
	ref     string
	tree    *object.Tree
	modTime time.Time
}

// NewGitFS opens the repository at repoPath and resolves ref to a commit tree.
func NewGitFS(repoPath, ref string) (*GitFS, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", repoPath, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree for %s: %w", ref, err)
	}

	return &GitFS{
		ref:     ref,
		tree:    tree,
		modTime: commit.Committer.When,
	}, nil
}

// Ref returns the revision this filesystem was opened at.
func (g *GitFS) Ref() string {
	return g.ref
}

// ReadFile reads the contents of the file at the given path from the git ref.
func (g *GitFS) ReadFile(path string) ([]byte, error) {
	objPath := cleanPath(path)
	if objPath == "" {
		return nil, fmt.Errorf("cannot read directory as file")
	}

	f, err := g.tree.File(objPath)
	if err != nil {
		return nil, notExist(objPath, err)
	}

	contents, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", objPath, g.ref, err)
	}
	return []byte(contents), nil
}

// Stat returns metadata for the file or directory at the given path in the git ref.
// Every entry reports the commit time of the ref as its modification time.
func (g *GitFS) Stat(path string) (FileInfo, error) {
	objPath := cleanPath(path)
	if objPath == "" {
		return FileInfo{
			Name:    g.ref,
			IsDir:   true,
			ModTime: g.modTime,
		}, nil
	}

	entry, err := g.tree.FindEntry(objPath)
	if err != nil {
		return FileInfo{}, notExist(objPath, err)
	}

	info := FileInfo{
		Name:    entry.Name,
		IsDir:   entry.Mode == filemode.Dir,
		ModTime: g.modTime,
	}
	if !info.IsDir {
		if f, err := g.tree.File(objPath); err == nil {
			info.Size = f.Size
		}
	}
	return info, nil
}

// ReadDir lists the immediate children of the directory at the given path in the git ref.
// Submodules are not listed.
func (g *GitFS) ReadDir(path string) ([]DirEntry, error) {
	objPath := cleanPath(path)

	tree := g.tree
	if objPath != "" {
		sub, err := g.tree.Tree(objPath)
		if err != nil {
			return nil, notExist(objPath, err)
		}
		tree = sub
	}

	entries := make([]DirEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.Mode == filemode.Submodule {
			continue
		}
		entries = append(entries, DirEntry{
			Name:  e.Name,
			IsDir: e.Mode == filemode.Dir,
		})
	}
	return entries, nil
}

func notExist(path string, err error) error {
	return &os.PathError{Op: "open", Path: path, Err: fmt.Errorf("%w: %v", os.ErrNotExist, err)}
}
