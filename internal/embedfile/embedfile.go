// Package embedfile implements the inlineh tag: {% inlineh <file> [<language>] %}.
//
// The tag reads a file below a fixed base directory and renders it as a
// highlighted code block, preceded by a link to the file itself:
//
//	<a href="observer.py">observer.py:</a>
//
//	<pre class="chroma"><code ...>...</code></pre>
//
// A file that does not exist renders as an empty code block.
package embedfile

import (
	"errors"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"

	mfs "github.com/CageChen/inlineh/internal/fs"
	"github.com/CageChen/inlineh/internal/highlight"
)

// Defaults used when the tag is registered without explicit settings.
const (
	DefaultTagName = "inlineh"
	DefaultBaseDir = "html"
	DefaultType    = "text"
)

// ErrMissingFilename is returned for a tag with no arguments.
var ErrMissingFilename = errors.New("missing filename")

// Highlighter renders code for a language label.
type Highlighter interface {
	Highlight(lang, code string) (string, error)
}

// Directive holds the arguments of one tag invocation.
type Directive struct {
	// Filename is the first argument, used verbatim in the link.
	Filename string

	// Type is the highlight language label.
	Type string
}

// ParseDirective splits tag arguments on whitespace.
// The first field is the filename and the remaining fields, joined by a
// single space, are the language label. The label defaults to "text".
func ParseDirective(text string) (Directive, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Directive{}, ErrMissingFilename
	}

	d := Directive{
		Filename: parts[0],
		Type:     strings.Join(parts[1:], " "),
	}
	if d.Type == "" {
		d.Type = DefaultType
	}
	return d, nil
}

// Tag is a parsed directive bound to the file it embeds.
type Tag struct {
	Directive

	// Path is the base directory joined with Filename.
	Path string

	fsys mfs.FileSystem
}

// New parses text and resolves the filename against baseDir in fsys.
//
// The filename is not sanitized: ".." components and absolute names are
// joined as given. A path that resolves outside baseDir is logged.
func New(fsys mfs.FileSystem, baseDir, text string) (*Tag, error) {
	d, err := ParseDirective(text)
	if err != nil {
		return nil, err
	}

	base := filepath.ToSlash(baseDir)
	p := path.Join(base, d.Filename)
	if outside(base, p) {
		log.Printf("Warning: embedded file %q resolves to %s, outside of %s", d.Filename, p, baseDir)
	}

	return &Tag{
		Directive: d,
		Path:      p,
		fsys:      fsys,
	}, nil
}

// Content reads the embedded file. A missing file yields "" and no error.
func (t *Tag) Content() (string, error) {
	if _, err := t.fsys.Stat(t.Path); err != nil {
		if mfs.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("stat %s: %w", t.Path, err)
	}

	data, err := t.fsys.ReadFile(t.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", t.Path, err)
	}
	return string(data), nil
}

// Link returns the anchor placed above the code block.
func (t *Tag) Link() string {
	return fmt.Sprintf(`<a href="%s">%s:</a>`, t.Filename, t.Filename)
}

// Render reads the file and returns the link, a blank line,
// and the highlighted file contents.
// Type is read the way the highlight block reads its arguments,
// so "ruby linenos" highlights as ruby.
func (t *Tag) Render(h Highlighter) (string, error) {
	content, err := t.Content()
	if err != nil {
		return "", err
	}

	code, err := h.Highlight(highlight.Language(t.Type), content)
	if err != nil {
		return "", err
	}
	return t.Link() + "\n\n" + code, nil
}

func outside(base, p string) bool {
	base = path.Clean(base)
	if base == "." {
		return p == ".." || strings.HasPrefix(p, "../") || path.IsAbs(p)
	}
	return p != base && !strings.HasPrefix(p, base+"/")
}
