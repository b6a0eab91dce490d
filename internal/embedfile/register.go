package embedfile

import (
	"fmt"

	mfs "github.com/CageChen/inlineh/internal/fs"
	"github.com/osteele/liquid"
	"github.com/osteele/liquid/render"
)

// Register installs the tag on engine under name.
// Files are looked up in fsys below baseDir every time the tag renders.
func Register(engine *liquid.Engine, name string, fsys mfs.FileSystem, baseDir string, h Highlighter) {
	engine.RegisterTag(name, func(c render.Context) (string, error) {
		t, err := New(fsys, baseDir, c.TagArgs())
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return t.Render(h)
	})
}
