package site

import (
	"embed"
	"html/template"
	"path"
	"strings"

	"braces.dev/errtrace"

	"github.com/CageChen/inlineh/internal/config"
	mfs "github.com/CageChen/inlineh/internal/fs"
	"github.com/CageChen/inlineh/internal/markdown"
)

//go:embed templates/layout.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"relURL": func(root, url string) string { return root + url },
}

// pageData is the value layouts are executed with.
type pageData struct {
	Title      string
	SiteTitle  string
	Content    template.HTML
	TOC        []markdown.TOCItem
	Pages      []Page
	Page       Page
	Root       string
	Stylesheet string
	LiveReload bool
}

func defaultLayout() (*template.Template, error) {
	return errtrace.Wrap2(template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html"))
}

// loadLayout returns the named layout from the site's layout directory,
// or the built-in layout when the page names none or it does not exist.
func (b *Builder) loadLayout(name string) (*template.Template, error) {
	if name == "" {
		return b.layout, nil
	}

	src, err := b.fsys.ReadFile(mfs.Join(config.LayoutDir, name+".html"))
	if err != nil {
		if mfs.IsNotExist(err) {
			return b.layout, nil
		}
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(template.New(name).Funcs(funcs).Parse(string(src)))
}

// rootPrefix returns the relative prefix from a page URL to the site root.
func rootPrefix(url string) string {
	return strings.Repeat("../", strings.Count(path.Clean(url), "/"))
}
