// Package site builds the static site: Markdown pages are rendered into a
// layout and every other file is copied to the destination as is.
package site

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/natefinch/atomic"

	"github.com/CageChen/inlineh/internal/config"
	mfs "github.com/CageChen/inlineh/internal/fs"
	"github.com/CageChen/inlineh/internal/markdown"
)

// StylesheetPath is where the highlighting stylesheet is written,
// relative to the destination.
const StylesheetPath = "assets/chroma.css"

// Page describes one rendered Markdown page.
type Page struct {
	Path  string             `json:"path"`
	URL   string             `json:"url"`
	Title string             `json:"title"`
	TOC   []markdown.TOCItem `json:"toc,omitempty"`
}

// Result summarizes a build.
type Result struct {
	Pages    int
	Files    int
	Duration time.Duration
}

// Options tunes a Builder.
type Options struct {
	// LiveReload adds a script to every page that reloads it
	// when the preview server announces a rebuild.
	LiveReload bool
}

// Builder renders a site from a source filesystem into the configured destination.
// Builds are serialized; Pages and Render may be called concurrently with a build.
type Builder struct {
	cfg    *config.Config
	fsys   mfs.FileSystem
	parser *markdown.Parser
	layout *template.Template
	opts   Options

	buildMu sync.Mutex

	mu    sync.RWMutex
	pages []Page
}

// New creates a Builder reading from fsys.
func New(cfg *config.Config, fsys mfs.FileSystem, opts Options) (*Builder, error) {
	layout, err := defaultLayout()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	parser := markdown.NewParser(markdown.Options{
		FS:         fsys,
		EmbedDir:   cfg.EmbedDir,
		TagName:    cfg.TagName,
		Style:      cfg.Style,
		UseClasses: cfg.UseClasses,
		Site:       cfg.SiteVars(),
	})

	return &Builder{
		cfg:    cfg,
		fsys:   fsys,
		parser: parser,
		layout: layout,
		opts:   opts,
	}, nil
}

// Pages returns the page index from the most recent successful build,
// sorted by URL.
func (b *Builder) Pages() []Page {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Page(nil), b.pages...)
}

// Render parses a single page of the source tree without writing anything.
func (b *Builder) Render(relPath string) (*markdown.ParseResult, error) {
	if !b.cfg.IsMarkdownFile(relPath) || b.excluded(relPath) {
		return nil, errtrace.Wrap(os.ErrNotExist)
	}
	src, err := b.fsys.ReadFile(relPath)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(b.parser.Parse(src))
}

type renderedPage struct {
	page   Page
	result *markdown.ParseResult
}

// Build renders every page and copies every other file.
// The context is checked between files.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	start := time.Now()

	pagePaths, filePaths, err := b.collect(ctx)
	if err != nil {
		return nil, err
	}

	rendered := make([]renderedPage, 0, len(pagePaths))
	for _, p := range pagePaths {
		if err := ctx.Err(); err != nil {
			return nil, errtrace.Wrap(err)
		}
		src, err := b.fsys.ReadFile(p)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		result, err := b.parser.Parse(src)
		if err != nil {
			return nil, errtrace.Errorf("render %s: %w", p, err)
		}
		title := result.Title
		if title == "" {
			title = strings.TrimSuffix(path.Base(p), path.Ext(p))
		}
		rendered = append(rendered, renderedPage{
			page: Page{
				Path:  p,
				URL:   pageURL(p),
				Title: title,
				TOC:   result.TOC,
			},
			result: result,
		})
	}
	sort.Slice(rendered, func(i, j int) bool {
		return rendered[i].page.URL < rendered[j].page.URL
	})

	pages := make([]Page, len(rendered))
	for i, r := range rendered {
		pages[i] = r.page
	}

	stylesheet := ""
	if b.parser.Highlighter().UseClasses {
		var css bytes.Buffer
		if err := b.parser.Highlighter().WriteCSS(&css); err != nil {
			return nil, errtrace.Wrap(err)
		}
		if err := b.writeFile(StylesheetPath, css.Bytes()); err != nil {
			return nil, err
		}
		stylesheet = StylesheetPath
	}

	for _, r := range rendered {
		if err := ctx.Err(); err != nil {
			return nil, errtrace.Wrap(err)
		}
		if err := b.writePage(r, pages, stylesheet); err != nil {
			return nil, errtrace.Errorf("write %s: %w", r.page.URL, err)
		}
	}

	for _, p := range filePaths {
		if err := ctx.Err(); err != nil {
			return nil, errtrace.Wrap(err)
		}
		data, err := b.fsys.ReadFile(p)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		if err := b.writeFile(p, data); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	b.pages = pages
	b.mu.Unlock()

	return &Result{
		Pages:    len(pages),
		Files:    len(filePaths),
		Duration: time.Since(start),
	}, nil
}

// collect walks the source and splits it into Markdown pages and other files.
func (b *Builder) collect(ctx context.Context) (pages, files []string, err error) {
	destRel := b.cfg.DestinationRel()

	err = mfs.Walk(b.fsys, "", func(p string, entry mfs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.cfg.IsExcluded(entry.Name) || (destRel != "" && p == destRel) {
			if entry.IsDir {
				return mfs.SkipDir
			}
			return nil
		}
		switch {
		case entry.IsDir:
		case b.cfg.IsMarkdownFile(p):
			pages = append(pages, p)
		default:
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errtrace.Wrap(err)
	}
	return pages, files, nil
}

// excluded reports whether any component of the slash-separated source path
// p is excluded from the build, or p lies in the destination.
func (b *Builder) excluded(p string) bool {
	if destRel := b.cfg.DestinationRel(); destRel != "" && (p == destRel || strings.HasPrefix(p, destRel+"/")) {
		return true
	}
	for _, part := range strings.Split(p, "/") {
		if b.cfg.IsExcluded(part) {
			return true
		}
	}
	return false
}

func (b *Builder) writePage(r renderedPage, pages []Page, stylesheet string) error {
	layout, err := b.loadLayout(r.result.Layout)
	if err != nil {
		return err
	}

	root := rootPrefix(r.page.URL)
	data := pageData{
		Title:      r.page.Title,
		SiteTitle:  b.cfg.Title,
		Content:    template.HTML(r.result.HTML),
		TOC:        r.result.TOC,
		Pages:      pages,
		Page:       r.page,
		Root:       root,
		LiveReload: b.opts.LiveReload,
	}
	if stylesheet != "" {
		data.Stylesheet = root + stylesheet
	}

	var buf bytes.Buffer
	if err := layout.Execute(&buf, data); err != nil {
		return errtrace.Wrap(err)
	}
	return b.writeFile(r.page.URL, buf.Bytes())
}

// writeFile atomically replaces rel below the destination.
func (b *Builder) writeFile(rel string, data []byte) error {
	full := filepath.Join(b.cfg.Destination, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(atomic.WriteFile(full, bytes.NewReader(data)))
}

// pageURL maps a Markdown source path to its output path.
func pageURL(p string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ".html"
}
