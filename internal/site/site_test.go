package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/inlineh/internal/config"
	mfs "github.com/CageChen/inlineh/internal/fs"
)

func newTestSite(t *testing.T, files map[string]string) (*config.Config, *Builder) {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	cfg := config.DefaultConfig()
	cfg.Title = "Design Patterns"
	cfg.Source = dir
	cfg.Destination = filepath.Join(dir, "_site")

	b, err := New(cfg, mfs.NewLocalFS(dir), Options{})
	require.NoError(t, err)
	return cfg, b
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Destination, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuild(t *testing.T) {
	cfg, b := newTestSite(t, map[string]string{
		"index.md":                  "# Patterns\n\nSee the [observer](patterns/observer.html).\n",
		"patterns/observer.md":      "---\ntitle: Observer\n---\n{% inlineh observer.py python %}\n",
		"html/observer.py":          "print(1)\n",
		"_drafts/wip.md":            "# WIP\n",
		".hidden":                   "secret",
		"inlineh.yaml":              "title: ignored\n",
		"patterns/diagram.svg":      "<svg/>",
		"_site/stale-from-before.x": "old",
	})

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, res.Files, "html/observer.py and patterns/diagram.svg")

	index := readOutput(t, cfg, "index.html")
	assert.Contains(t, index, "<title>Patterns | Design Patterns</title>")
	assert.Contains(t, index, `href="assets/chroma.css"`)
	assert.Contains(t, index, `<a href="patterns/observer.html">Observer</a>`)

	observer := readOutput(t, cfg, "patterns/observer.html")
	assert.Contains(t, observer, `<a href="observer.py">observer.py:</a>`)
	assert.Contains(t, observer, `data-lang="python"`)
	assert.Contains(t, observer, `href="../assets/chroma.css"`)
	assert.Contains(t, observer, `<a href="../index.html">Patterns</a>`)

	assert.Equal(t, "print(1)\n", readOutput(t, cfg, "html/observer.py"))
	assert.Contains(t, readOutput(t, cfg, StylesheetPath), ".chroma")

	_, err = os.Stat(filepath.Join(cfg.Destination, "_drafts"))
	assert.True(t, os.IsNotExist(err), "excluded directories are not copied")
	_, err = os.Stat(filepath.Join(cfg.Destination, "_site"))
	assert.True(t, os.IsNotExist(err), "destination is not copied into itself")

	pages := b.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, "index.html", pages[0].URL)
	assert.Equal(t, "Observer", pages[1].Title)
	assert.Equal(t, "patterns/observer.md", pages[1].Path)
}

func TestBuild_MissingEmbeddedFile(t *testing.T) {
	cfg, b := newTestSite(t, map[string]string{
		"index.md": "{% inlineh gone.txt %}\n",
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, readOutput(t, cfg, "index.html"),
		`<code class="language-text" data-lang="text"></code>`)
}

func TestBuild_CustomLayout(t *testing.T) {
	cfg, b := newTestSite(t, map[string]string{
		"_layouts/bare.html": "<article>{{ .Title }}|{{ .Content }}</article>",
		"page.md":            "---\nlayout: bare\ntitle: Bare\n---\nhello\n",
		"other.md":           "---\nlayout: nonexistent\n---\n# Other\n",
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<article>Bare|<p>hello</p>\n</article>", readOutput(t, cfg, "page.html"))
	assert.Contains(t, readOutput(t, cfg, "other.html"), "<!DOCTYPE html>")
}

func TestBuild_LiveReload(t *testing.T) {
	cfg, b := newTestSite(t, map[string]string{"index.md": "# Home\n"})
	b.opts.LiveReload = true

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, readOutput(t, cfg, "index.html"), "/api/ws")
}

func TestBuild_Canceled(t *testing.T) {
	_, b := newTestSite(t, map[string]string{"index.md": "# Home\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.Pages())
}

func TestBuild_RenderError(t *testing.T) {
	_, b := newTestSite(t, map[string]string{"broken.md": "{% inlineh %}\n"})

	_, err := b.Build(context.Background())
	assert.ErrorContains(t, err, "broken.md")
}

func TestRender(t *testing.T) {
	_, b := newTestSite(t, map[string]string{
		"index.md":  "# Home\n",
		"style.css": "body{}",
	})

	result, err := b.Render("index.md")
	require.NoError(t, err)
	assert.Equal(t, "Home", result.Title)

	_, err = b.Render("style.css")
	assert.True(t, mfs.IsNotExist(err))

	_, err = b.Render("missing.md")
	assert.True(t, mfs.IsNotExist(err))
}

func TestRender_Excluded(t *testing.T) {
	cfg, b := newTestSite(t, map[string]string{
		"_drafts/x.md":      "# Draft\n",
		"_layouts/note.md":  "# Note\n",
		"docs/.hidden/y.md": "# Hidden\n",
		"docs/z.md":         "# Visible\n",
	})
	cfg.Destination = filepath.Join(cfg.Source, "out")
	require.NoError(t, os.MkdirAll(cfg.Destination, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Destination, "old.md"), []byte("# Old\n"), 0o644))

	for _, p := range []string{"_drafts/x.md", "_layouts/note.md", "docs/.hidden/y.md", "out/old.md"} {
		_, err := b.Render(p)
		assert.True(t, mfs.IsNotExist(err), "Render(%q) = %v", p, err)
	}

	result, err := b.Render("docs/z.md")
	require.NoError(t, err)
	assert.Equal(t, "Visible", result.Title)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "index.html", pageURL("index.md"))
	assert.Equal(t, "a/b.html", pageURL("a/b.markdown"))
	assert.Equal(t, "", rootPrefix("index.html"))
	assert.Equal(t, "../../", rootPrefix("a/b/c.html"))
}
