// Package markdown renders site pages: YAML front matter, then a Liquid pass
// with the site's tags, then Goldmark with GFM extensions and syntax highlighting.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/osteele/liquid"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/CageChen/inlineh/internal/embedfile"
	mfs "github.com/CageChen/inlineh/internal/fs"
	"github.com/CageChen/inlineh/internal/highlight"
)

// TOCItem represents a table of contents entry
type TOCItem struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

// ParseResult contains the parsed markdown result
type ParseResult struct {
	HTML        string      `json:"html"`
	TOC         []TOCItem   `json:"toc"`
	Title       string      `json:"title"`
	Layout      string      `json:"layout,omitempty"`
	FrontMatter FrontMatter `json:"frontMatter,omitempty"`
}

// Options configures a Parser.
type Options struct {
	// FS is where embedded files are read from.
	FS mfs.FileSystem

	// EmbedDir is the base directory for the embed tag, relative to FS.
	EmbedDir string

	// TagName is the name the embed tag is registered under.
	TagName string

	// Style is the Chroma style name.
	Style string

	// UseClasses selects class-based highlighting output.
	UseClasses bool

	// Site is exposed to templates as the "site" variable.
	Site map[string]any
}

// Parser handles markdown parsing with goldmark
type Parser struct {
	md          goldmark.Markdown
	engine      *liquid.Engine
	highlighter *highlight.Highlighter
	site        map[string]any
}

// NewParser creates a new markdown parser with extensions
// and a Liquid engine carrying the highlight block and the embed tag.
func NewParser(opts Options) *Parser {
	if opts.TagName == "" {
		opts.TagName = embedfile.DefaultTagName
	}
	if opts.EmbedDir == "" {
		opts.EmbedDir = embedfile.DefaultBaseDir
	}

	h := highlight.New(opts.Style, opts.UseClasses)

	engine := liquid.NewEngine()
	highlight.RegisterBlock(engine, h)
	embedfile.Register(engine, opts.TagName, opts.FS, opts.EmbedDir, h)

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithCustomStyle(h.Style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(opts.UseClasses),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)

	return &Parser{
		md:          md,
		engine:      engine,
		highlighter: h,
		site:        opts.Site,
	}
}

// Highlighter returns the highlighter shared by fenced blocks and tags.
func (p *Parser) Highlighter() *highlight.Highlighter {
	return p.highlighter
}

// Parse converts a page to HTML and extracts metadata
func (p *Parser) Parse(source []byte) (*ParseResult, error) {
	rawFM, body, err := splitFrontMatter(source)
	if err != nil {
		return nil, err
	}
	fm, err := parseFrontMatter(rawFM)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	expanded, err := p.Expand(body, fm)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.md.Convert(expanded, &buf); err != nil {
		return nil, err
	}

	toc := p.extractTOC(expanded)
	title := fm.String("title")
	if title == "" && len(toc) > 0 {
		title = toc[0].Title
	}

	return &ParseResult{
		HTML:        buf.String(),
		TOC:         toc,
		Title:       title,
		Layout:      fm.String("layout"),
		FrontMatter: fm,
	}, nil
}

// Expand runs the Liquid pass over a page body.
// Page variables are available as "page" and site settings as "site".
func (p *Parser) Expand(body []byte, fm FrontMatter) ([]byte, error) {
	bindings := liquid.Bindings{
		"page": map[string]any(fm),
		"site": p.site,
	}
	out, err := p.engine.ParseAndRender(body, bindings)
	if err != nil {
		return nil, fmt.Errorf("liquid: %w", err)
	}
	return out, nil
}

// extractTOC walks the AST to extract headings
func (p *Parser) extractTOC(source []byte) []TOCItem {
	reader := text.NewReader(source)
	doc := p.md.Parser().Parse(reader)

	var toc []TOCItem
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if heading, ok := n.(*ast.Heading); ok {
			title := extractText(heading, source)
			anchor := generateAnchor(title)
			toc = append(toc, TOCItem{
				Level:  heading.Level,
				Title:  title,
				Anchor: anchor,
			})
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil
	}

	return toc
}

// extractText extracts text content from a node
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if text, ok := child.(*ast.Text); ok {
			buf.Write(text.Segment.Value(source))
		}
	}
	return buf.String()
}

var (
	anchorInvalid = regexp.MustCompile(`[^a-z0-9\-\p{Han}\p{Hiragana}\p{Katakana}]`)
	anchorDashes  = regexp.MustCompile(`-+`)
)

// generateAnchor creates a URL-safe anchor from text
func generateAnchor(text string) string {
	anchor := strings.ToLower(text)
	anchor = strings.ReplaceAll(anchor, " ", "-")
	anchor = anchorInvalid.ReplaceAllString(anchor, "")
	anchor = anchorDashes.ReplaceAllString(anchor, "-")
	return strings.Trim(anchor, "-")
}
