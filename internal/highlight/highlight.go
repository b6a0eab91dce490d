// Package highlight renders source code as syntax-highlighted HTML blocks
// using Chroma, and exposes that renderer as the {% highlight %} Liquid block.
package highlight

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	chroma "github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultLanguage is the label used when a block names no language.
const DefaultLanguage = "text"

// Highlighter turns source text into highlighted HTML.
//
// Output is a single <pre> element, so it survives a later Markdown pass
// as one raw HTML block even when the code contains blank lines.
type Highlighter struct {
	// Style used for syntax highlighting of code.
	Style *chroma.Style

	// UseClasses emits CSS classes instead of inline 'style' attributes.
	// A stylesheet from WriteCSS must then be linked by the page.
	UseClasses bool

	once      sync.Once
	formatter *chromahtml.Formatter
}

// New builds a Highlighter for the named Chroma style.
// Unknown style names fall back to Chroma's default style.
func New(style string, useClasses bool) *Highlighter {
	return &Highlighter{
		Style:      styles.Get(style),
		UseClasses: useClasses,
	}
}

func (h *Highlighter) init() {
	h.once.Do(func() {
		if h.Style == nil {
			h.Style = styles.Fallback
		}
		h.formatter = chromahtml.New(
			chromahtml.PreventSurroundingPre(true),
			chromahtml.WithClasses(h.UseClasses),
		)
	})
}

// WriteCSS writes the style classes for this highlighter to writer.
// If this highlighter is not using classes, WriteCSS is a no-op.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	h.init()

	if !h.UseClasses {
		return nil
	}
	return h.formatter.WriteCSS(w, h.Style)
}

// Highlight renders code as HTML, lexed according to the language label.
// Labels Chroma does not know are rendered as plain text.
func (h *Highlighter) Highlight(lang, code string) (string, error) {
	h.init()

	if lang == "" {
		lang = DefaultLanguage
	}

	var buf strings.Builder
	h.openBlock(&buf, lang)

	if code != "" {
		iterator, err := Lexer(lang).Tokenise(nil, code)
		if err != nil {
			return "", fmt.Errorf("tokenise %s: %w", lang, err)
		}
		if err := h.formatter.Format(&buf, h.Style, iterator); err != nil {
			return "", fmt.Errorf("format %s: %w", lang, err)
		}
	}

	buf.WriteString("</code></pre>")
	return buf.String(), nil
}

func (h *Highlighter) openBlock(buf *strings.Builder, lang string) {
	label := template.HTMLEscapeString(lang)
	if h.UseClasses {
		fmt.Fprintf(buf, `<pre class="%s">`, chroma.StandardTypes[chroma.PreWrapper])
	} else {
		style := chromahtml.StyleEntryToCSS(h.Style.Get(chroma.PreWrapper))
		fmt.Fprintf(buf, `<pre style="%s">`, template.HTMLEscapeString(style))
	}
	fmt.Fprintf(buf, `<code class="language-%s" data-lang="%s">`, label, label)
}

// Lexer finds the Chroma lexer for a language label by name, alias,
// or file extension, falling back to plain text.
func Lexer(lang string) chroma.Lexer {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}
