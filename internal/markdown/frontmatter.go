package markdown

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrUnclosedFrontMatter is returned when a page opens a front matter block
// and never closes it.
var ErrUnclosedFrontMatter = errors.New("front matter: missing closing ---")

// splitFrontMatter separates a leading `---` delimited YAML block from the body.
// If the page has no front matter, fm is nil and body is the whole input.
func splitFrontMatter(content []byte) (fm, body []byte, err error) {
	nl := []byte("\n")
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = []byte("\r\n")
	}
	open := append([]byte("---"), nl...)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], nil
	}

	closing := append(append(append([]byte{}, nl...), "---"...), nl...)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		if bytes.HasSuffix(rest, append(append([]byte{}, nl...), "---"...)) {
			return rest[:len(rest)-len(nl)-3], nil, nil
		}
		return nil, nil, ErrUnclosedFrontMatter
	}
	return rest[:idx+len(nl)], rest[idx+len(closing):], nil
}

// FrontMatter holds the page variables declared at the top of a page.
type FrontMatter map[string]any

// String returns the string value of key, or "" if it is absent or not a string.
func (f FrontMatter) String(key string) string {
	s, _ := f[key].(string)
	return s
}

func parseFrontMatter(raw []byte) (FrontMatter, error) {
	fm := FrontMatter{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fm, nil
	}
	if err := yaml.Unmarshal(raw, &fm); err != nil {
		return nil, err
	}
	return fm, nil
}
