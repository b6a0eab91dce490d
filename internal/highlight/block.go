package highlight

import (
	"strings"

	"github.com/osteele/liquid"
	"github.com/osteele/liquid/render"
)

// BlockName is the Liquid block that highlights its body.
const BlockName = "highlight"

// Language returns the language named by highlight tag arguments.
// The first field is the language; options such as "linenos" that follow
// it are ignored. Empty arguments give DefaultLanguage.
func Language(args string) string {
	if fields := strings.Fields(args); len(fields) > 0 {
		return fields[0]
	}
	return DefaultLanguage
}

// RegisterBlock installs {% highlight lang %}...{% endhighlight %} on engine.
//
// The tag arguments are read by Language. Leading and trailing newlines of the
// body are dropped.
func RegisterBlock(engine *liquid.Engine, h *Highlighter) {
	engine.RegisterBlock(BlockName, func(c render.Context) (string, error) {
		body, err := c.InnerString()
		if err != nil {
			return "", err
		}
		return h.Highlight(Language(c.TagArgs()), strings.Trim(body, "\r\n"))
	})
}
