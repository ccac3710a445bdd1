// Package render emits the HTML site: one page per top-level collection,
// a landing page, and the search index. Reference syntax is substituted
// with resolved links before markdown rendering, so the markdown engine
// only ever sees ordinary links.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"luadox/internal/model"
)

var (
	// @{ref} / @{ref|text}, with optional surrounding backticks so a code
	// span wrapping a reference becomes a code-styled link.
	luaRefRe = regexp.MustCompile("(`?)@\\{([^}|]+)(?:\\|([^}]*))?\\}(`?)")
	// A single-backtick span whose content is a resolvable name becomes a
	// link; double backticks never match, keeping escapes intact.
	backtickRe = regexp.MustCompile("(^|[^`])`([^` \n]+)`")
)

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
}

// substituteRefs rewrites @{name} / @{name|text} and resolvable backtick
// spans into markdown links relative to the current page. Backtick spans
// go first: a code span wrapping @{...} must survive intact so the
// reference pass can turn it into a code-styled link. Unresolved @{...}
// references warn and degrade to their display text; unresolved backtick
// spans are ordinary code and stay untouched.
func (pc *pageContext) substituteRefs(md string, from *model.Ref) string {
	md = backtickRe.ReplaceAllStringFunc(md, func(m string) string {
		g := backtickRe.FindStringSubmatch(m)
		target := pc.r.res.Resolve(g[2], from)
		if target == nil {
			return m
		}
		return fmt.Sprintf("%s[`%s`](%s)", g[1], g[2], pc.href(target))
	})
	md = luaRefRe.ReplaceAllStringFunc(md, func(m string) string {
		g := luaRefRe.FindStringSubmatch(m)
		name, text := strings.TrimSpace(g[2]), strings.TrimSpace(g[3])
		target := pc.r.res.Resolve(name, from)
		if target == nil {
			pc.r.warnUnresolved(from, name)
			if text == "" {
				text = name
			}
			// Surrounding backticks stay, keeping the code span.
			return g[1] + text + g[4]
		}
		if text == "" {
			text = linkText(target)
		}
		if g[1] == "`" && g[4] == "`" {
			return fmt.Sprintf("[`%s`](%s)", text, pc.href(target))
		}
		return fmt.Sprintf("%s[%s](%s)%s", g[1], text, pc.href(target), g[4])
	})
	return md
}

// linkText is the display text of a reference link when none was given:
// the resolved qualified name, with parens for callables.
func linkText(target *model.Ref) string {
	if target.Callable() {
		return target.Name() + "()"
	}
	return target.Name()
}

func (r *Renderer) markdownToHTML(md string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(md), &buf); err != nil {
		// goldmark only fails on writer errors; a Buffer never does.
		return ""
	}
	return buf.String()
}

var (
	fenceRe    = regexp.MustCompile("(?s)```.*?```")
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdMarkupRe = regexp.MustCompile("[`*_#>|]")
	spaceRe    = regexp.MustCompile(`\s+`)
)

// markdownToText strips markup for the search index.
func markdownToText(md string) string {
	md = fenceRe.ReplaceAllString(md, " ")
	md = luaRefRe.ReplaceAllString(md, "$2")
	md = mdLinkRe.ReplaceAllString(md, "$1")
	md = mdMarkupRe.ReplaceAllString(md, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(md, " "))
}
