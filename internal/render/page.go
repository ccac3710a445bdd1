package render

import (
	"fmt"
	"html"
	"slices"
	"strings"

	"luadox/internal/diag"
	"luadox/internal/model"
	"luadox/internal/parse"
	"luadox/internal/resolve"
)

func htmlEscape(s string) string { return html.EscapeString(s) }

func joinLines(lines []model.Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

func (pc *pageContext) renderPage(pages []*resolve.Page, prev, next *resolve.Page) (string, error) {
	var b strings.Builder
	if pc.page.Top.Kind == model.Manual {
		pc.renderManualBody(&b)
	} else {
		pc.renderAPIBody(&b)
	}
	return pc.frame(pc.page.Top.Display(), b.String(), prev, next, pages)
}

func (pc *pageContext) renderManualBody(b *strings.Builder) {
	top := pc.page.Top
	if md := joinLines(top.Content); strings.TrimSpace(md) != "" {
		b.WriteString(pc.r.markdownToHTML(pc.substituteRefs(md, top)))
	}
	for _, s := range pc.page.Sections {
		ref := s.Ref
		if ref == top {
			continue
		}
		level := ref.Flags.Level
		if level < 1 || level > 3 {
			level = 2
		}
		anchor := anchorOf(ref)
		fmt.Fprintf(b, "<h%d id=%q>%s<a class=\"permalink\" href=\"#%s\">&para;</a></h%d>\n",
			level, anchor, htmlEscape(ref.Display()), anchor, level)
		if md := joinLines(ref.Content); strings.TrimSpace(md) != "" {
			b.WriteString(pc.r.markdownToHTML(pc.substituteRefs(md, ref)))
		}
		// API elements moved here with @within.
		pc.renderSynopsis(b, s)
		pc.renderLeafDetails(b, s)
	}
}

func (pc *pageContext) renderAPIBody(b *strings.Builder) {
	top := pc.page.Top
	fmt.Fprintf(b, "<h1 class=%q>%s%s</h1>\n", string(top.Kind), htmlEscape(top.Display()), metaBadge(top))
	if top.Kind == model.Class {
		pc.renderHierarchy(b, top)
	}
	for _, s := range pc.page.Sections {
		ref := s.Ref
		nodes := pc.r.contentOf(ref).Nodes
		if ref != top {
			heading := ref.Display()
			if ref.Kind == model.Section {
				// A section's heading is the first sentence of its
				// preamble; the section name is only the fallback.
				if first, rest := sectionHeading(nodes); first != "" {
					heading, nodes = first, rest
				}
			}
			anchor := anchorOf(ref)
			fmt.Fprintf(b, "<h2 id=%q class=%q>%s%s<a class=\"permalink\" href=\"#%s\">&para;</a></h2>\n",
				anchor, string(ref.Kind), htmlEscape(heading), metaBadge(ref), anchor)
		}
		b.WriteString(pc.renderNodes(nodes, ref))
		pc.renderSynopsis(b, s)
		pc.renderLeafDetails(b, s)
	}
}

// sectionHeading splits the first sentence off a section preamble. The
// remaining nodes render as the section body.
func sectionHeading(nodes []parse.Node) (string, []parse.Node) {
	for i, n := range nodes {
		t, ok := n.(parse.Text)
		if !ok {
			break
		}
		if strings.TrimSpace(t.Markdown) == "" {
			continue
		}
		first, rest := parse.FirstSentence(t.Markdown)
		if first == "" {
			break
		}
		out := slices.Clone(nodes)
		if rest == "" {
			out = slices.Delete(out, i, i+1)
		} else {
			out[i] = parse.Text{Markdown: rest}
		}
		return markdownToText(first), out
	}
	return "", nodes
}

func metaBadge(ref *model.Ref) string {
	if ref.Flags.Meta == "" {
		return ""
	}
	return fmt.Sprintf(` <span class="meta">%s</span>`, htmlEscape(ref.Flags.Meta))
}

// renderHierarchy draws the inheritance box: ancestors above, the class
// itself, direct subclasses below.
func (pc *pageContext) renderHierarchy(b *strings.Builder, cls *model.Ref) {
	chain := pc.r.res.Hierarchy(cls)
	subs := pc.r.res.Subclasses(cls)
	if len(chain) <= 1 && len(subs) == 0 {
		return
	}
	b.WriteString("<div class=\"hierarchy\">\n<div class=\"hierarchy-title\">Class hierarchy</div>\n<ul>\n")
	for depth, c := range chain {
		indent := strings.Repeat(`<span class="indent"></span>`, depth)
		if c == cls {
			fmt.Fprintf(b, "<li>%s<span class=\"self\">%s</span></li>\n", indent, htmlEscape(c.Display()))
		} else {
			fmt.Fprintf(b, "<li>%s<a href=%q>%s</a></li>\n", indent, pc.href(c), htmlEscape(c.Display()))
		}
	}
	indent := strings.Repeat(`<span class="indent"></span>`, len(chain))
	for _, sub := range subs {
		fmt.Fprintf(b, "<li>%s<a href=%q>%s</a></li>\n", indent, pc.href(sub), htmlEscape(sub.Display()))
	}
	b.WriteString("</ul>\n</div>\n")
}

func compactSet(ref *model.Ref) map[string]bool {
	set := map[string]bool{}
	for _, c := range ref.Flags.Compact {
		set[c] = true
	}
	return set
}

func (pc *pageContext) leafName(s *resolve.Section, leaf *model.Ref) string {
	if s.Ref.Flags.Fullnames {
		return leaf.Display()
	}
	return leaf.DisplayCompact()
}

// renderSynopsis emits the summary tables at the top of a section. In
// compact mode the table carries the full description and the detail
// listing is skipped.
func (pc *pageContext) renderSynopsis(b *strings.Builder, s *resolve.Section) {
	compact := compactSet(s.Ref)
	pc.synopsisTable(b, s, "Fields", "fields", s.Fields, compact["fields"])
	pc.synopsisTable(b, s, "Functions", "functions", s.Functions, compact["functions"])
}

func (pc *pageContext) synopsisTable(b *strings.Builder, s *resolve.Section, heading, class string, leaves []*model.Ref, compact bool) {
	if len(leaves) == 0 {
		return
	}
	fmt.Fprintf(b, "<div class=\"synopsis %s\">\n<div class=\"synopsis-heading\">%s</div>\n<table>\n", class, heading)
	for _, leaf := range leaves {
		body := pc.r.contentOf(leaf)
		name := htmlEscape(pc.leafName(s, leaf))
		var nameCell string
		if compact {
			nameCell = fmt.Sprintf("<span id=%q>%s</span>%s", anchorOf(leaf), name, metaBadge(leaf))
		} else {
			nameCell = fmt.Sprintf("<a href=\"#%s\">%s</a>%s", anchorOf(leaf), name, metaBadge(leaf))
		}
		var desc string
		if compact {
			desc = pc.renderNodes(body.Nodes, leaf)
		} else {
			first, _ := parse.FirstSentence(firstText(body))
			desc = pc.r.markdownToHTML(pc.substituteRefs(first, leaf))
		}
		fmt.Fprintf(b, "<tr><td>%s%s</td><td>%s</td></tr>\n", nameCell, pc.typesCell(leaf), desc)
	}
	b.WriteString("</table>\n</div>\n")
}

func firstText(body *parse.Body) string {
	for _, n := range body.Nodes {
		if t, ok := n.(parse.Text); ok {
			return t.Markdown
		}
	}
	return ""
}

func (pc *pageContext) typesCell(leaf *model.Ref) string {
	if len(leaf.Flags.Types) == 0 {
		return ""
	}
	return fmt.Sprintf(` <span class="types">(%s)</span>`, pc.typeLinks(leaf.Flags.Types, leaf))
}

// typeLinks renders a type list, linking every type name that resolves to
// a documented element.
func (pc *pageContext) typeLinks(types []string, from *model.Ref) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		if target := pc.r.res.Resolve(t, from); target != nil {
			parts = append(parts, fmt.Sprintf("<a href=%q>%s</a>", pc.href(target), htmlEscape(t)))
		} else {
			parts = append(parts, fmt.Sprintf("<code>%s</code>", htmlEscape(t)))
		}
	}
	return strings.Join(parts, "|")
}

// renderLeafDetails emits the full field and function listings, unless
// compact mode folded them into the synopsis.
func (pc *pageContext) renderLeafDetails(b *strings.Builder, s *resolve.Section) {
	compact := compactSet(s.Ref)
	if !compact["fields"] {
		for _, leaf := range s.Fields {
			pc.renderField(b, s, leaf)
		}
	}
	if !compact["functions"] {
		for _, leaf := range s.Functions {
			pc.renderFunction(b, s, leaf)
		}
	}
}

func (pc *pageContext) renderField(b *strings.Builder, s *resolve.Section, leaf *model.Ref) {
	body := pc.r.contentOf(leaf)
	fmt.Fprintf(b, "<dl class=\"field\">\n<dt id=%q>%s%s%s<a class=\"permalink\" href=\"#%s\">&para;</a></dt>\n",
		anchorOf(leaf), htmlEscape(pc.leafName(s, leaf)), pc.typesCell(leaf), metaBadge(leaf), anchorOf(leaf))
	fmt.Fprintf(b, "<dd>%s</dd>\n</dl>\n", pc.renderNodes(body.Nodes, leaf))
}

func (pc *pageContext) renderFunction(b *strings.Builder, s *resolve.Section, leaf *model.Ref) {
	body := pc.r.contentOf(leaf)
	pc.checkParams(leaf, body)
	sig := fmt.Sprintf("%s(%s)", pc.leafName(s, leaf), strings.Join(leaf.Params, ", "))
	fmt.Fprintf(b, "<dl class=\"function\">\n<dt id=%q><code>%s</code>%s<a class=\"permalink\" href=\"#%s\">&para;</a></dt>\n",
		anchorOf(leaf), htmlEscape(sig), metaBadge(leaf), anchorOf(leaf))
	b.WriteString("<dd>\n")
	b.WriteString(pc.renderNodes(body.Nodes, leaf))
	if len(body.Params) > 0 {
		b.WriteString("<div class=\"list-heading\">Parameters</div>\n<table class=\"params\">\n")
		for _, p := range body.Params {
			fmt.Fprintf(b, "<tr><td><code>%s</code></td><td>%s</td><td>%s</td></tr>\n",
				htmlEscape(p.Name), pc.typeLinks(p.Types, leaf),
				pc.r.markdownToHTML(pc.substituteRefs(p.Desc, leaf)))
		}
		b.WriteString("</table>\n")
	}
	if len(body.Returns) > 0 {
		b.WriteString("<div class=\"list-heading\">Returns</div>\n<table class=\"returns\">\n")
		for i, ret := range body.Returns {
			fmt.Fprintf(b, "<tr><td>%d.</td><td>%s</td><td>%s</td></tr>\n",
				i+1, pc.typeLinks(ret.Types, leaf),
				pc.r.markdownToHTML(pc.substituteRefs(ret.Desc, leaf)))
		}
		b.WriteString("</table>\n")
	}
	b.WriteString("</dd>\n</dl>\n")
}

// checkParams warns about signature parameters a partially documented
// function leaves out. Fully undocumented parameter lists stay silent.
func (pc *pageContext) checkParams(fn *model.Ref, body *parse.Body) {
	if len(body.Params) == 0 {
		return
	}
	documented := map[string]bool{}
	for _, p := range body.Params {
		documented[p.Name] = true
	}
	for _, name := range fn.Params {
		if name == "..." || documented[name] {
			continue
		}
		pc.r.sink.Warnf(diag.Parse, fn.File, fn.Line,
			"parameter %q of %s has no @tparam", name, fn.Name())
	}
}

// renderNodes turns a parsed documentation body into HTML.
func (pc *pageContext) renderNodes(nodes []parse.Node, from *model.Ref) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n := n.(type) {
		case parse.Text:
			b.WriteString(pc.r.markdownToHTML(pc.substituteRefs(n.Markdown, from)))
		case parse.CodeBlock:
			if n.Heading != "" {
				fmt.Fprintf(&b, "<div class=\"code-heading\">%s</div>\n", htmlEscape(n.Heading))
			}
			fmt.Fprintf(&b, "<pre><code class=\"language-%s\">%s</code></pre>\n",
				htmlEscape(n.Lang), htmlEscape(strings.Join(n.Lines, "\n")))
		case parse.Admonition:
			fmt.Fprintf(&b, "<div class=\"admonition %s\">\n<div class=\"admonition-title\">%s</div>\n",
				n.Kind, htmlEscape(n.Title))
			b.WriteString(pc.renderNodes(n.Body, from))
			b.WriteString("</div>\n")
		case parse.SeeAlso:
			links := make([]string, 0, len(n.Refs))
			for _, name := range n.Refs {
				if target := pc.r.res.Resolve(name, from); target != nil {
					links = append(links, fmt.Sprintf("<a href=%q>%s</a>",
						pc.href(target), htmlEscape(linkText(target))))
				} else {
					pc.r.warnUnresolved(from, name)
					links = append(links, htmlEscape(name))
				}
			}
			fmt.Fprintf(&b, "<div class=\"see-also\"><span>See also:</span> %s</div>\n",
				strings.Join(links, ", "))
		}
	}
	return b.String()
}
