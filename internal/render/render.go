package render

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"luadox/internal/config"
	"luadox/internal/diag"
	"luadox/internal/model"
	"luadox/internal/parse"
	"luadox/internal/resolve"
)

type Renderer struct {
	sink *diag.Sink
	p    *parse.Parser
	res  *resolve.Resolver
	cfg  *config.Config
	md   goldmark.Markdown

	// warned dedupes unresolved-reference warnings: an element's content
	// is rendered both in the synopsis and in the detail listing.
	warned map[string]bool
	bodies map[*model.Ref]*parse.Body
}

func New(sink *diag.Sink, p *parse.Parser, res *resolve.Resolver, cfg *config.Config) *Renderer {
	return &Renderer{
		sink: sink, p: p, res: res, cfg: cfg, md: newMarkdown(),
		warned: map[string]bool{},
		bodies: map[*model.Ref]*parse.Body{},
	}
}

// contentOf parses an element's documentation body once, caching the
// result so repeat renders don't repeat parse warnings.
func (r *Renderer) contentOf(ref *model.Ref) *parse.Body {
	if body, ok := r.bodies[ref]; ok {
		return body
	}
	body := parse.ParseContent(r.sink, ref.File, ref.Content, ref.Kind != model.Manual)
	r.bodies[ref] = body
	return body
}

// warnUnresolved reports an unresolved reference once per site, however
// many times the containing content gets rendered.
func (r *Renderer) warnUnresolved(from *model.Ref, name string) {
	key := fmt.Sprintf("%s:%d:%s", from.File, from.Line, name)
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.sink.Warnf(diag.Unresolved, from.File, from.Line,
		"reference %q could not be resolved", name)
}

// pageContext carries the state needed to emit links relative to the page
// being rendered. A nil page means a root-level page (landing, search).
type pageContext struct {
	r      *Renderer
	page   *resolve.Page
	prefix string
}

// pagePath returns a topref's output path relative to the output root.
// The index manual page becomes the site root.
func pagePath(top *model.Ref) string {
	if top.Kind == model.Manual && top.Symbol == "index" {
		return "index.html"
	}
	return string(top.Kind) + "/" + top.Name() + ".html"
}

func prefixFor(path string) string {
	if strings.Contains(path, "/") {
		return "../"
	}
	return ""
}

// anchorOf returns the fragment identifier of an element on its page.
func anchorOf(ref *model.Ref) string {
	switch ref.Kind {
	case model.Module, model.Class, model.Manual:
		return ""
	case model.Section:
		return ref.Symbol
	default:
		return ref.Name()
	}
}

// href returns a link to ref relative to the current page.
func (pc *pageContext) href(ref *model.Ref) string {
	topName := ref.TopName()
	if ref.WithinTop != "" {
		topName = ref.WithinTop
	}
	top := pc.r.p.Top(topName)
	anchor := anchorOf(ref)
	if top == nil {
		return "#" + anchor
	}
	if pc.page != nil && top == pc.page.Top {
		return "#" + anchor
	}
	h := pc.prefix + pagePath(top)
	if anchor != "" {
		h += "#" + anchor
	}
	return h
}

// WriteSite renders every page plus the landing page, search page, search
// index, and static assets into outdir.
func (r *Renderer) WriteSite(outdir string) error {
	pages := r.visiblePages()
	for _, dir := range []string{"", "module", "class", "manual"} {
		if err := os.MkdirAll(filepath.Join(outdir, dir), 0o755); err != nil {
			return err
		}
	}
	var hasIndex bool
	for i, page := range pages {
		path := pagePath(page.Top)
		if path == "index.html" {
			hasIndex = true
		}
		pc := &pageContext{r: r, page: page, prefix: prefixFor(path)}
		var prev, next *resolve.Page
		if i > 0 {
			prev = pages[i-1]
		}
		if i < len(pages)-1 {
			next = pages[i+1]
		}
		html, err := pc.renderPage(pages, prev, next)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(outdir, filepath.FromSlash(path)), []byte(html), 0o644); err != nil {
			return err
		}
		r.sink.Infof("rendered %s", path)
	}
	if !hasIndex {
		if err := r.writeLanding(outdir, pages); err != nil {
			return err
		}
	}
	if err := r.writeSearch(outdir, pages); err != nil {
		return err
	}
	return r.writeAssets(outdir)
}

// visiblePages filters out empty implicit modules: a file that was pulled
// in by require() but documents nothing renderable.
func (r *Renderer) visiblePages() []*resolve.Page {
	all := r.res.BuildLayout()
	pages := make([]*resolve.Page, 0, len(all))
	for _, p := range all {
		if p.Top.Implicit && p.Empty() {
			continue
		}
		pages = append(pages, p)
	}
	return pages
}

// navLink is one sidebar or topbar link.
type navLink struct {
	Title   string
	Href    string
	Current bool
}

// frameData feeds the page frame template.
type frameData struct {
	Title       string
	ProjectName string
	Prefix      string
	CSS         string
	CustomCSS   string
	Favicon     string
	Home        string
	Links       []config.Link
	Prev        *navLink
	Next        *navLink
	Contents    []navLink
	Manual      []navLink
	Classes     []navLink
	Modules     []navLink
	Body        template.HTML
}

func (pc *pageContext) frame(title string, body string, prev, next *resolve.Page, pages []*resolve.Page) (string, error) {
	r := pc.r
	data := frameData{
		Title:       title,
		ProjectName: r.cfg.Project.Name,
		Prefix:      pc.prefix,
		CSS:         pc.prefix + "luadox.css",
		Home:        pc.prefix + "index.html",
		Links:       r.cfg.Links,
	}
	if title == "" {
		data.Title = data.ProjectName
	} else if data.ProjectName != "" {
		data.Title = title + " - " + data.ProjectName
	}
	if r.cfg.Project.CSS != "" {
		data.CustomCSS = pc.prefix + filepath.Base(r.cfg.Project.CSS)
	}
	if r.cfg.Project.Favicon != "" {
		data.Favicon = pc.prefix + filepath.Base(r.cfg.Project.Favicon)
	}
	if prev != nil {
		data.Prev = &navLink{Title: prev.Top.Display(), Href: pc.hrefTop(prev.Top)}
	}
	if next != nil {
		data.Next = &navLink{Title: next.Top.Display(), Href: pc.hrefTop(next.Top)}
	}
	if pc.page != nil {
		for _, s := range pc.page.Sections {
			if s.Ref == pc.page.Top {
				continue
			}
			data.Contents = append(data.Contents, navLink{Title: s.Ref.Display(), Href: "#" + anchorOf(s.Ref)})
		}
	}
	for _, p := range pages {
		link := navLink{Title: p.Top.Display(), Href: pc.hrefTop(p.Top), Current: pc.page == p}
		switch p.Top.Kind {
		case model.Manual:
			data.Manual = append(data.Manual, link)
		case model.Class:
			data.Classes = append(data.Classes, link)
		case model.Module:
			data.Modules = append(data.Modules, link)
		}
	}
	data.Body = template.HTML(body)
	var b strings.Builder
	if err := pageTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering page frame: %w", err)
	}
	return b.String(), nil
}

// hrefTop links to a page top, bypassing the same-page shortcut so the
// topbar and sidebar always carry real paths.
func (pc *pageContext) hrefTop(top *model.Ref) string {
	return pc.prefix + pagePath(top)
}

// writeLanding emits the root index.html when no index manual page exists:
// the configured hometext, or a bare listing of documented pages.
func (r *Renderer) writeLanding(outdir string, pages []*resolve.Page) error {
	pc := &pageContext{r: r}
	body := ""
	if ht := r.cfg.Project.HomeText; ht != "" {
		body = r.markdownToHTML(pc.substituteRefs(ht, nil))
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "<h1>%s</h1>\n<p>API documentation.</p>\n", htmlEscape(r.cfg.Project.Name))
		b.WriteString("<ul>\n")
		for _, p := range pages {
			fmt.Fprintf(&b, "<li><a href=%q>%s</a></li>\n", pagePath(p.Top), htmlEscape(p.Top.Display()))
		}
		b.WriteString("</ul>\n")
		body = b.String()
	}
	html, err := pc.frame("", body, nil, nil, pages)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "index.html"), []byte(html), 0o644)
}
