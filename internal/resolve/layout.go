package resolve

import (
	"luadox/internal/model"
)

// Section is one collection with its member leaves in final render order.
type Section struct {
	Ref       *model.Ref
	Fields    []*model.Ref
	Functions []*model.Ref
}

// Page is one output page: a top-level collection and its sections.
type Page struct {
	Top      *model.Ref
	Sections []*Section
}

// Empty reports whether the page would render no content at all, which is
// how empty implicit modules get suppressed.
func (p *Page) Empty() bool {
	if len(p.Top.Content) > 0 {
		return false
	}
	for _, s := range p.Sections {
		if len(s.Fields)+len(s.Functions) > 0 {
			return false
		}
		if s.Ref != p.Top && len(s.Ref.Content) > 0 {
			return false
		}
	}
	return true
}

// BuildLayout fixes the final page structure: @within moves applied, then
// @order splices at each level (pages, sections, leaves).
func (r *Resolver) BuildLayout() []*Page {
	perTop := map[string][]*model.Ref{}
	for _, top := range r.p.Tops {
		for _, c := range r.p.Collections[top.Name()] {
			dest := top.Name()
			if t := r.WithinTarget(c); t != nil {
				dest = t.TopName()
			}
			perTop[dest] = append(perTop[dest], c)
		}
	}
	var pages []*Page
	for _, top := range r.Reorder(r.p.Tops) {
		page := &Page{Top: top}
		for _, c := range r.Reorder(perTop[top.Name()]) {
			page.Sections = append(page.Sections, &Section{
				Ref:       c,
				Fields:    r.Reorder(r.members(c, model.Field)),
				Functions: r.Reorder(r.members(c, model.Function)),
			})
		}
		pages = append(pages, page)
	}
	return pages
}

// members selects the leaves grouped under collection c: moved there by
// @within, or declared under its section on the same page.
func (r *Resolver) members(c *model.Ref, kind model.Kind) []*model.Ref {
	var out []*model.Ref
	for _, e := range r.p.Parsed[kind] {
		if t := r.WithinTarget(e); t != nil {
			if t == c {
				out = append(out, e)
			}
			continue
		}
		if e.Section == c.Symbol && e.TopName() == c.TopName() {
			out = append(out, e)
		}
	}
	return out
}
