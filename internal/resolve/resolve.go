// Package resolve implements phase two of the pipeline: once every file
// has been scanned, reference names written in documentation are resolved
// against the global table, @within moves and @order directives are
// applied, and the per-page layout is fixed. The element tree itself is
// never mutated beyond the cached within targets.
package resolve

import (
	"strings"

	"luadox/internal/diag"
	"luadox/internal/model"
	"luadox/internal/parse"
)

type Resolver struct {
	sink *diag.Sink
	p    *parse.Parser

	// withinTarget caches the collection each @within element moves to,
	// so the unresolved/ambiguous warnings fire once per element.
	withinTarget map[*model.Ref]*model.Ref
	withinDone   map[*model.Ref]bool
}

func New(sink *diag.Sink, p *parse.Parser) *Resolver {
	return &Resolver{
		sink: sink, p: p,
		withinTarget: map[*model.Ref]*model.Ref{},
		withinDone:   map[*model.Ref]bool{},
	}
}

// Resolve finds the element a reference name denotes, relative to the
// element whose documentation mentions it. The search order is: the
// mentioning element's own collection, each enclosing scope innermost
// first, the global table, and finally the superclass chain. Returns nil
// when nothing matches.
func (r *Resolver) Resolve(name string, from *model.Ref) *model.Ref {
	n := strings.TrimSuffix(strings.TrimSpace(name), "()")
	n = strings.ReplaceAll(n, ":", ".")
	if n == "" {
		return nil
	}
	var candidates []string
	if from != nil {
		if from.Kind.Collection() {
			candidates = append(candidates, from.Name()+"."+n)
		}
		for i := len(from.Scopes) - 1; i >= 0; i-- {
			candidates = append(candidates, from.Scopes[i].Name()+"."+n)
		}
	}
	candidates = append(candidates, n)
	for _, c := range candidates {
		if ref, ok := r.p.Refs[c]; ok {
			return ref
		}
	}
	if from == nil {
		return nil
	}
	// Short names of inherited members resolve through the class chain.
	seen := map[string]bool{}
	for cls := enclosingClass(from); cls != nil; {
		if seen[cls.Name()] {
			break
		}
		seen[cls.Name()] = true
		super := r.superclass(cls)
		if super == nil {
			break
		}
		if ref, ok := r.p.Refs[super.Name()+"."+n]; ok {
			return ref
		}
		cls = super
	}
	return nil
}

// superclass returns the class named by @inherits, or nil.
func (r *Resolver) superclass(cls *model.Ref) *model.Ref {
	if cls.Flags.Inherits == "" {
		return nil
	}
	super, ok := r.p.Refs[cls.Flags.Inherits]
	if !ok || super.Kind != model.Class {
		return nil
	}
	return super
}

// Hierarchy returns the inheritance chain of cls, root superclass first
// and cls itself last. A cycle is cut where it closes, with a warning.
func (r *Resolver) Hierarchy(cls *model.Ref) []*model.Ref {
	var chain []*model.Ref
	seen := map[string]bool{}
	for c := cls; c != nil; c = r.superclass(c) {
		if seen[c.Name()] {
			r.sink.Warnf(diag.Unresolved, cls.File, cls.Line,
				"@inherits cycle detected at %q", c.Name())
			break
		}
		seen[c.Name()] = true
		chain = append(chain, c)
	}
	// Reverse: chain was built subclass-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Subclasses returns the classes directly inheriting from cls, in
// discovery order.
func (r *Resolver) Subclasses(cls *model.Ref) []*model.Ref {
	var subs []*model.Ref
	for _, c := range r.p.Parsed[model.Class] {
		if c != cls && r.superclass(c) == cls {
			subs = append(subs, c)
		}
	}
	return subs
}

// WithinTarget returns the collection an element moves to via @within, or
// nil when it stays put. The first call resolves and caches; the target's
// page is preferred among same-named collections on the element's own
// page, then searched globally with an ambiguity warning.
func (r *Resolver) WithinTarget(ref *model.Ref) *model.Ref {
	if ref.Within == "" {
		return nil
	}
	if r.withinDone[ref] {
		return r.withinTarget[ref]
	}
	t := r.findWithin(ref)
	r.withinDone[ref] = true
	r.withinTarget[ref] = t
	if t != nil {
		ref.WithinTop = t.TopName()
	}
	return t
}

func (r *Resolver) findWithin(ref *model.Ref) *model.Ref {
	// Same page first.
	for _, c := range r.p.Collections[ref.TopName()] {
		if c != ref && (c.Symbol == ref.Within || c.Name() == ref.Within) {
			return c
		}
	}
	var matches []*model.Ref
	for _, top := range r.p.Tops {
		for _, c := range r.p.Collections[top.Name()] {
			if c != ref && (c.Symbol == ref.Within || c.Name() == ref.Within) {
				matches = append(matches, c)
			}
		}
	}
	switch len(matches) {
	case 0:
		r.sink.Warnf(diag.Unresolved, ref.File, ref.Line,
			"@within %q does not name a known collection", ref.Within)
		return nil
	case 1:
		return matches[0]
	default:
		r.sink.Warnf(diag.Unresolved, ref.File, ref.Line,
			"@within %q is ambiguous across %d pages, using the first", ref.Within, len(matches))
		return matches[0]
	}
}

// enclosingClass returns ref itself when it is a class, otherwise the
// innermost class on its scope stack.
func enclosingClass(ref *model.Ref) *model.Ref {
	if ref.Kind == model.Class {
		return ref
	}
	for i := len(ref.Scopes) - 1; i >= 0; i-- {
		if ref.Scopes[i].Kind == model.Class {
			return ref.Scopes[i]
		}
	}
	return nil
}
