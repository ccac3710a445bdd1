// Package model defines the documentation element tree.
//
// Every documentable thing is a Ref: modules, classes, sections, tables,
// functions, fields, and manual pages. A top-level Ref ("topref") is
// anything rendered to its own page; all other Refs trace back to one via
// their scope stack. A Ref is globally addressable by its qualified name,
// which is derived from the scope stack and the naming modifier tags.
package model

import (
	"strings"
)

// Kind is the element kind.
type Kind string

const (
	Module   Kind = "module"
	Class    Kind = "class"
	Section  Kind = "section"
	Table    Kind = "table"
	Function Kind = "function"
	Field    Kind = "field"
	Manual   Kind = "manual"
)

// Top reports whether the kind owns its own output page.
func (k Kind) Top() bool {
	return k == Module || k == Class || k == Manual
}

// Collection reports whether the kind can contain leaf elements.
func (k Kind) Collection() bool {
	return k == Module || k == Class || k == Section || k == Table || k == Manual
}

// Line is one line of documentation content with its source line number.
type Line struct {
	N    int
	Text string
}

// OrderDirective is a parsed @order tag.
type OrderDirective struct {
	Whence string // first, last, before, after
	Anchor string // sibling symbol for before/after
}

// Flags holds the naming and rendering modifiers applied to a Ref.
type Flags struct {
	Scope     string // @scope: qualification prefix override ("." = global)
	Rename    string // @rename: replace the reference name
	Display   string // @display: presentation override
	Inherits  string // @inherits: superclass name (classes only)
	Meta      string // @meta: free-text badge
	Types     []string
	Order     *OrderDirective
	Compact   []string // "fields" and/or "functions"
	Fullnames bool
	Level     int // heading level for manual sections
}

// Ref is a single documentation element.
type Ref struct {
	Kind   Kind
	File   string
	Line   int
	Symbol string // as written in source, e.g. Class:method

	// Scopes is the stack of enclosing collections at declaration time,
	// bottom first (the file's module). Sections are tracked separately via
	// Section/SectionRef; only modules, classes and tables appear here.
	Scopes []*Ref

	// Section is the name of the section the element belongs to, and
	// SectionRef the section (or collection) element itself.
	Section    string
	SectionRef *Ref

	// Within is the unresolved @within target; WithinTop caches the
	// top-level collection the target lives in once resolved.
	Within    string
	WithinTop string

	// Implicit marks a module generated for a file lacking @module.
	Implicit bool

	// Level is the brace-nesting depth at declaration, used to close table
	// scopes. -1 for implicit modules.
	Level int

	// Content is the raw documentation body (comment markers stripped).
	Content []Line

	// Params holds function argument names as parsed from source.
	Params []string

	// Aliases are extra reference names registered for this element.
	Aliases []string

	Flags Flags

	// Added guards against double registration.
	Added bool
}

// Scope returns the innermost enclosing collection, or nil for toprefs.
func (r *Ref) Scope() *Ref {
	if len(r.Scopes) == 0 {
		return nil
	}
	return r.Scopes[len(r.Scopes)-1]
}

// Callable reports whether a resolved link to r should display trailing
// parens.
func (r *Ref) Callable() bool {
	return r.Kind == Function
}

// Name returns the fully qualified reference name.
//
// Modules, classes and manual pages are inherently top level and use their
// own (possibly renamed) symbol. Sections share a flat namespace with
// toprefs, except manual sections which are qualified by page id. Tables
// chain the names of all enclosing tables. Functions and fields qualify
// under their innermost scope unless @scope overrides the prefix.
func (r *Ref) Name() string {
	switch r.Kind {
	case Module, Class, Manual:
		if r.Flags.Rename != "" {
			return r.Flags.Rename
		}
		return r.Symbol
	case Section:
		if s := r.Scope(); s != nil && s.Kind == Manual {
			return s.Symbol + "." + r.Symbol
		}
		return r.Symbol
	case Table:
		var b strings.Builder
		for _, s := range r.Scopes {
			if s.Kind == Table {
				b.WriteString(s.Symbol)
				b.WriteByte('.')
			}
		}
		b.WriteString(r.Symbol)
		return b.String()
	}
	return r.leafName()
}

func (r *Ref) leafName() string {
	symbol := r.effectiveSymbol()
	if scope := r.scopeOverride(); scope != "" {
		short := shortName(symbol)
		if scope == "." {
			return short
		}
		return scope + "." + short
	}
	symbol = strings.ReplaceAll(symbol, ":", ".")
	if strings.Contains(symbol, ".") {
		// Already qualified in source (e.g. M.submodule.fn = ...).
		return symbol
	}
	if s := r.Scope(); s != nil {
		return s.Name() + "." + symbol
	}
	return symbol
}

// effectiveSymbol applies @rename and the class-static heuristic to the
// as-parsed symbol.
func (r *Ref) effectiveSymbol() string {
	symbol := r.Symbol
	if s := r.Scope(); s != nil && s.Kind == Class {
		// A field under Class.static.* is a metaclass static; drop the
		// .static segment so it qualifies directly under the class.
		symbol = strings.ReplaceAll(symbol, ".static.", ".")
	}
	if rename := r.Flags.Rename; rename != "" {
		if strings.Contains(rename, ".") {
			symbol = rename
		} else {
			symbol = replaceShortName(symbol, rename)
		}
	}
	return symbol
}

// scopeOverride returns the effective @scope prefix: the element's own, or
// the one inherited from its section.
func (r *Ref) scopeOverride() string {
	if r.Flags.Scope != "" {
		return r.Flags.Scope
	}
	if r.SectionRef != nil {
		return r.SectionRef.Flags.Scope
	}
	return ""
}

// TopName returns the name of the top-level collection this Ref renders
// under. Toprefs return their own name.
func (r *Ref) TopName() string {
	if r.Kind.Top() || r.Scope() == nil {
		return r.Name()
	}
	if s := r.Scope(); s.Kind == Manual {
		return s.Symbol
	}
	for i := len(r.Scopes) - 1; i >= 0; i-- {
		if s := r.Scopes[i]; s.Kind == Class || s.Kind == Module {
			return s.Name()
		}
	}
	return ""
}

// Display returns the presentation name: @display if given, otherwise the
// symbol qualified the way it reads in source.
func (r *Ref) Display() string {
	if r.Flags.Display != "" {
		return r.Flags.Display
	}
	if r.Kind == Function || r.Kind == Field {
		symbol := r.effectiveSymbol()
		if scope := r.scopeOverride(); scope != "" {
			short := shortName(symbol)
			if scope == "." {
				return short
			}
			delim := "."
			if strings.Contains(r.Symbol, ":") {
				delim = ":"
			}
			return scope + delim + short
		}
		if !strings.ContainsAny(symbol, ".:") {
			if s := r.Scope(); s != nil {
				return s.Name() + "." + symbol
			}
		}
		return symbol
	}
	if r.Kind == Manual {
		return r.Name()
	}
	return r.Symbol
}

// DisplayCompact returns the display name with the topref prefix stripped,
// used in synopsis tables on the topref's own page.
func (r *Ref) DisplayCompact() string {
	if r.Flags.Display != "" {
		return r.Flags.Display
	}
	top := r.TopName()
	if top != "" && strings.HasPrefix(r.Symbol, top) {
		return strings.TrimLeft(r.Symbol[len(top):], ":.")
	}
	return r.Symbol
}

func shortName(symbol string) string {
	if i := strings.LastIndexAny(symbol, ".:"); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}

func replaceShortName(symbol, short string) string {
	if i := strings.LastIndexAny(symbol, ".:"); i >= 0 {
		return symbol[:i+1] + short
	}
	return short
}
