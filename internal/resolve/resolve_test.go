package resolve

import (
	"testing"

	"luadox/internal/diag"
	"luadox/internal/model"
	"luadox/internal/parse"
)

func scan(t *testing.T, src string) (*Resolver, *parse.Parser, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink(nil)
	p := parse.New(sink)
	p.ParseSource("test.lua", []byte(src), "")
	return New(sink, p), p, sink
}

const classChain = `
--- Base animal.
-- @class Animal
local Animal = class()

--- Makes a noise.
function Animal:speak() end

--- Walks around.
function Animal:walk() end

--- A dog.
-- @class Dog
-- @inherits Animal
local Dog = class(Animal)

--- Shadows the base noise.
function Dog:speak() end

--- A puppy.
-- @class Puppy
-- @inherits Dog
local Puppy = class(Dog)

--- Chews things.
function Puppy:chew() end
`

func TestResolveRoundTrip(t *testing.T) {
	t.Parallel()
	r, p, _ := scan(t, classChain)
	for name, ref := range p.Refs {
		if got := r.Resolve(name, nil); got != ref {
			t.Errorf("Resolve(%q) = %v, want %v", name, got, ref)
		}
	}
}

func TestResolveShortNameInScope(t *testing.T) {
	t.Parallel()
	r, p, _ := scan(t, classChain)
	from := p.Refs["Dog.speak"]
	if got := r.Resolve("walk", from); got != p.Refs["Animal.walk"] {
		t.Errorf("Resolve(walk) = %v", got)
	}
}

func TestInheritanceShadowing(t *testing.T) {
	t.Parallel()
	r, p, _ := scan(t, classChain)
	from := p.Refs["Puppy.chew"]
	// Dog shadows Animal.speak, so the nearest ancestor wins.
	if got := r.Resolve("speak", from); got != p.Refs["Dog.speak"] {
		t.Errorf("Resolve(speak) = %v, want Dog.speak", got)
	}
	if got := r.Resolve("walk", from); got != p.Refs["Animal.walk"] {
		t.Errorf("Resolve(walk) = %v, want Animal.walk", got)
	}
}

func TestResolveNormalizesSyntax(t *testing.T) {
	t.Parallel()
	r, p, _ := scan(t, classChain)
	for _, name := range []string{"Dog.speak", "Dog:speak", "Dog:speak()", "Dog.speak()"} {
		if got := r.Resolve(name, nil); got != p.Refs["Dog.speak"] {
			t.Errorf("Resolve(%q) = %v", name, got)
		}
	}
}

func TestResolveMissingReturnsNil(t *testing.T) {
	t.Parallel()
	r, _, _ := scan(t, classChain)
	if got := r.Resolve("nonexistent", nil); got != nil {
		t.Errorf("Resolve(nonexistent) = %v, want nil", got)
	}
}

func TestInheritsCycleTerminates(t *testing.T) {
	t.Parallel()
	r, p, sink := scan(t, `
--- First.
-- @class A
-- @inherits B
local A = class()

--- Second.
-- @class B
-- @inherits A
local B = class()
`)
	if got := r.Resolve("nothing", p.Refs["A"]); got != nil {
		t.Errorf("Resolve = %v, want nil", got)
	}
	chain := r.Hierarchy(p.Refs["A"])
	if len(chain) != 2 {
		t.Errorf("Hierarchy = %v", chain)
	}
	if sink.CountKind(diag.Unresolved) != 1 {
		t.Errorf("want one cycle warning, got %v", sink.Warnings())
	}
}

func TestHierarchyOrder(t *testing.T) {
	t.Parallel()
	r, p, _ := scan(t, classChain)
	chain := r.Hierarchy(p.Refs["Puppy"])
	if len(chain) != 3 || chain[0] != p.Refs["Animal"] || chain[2] != p.Refs["Puppy"] {
		t.Errorf("Hierarchy = %v", chain)
	}
	subs := r.Subclasses(p.Refs["Animal"])
	if len(subs) != 1 || subs[0] != p.Refs["Dog"] {
		t.Errorf("Subclasses = %v", subs)
	}
}

func orderRefs(syms ...string) []*model.Ref {
	refs := make([]*model.Ref, len(syms))
	for i, s := range syms {
		refs[i] = &model.Ref{Kind: model.Function, Symbol: s}
	}
	return refs
}

func names(refs []*model.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Symbol
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReorderFirstAndLast(t *testing.T) {
	t.Parallel()
	r := New(diag.NewSink(nil), parse.New(diag.NewSink(nil)))
	refs := orderRefs("a", "b", "c")
	refs[2].Flags.Order = &model.OrderDirective{Whence: "first"}
	refs[0].Flags.Order = &model.OrderDirective{Whence: "last"}
	got := names(r.Reorder(refs))
	if !equal(got, []string{"c", "b", "a"}) {
		t.Errorf("Reorder = %v", got)
	}
}

func TestReorderAfterChain(t *testing.T) {
	t.Parallel()
	r := New(diag.NewSink(nil), parse.New(diag.NewSink(nil)))
	refs := orderRefs("x", "y", "a")
	refs[0].Flags.Order = &model.OrderDirective{Whence: "after", Anchor: "a"}
	refs[1].Flags.Order = &model.OrderDirective{Whence: "after", Anchor: "x"}
	got := names(r.Reorder(refs))
	if !equal(got, []string{"a", "x", "y"}) {
		t.Errorf("Reorder = %v", got)
	}
}

func TestReorderBefore(t *testing.T) {
	t.Parallel()
	r := New(diag.NewSink(nil), parse.New(diag.NewSink(nil)))
	refs := orderRefs("a", "b", "c")
	refs[2].Flags.Order = &model.OrderDirective{Whence: "before", Anchor: "a"}
	got := names(r.Reorder(refs))
	if !equal(got, []string{"c", "a", "b"}) {
		t.Errorf("Reorder = %v", got)
	}
}

func TestReorderMissingAnchorWarns(t *testing.T) {
	t.Parallel()
	sink := diag.NewSink(nil)
	r := New(sink, parse.New(sink))
	refs := orderRefs("a", "b")
	refs[0].Flags.Order = &model.OrderDirective{Whence: "after", Anchor: "zz"}
	got := names(r.Reorder(refs))
	if !equal(got, []string{"a", "b"}) {
		t.Errorf("Reorder = %v, want source order kept", got)
	}
	if sink.CountKind(diag.Order) != 1 {
		t.Errorf("warnings: %v", sink.Warnings())
	}
}

func TestWithinMovesElement(t *testing.T) {
	t.Parallel()
	r, p, sink := scan(t, `
--- A module.
-- @module m

--- Special stuff.
-- @section special

--- Plain helper.
function m.plain() end

--- Moved helper.
-- @within special
function m.moved() end
`)
	pages := r.BuildLayout()
	if len(pages) != 1 {
		t.Fatalf("pages = %v", pages)
	}
	var special *Section
	for _, s := range pages[0].Sections {
		if s.Ref.Name() == "special" {
			special = s
		}
	}
	if special == nil {
		t.Fatal("section special missing from layout")
	}
	found := false
	for _, fn := range special.Functions {
		if fn == p.Refs["m.moved"] {
			found = true
		}
	}
	if !found {
		t.Errorf("m.moved not in section special: %v", names(special.Functions))
	}
	if sink.CountKind(diag.Unresolved) != 0 {
		t.Errorf("warnings: %v", sink.Warnings())
	}
}

func TestWithinUnknownWarns(t *testing.T) {
	t.Parallel()
	r, _, sink := scan(t, `
--- A module.
-- @module m

--- Lost.
-- @within nosuchsection
function m.lost() end
`)
	r.BuildLayout()
	if sink.CountKind(diag.Unresolved) != 1 {
		t.Errorf("warnings: %v", sink.Warnings())
	}
}
