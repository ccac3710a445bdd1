package parse

import (
	"strings"
	"testing"

	"luadox/internal/diag"
	"luadox/internal/model"
)

func scan(t *testing.T, src string) (*Parser, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink(nil)
	p := New(sink)
	p.ParseSource("test.lua", []byte(src), "")
	return p, sink
}

func mustRef(t *testing.T, p *Parser, name string) *model.Ref {
	t.Helper()
	ref, ok := p.Refs[name]
	if !ok {
		keys := make([]string, 0, len(p.Refs))
		for k := range p.Refs {
			keys = append(keys, k)
		}
		t.Fatalf("reference %q not registered; have %v", name, keys)
	}
	return ref
}

func TestImplicitModule(t *testing.T) {
	t.Parallel()
	p, sink := scan(t, `
--- Greets someone.
function greet(name)
end
`)
	fn := mustRef(t, p, "test.greet")
	if fn.Kind != model.Function {
		t.Errorf("Kind = %s, want function", fn.Kind)
	}
	if len(fn.Params) != 1 || fn.Params[0] != "name" {
		t.Errorf("Params = %v, want [name]", fn.Params)
	}
	mod := mustRef(t, p, "test")
	if !mod.Implicit {
		t.Error("module should be implicit")
	}
	if sink.CountKind(diag.Parse) != 1 {
		t.Errorf("want one implicit-module warning, got %v", sink.Warnings())
	}
}

func TestExplicitModule(t *testing.T) {
	t.Parallel()
	p, sink := scan(t, `
--- My module.
-- @module mymod

--- Does things.
function mymod.work(a, b)
end
`)
	if n := sink.Count(); n != 0 {
		t.Fatalf("want no warnings, got %v", sink.Warnings())
	}
	if len(p.Tops) != 1 || p.Tops[0].Name() != "mymod" {
		t.Fatalf("Tops = %v", p.Tops)
	}
	fn := mustRef(t, p, "mymod.work")
	if got := strings.Join(fn.Params, ","); got != "a,b" {
		t.Errorf("Params = %q, want a,b", got)
	}
}

func TestClassMethodColonSyntax(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- A dog.
-- @class Dog
local Dog = class()

--- Barks.
function Dog:bark(volume)
end
`)
	cls := mustRef(t, p, "Dog")
	if cls.Kind != model.Class {
		t.Fatalf("Kind = %s, want class", cls.Kind)
	}
	fn := mustRef(t, p, "Dog.bark")
	if fn.Display() != "Dog:bark" {
		t.Errorf("Display() = %q, want Dog:bark", fn.Display())
	}
}

func TestSelfFieldStripped(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- A cat.
-- @class Cat
local Cat = class()

--- Number of lives.
self.lives = 9
`)
	f := mustRef(t, p, "Cat.lives")
	if f.Kind != model.Field || f.Symbol != "lives" {
		t.Errorf("got %s %q, want field lives", f.Kind, f.Symbol)
	}
}

func TestNestedTableQualification(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- A module.
-- @module m

--- Outer table.
-- @table outer
local outer = {
    --- Inner table.
    -- @table inner
    inner = {
        --- Deep value.
        x = 1,
    },
}

--- Back at module level.
top = true
`)
	mustRef(t, p, "outer")
	mustRef(t, p, "outer.inner")
	mustRef(t, p, "outer.inner.x")
	// The closing braces pop the table scopes, so a later field
	// attaches to the module again.
	f := mustRef(t, p, "m.top")
	if f.Section != "m" {
		t.Errorf("Section = %q, want m", f.Section)
	}
}

func TestSectionGroupsElements(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- A module.
-- @module m

--- Helpers below.
-- @section helpers

--- A helper.
function m.helper()
end
`)
	sec := mustRef(t, p, "helpers")
	if sec.Kind != model.Section {
		t.Fatalf("Kind = %s, want section", sec.Kind)
	}
	fn := mustRef(t, p, "m.helper")
	if fn.Section != "helpers" {
		t.Errorf("Section = %q, want helpers", fn.Section)
	}
	cols := p.Collections["m"]
	if len(cols) != 2 || cols[0].Name() != "m" || cols[1].Name() != "helpers" {
		t.Errorf("Collections[m] = %v", cols)
	}
}

func TestFieldTagInjectsField(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- Options table.
-- @table opts
-- @field retries How many times to retry.
-- @field timeout Seconds to wait.
local opts = {}
`)
	f := mustRef(t, p, "opts.retries")
	if len(f.Content) != 1 || !strings.Contains(f.Content[0].Text, "retry") {
		t.Errorf("Content = %v", f.Content)
	}
	mustRef(t, p, "opts.timeout")
}

func TestDuplicateLaterWins(t *testing.T) {
	t.Parallel()
	p, sink := scan(t, `
--- A module.
-- @module util

--- First.
function util.go()
end

--- Second.
function util.go()
end
`)
	if n := sink.CountKind(diag.Collision); n != 1 {
		t.Fatalf("want 1 collision warning, got %v", sink.Warnings())
	}
	ref := mustRef(t, p, "util.go")
	if !strings.Contains(ref.Content[0].Text, "Second") {
		t.Errorf("later definition should win, got %v", ref.Content)
	}
}

func TestAliasRegistersExtraName(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- A module.
-- @module m

--- Does it.
-- @alias doit
function m.do_the_thing()
end
`)
	long := mustRef(t, p, "m.do_the_thing")
	short := mustRef(t, p, "doit")
	if long != short {
		t.Error("alias should resolve to the same element")
	}
}

func TestModulePatternNotAField(t *testing.T) {
	t.Parallel()
	p, sink := scan(t, `
--- A module.
-- @module m
local m = {}
`)
	if _, ok := p.Refs["m.m"]; ok {
		t.Error("module table assignment must not register a field")
	}
	if ref := mustRef(t, p, "m"); ref.Kind != model.Module {
		t.Errorf("Kind = %s, want module", ref.Kind)
	}
	if n := sink.Count(); n != 0 {
		t.Errorf("want no warnings, got %v", sink.Warnings())
	}
}

func TestMultilineSignature(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- A module.
-- @module m

--- Long signature.
function m.connect(host,
                   port,
                   timeout)
end
`)
	fn := mustRef(t, p, "m.connect")
	if got := strings.Join(fn.Params, ","); got != "host,port,timeout" {
		t.Errorf("Params = %q", got)
	}
}

func TestDisconnectedBlockWarns(t *testing.T) {
	t.Parallel()
	_, sink := scan(t, `
--- This prose belongs to nothing.

local x = 1
`)
	if n := sink.CountKind(diag.Parse); n != 1 {
		t.Errorf("want 1 warning, got %v", sink.Warnings())
	}
}

func TestBracketFieldKey(t *testing.T) {
	t.Parallel()
	p, _ := scan(t, `
--- Lookup table.
-- @table keys
local keys = {
    --- The enter key.
    ["enter"] = 13,
}
`)
	mustRef(t, p, "keys.enter")
}

func TestRequireDetection(t *testing.T) {
	t.Parallel()
	sink := diag.NewSink(nil)
	p := New(sink)
	requires := p.ParseSource("test.lua", []byte(`
local a = require("foo.bar")
local b = require 'baz'
`), "")
	if got := strings.Join(requires, ","); got != "foo.bar,baz" {
		t.Errorf("requires = %q", got)
	}
}

func TestAliasNamesImplicitModule(t *testing.T) {
	t.Parallel()
	sink := diag.NewSink(nil)
	p := New(sink)
	p.ParseSource("lib/thing.lua", []byte(`
--- Does a thing.
function do_thing()
end
`), "mylib.thing")
	mustRef(t, p, "mylib.thing.do_thing")
}

func TestLeafBeforeModuleTerminatedWarns(t *testing.T) {
	t.Parallel()
	p, sink := scan(t, `
--- A module.
-- @module m
function m.work()
end
`)
	if n := sink.CountKind(diag.Parse); n == 0 {
		t.Errorf("want a block-termination warning, got %v", sink.Warnings())
	}
	// The module registers and the leaf still attaches.
	if ref := mustRef(t, p, "m"); ref.Kind != model.Module {
		t.Errorf("Kind = %s, want module", ref.Kind)
	}
	if ref := mustRef(t, p, "m.work"); ref.Kind != model.Function {
		t.Errorf("Kind = %s, want function", ref.Kind)
	}
}

func TestLeafBeforeSectionTerminatedWarns(t *testing.T) {
	t.Parallel()
	p, sink := scan(t, `
--- A module.
-- @module m

--- Helpers below.
-- @section helpers
function m.helper()
end
`)
	if n := sink.CountKind(diag.Parse); n != 1 {
		t.Fatalf("want 1 block-termination warning, got %v", sink.Warnings())
	}
	if sec := mustRef(t, p, "helpers"); sec.Kind != model.Section {
		t.Errorf("Kind = %s, want section", sec.Kind)
	}
	fn := mustRef(t, p, "m.helper")
	if fn.Kind != model.Function || fn.Section != "helpers" {
		t.Errorf("got %s in section %q, want function in helpers", fn.Kind, fn.Section)
	}
}
