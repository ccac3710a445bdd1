package parse

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"luadox/internal/diag"
	"luadox/internal/model"
)

// Parser accumulates the documentation element table across all scanned
// files. Scanning is phase one: nothing is resolved here, every reference
// name stays as written.
type Parser struct {
	sink *diag.Sink

	// Refs maps qualified reference names (and aliases) to elements.
	Refs map[string]*model.Ref
	// Tops lists top-level collections in discovery order.
	Tops []*model.Ref
	// Collections lists, per topref name, the collections rendered on that
	// page in source order: the topref itself, then sections and tables.
	Collections map[string][]*model.Ref
	// Parsed lists every registered element by kind, in source order.
	Parsed map[model.Kind][]*model.Ref

	topIndex  map[string]*model.Ref
	collIndex map[string]map[string]bool
}

func New(sink *diag.Sink) *Parser {
	return &Parser{
		sink:        sink,
		Refs:        map[string]*model.Ref{},
		Collections: map[string][]*model.Ref{},
		Parsed:      map[model.Kind][]*model.Ref{},
		topIndex:    map[string]*model.Ref{},
		collIndex:   map[string]map[string]bool{},
	}
}

// Top returns the registered top-level collection with the given name.
func (p *Parser) Top(name string) *model.Ref {
	return p.topIndex[name]
}

var (
	// A block opens at a triple-dash comment: ---text, or a dash run alone.
	blockStartRe = regexp.MustCompile(`^(---[^-]|---+$)`)

	requireRe      = regexp.MustCompile(`\brequire\b *\(? *['"]([^'"]+)['"]`)
	funcDefRe      = regexp.MustCompile(`\bfunction +([^\s(]+) *\(([^)]*)(\))?`)
	funcAssignRe   = regexp.MustCompile(`(\S+) *= *function *\(([^)]*)(\))?`)
	bracketFieldRe = regexp.MustCompile(`\[([^\]]+)\] *=`)
	fieldAssignRe  = regexp.MustCompile(`\b([\S.]+) *=`)
)

// sourceScanner hands out whitespace-trimmed lines with 1-based numbers.
// Indentation inside comments survives because it sits after the dashes.
type sourceScanner struct {
	lines []string
	pos   int
}

func (s *sourceScanner) next() (n int, line string, ok bool) {
	if s.pos >= len(s.lines) {
		return 0, "", false
	}
	s.pos++
	return s.pos, strings.TrimSpace(s.lines[s.pos-1]), true
}

// ParseFile reads and scans one Lua source file. alias, when non-empty,
// names the file's implicit module.
func (p *Parser) ParseFile(path, alias string) (requires []string, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseSource(path, src, alias), nil
}

// ParseSource scans Lua source for documentation blocks and registers the
// elements they define. It returns the modules pulled in via require(),
// for the crawler to follow.
func (p *Parser) ParseSource(path string, src []byte, alias string) (requires []string) {
	sc := &sourceScanner{lines: strings.Split(string(src), "\n")}

	modname := alias
	if modname == "" {
		modname = moduleNameForPath(path)
	}
	// The implicit module anchors the scope stack. It is only registered
	// if something ends up scoped to it.
	modref := &model.Ref{
		Kind: model.Module, File: path, Line: 1,
		Symbol: modname, Section: modname, Implicit: true, Level: -1,
	}

	scopes := []*model.Ref{modref}
	section := modname
	sectionRef := modref
	tableLevel := 0
	parseNext := true
	var ref *model.Ref

	for {
		n, line, ok := sc.next()
		if !ok {
			break
		}
		if ref == nil && blockStartRe.MatchString(line) {
			ref = &model.Ref{File: path, Line: n, Scopes: slices.Clone(scopes), Section: section, SectionRef: sectionRef}
		}
		if strings.HasPrefix(line, "--") {
			if ref == nil {
				continue
			}
			scopes, section, sectionRef, parseNext = p.commentLine(
				ref, modref, n, line, scopes, section, sectionRef, tableLevel, parseNext)
			continue
		}

		code := stripTrailingComment(line)
		tableLevel += strings.Count(code, "{") - strings.Count(code, "}")
		for len(scopes) > 1 {
			top := scopes[len(scopes)-1]
			if top.Kind != model.Table || tableLevel > top.Level {
				break
			}
			scopes = scopes[:len(scopes)-1]
			section = scopes[len(scopes)-1].Section
			sectionRef = scopes[len(scopes)-1]
		}
		if m := requireRe.FindStringSubmatch(code); m != nil {
			requires = append(requires, m[1])
		}

		if !parseNext {
			// A class or table block terminates at its own defining
			// construct rather than at a documented leaf.
			if ref != nil {
				p.finishBlock(ref, modref)
				ref = nil
			}
			parseNext = true
			continue
		}
		if ref == nil {
			continue
		}
		ref = p.attachConstruct(ref, modref, n, code, sc, scopes, section, sectionRef)
		p.finishBlock(ref, modref)
		ref = nil
	}
	// EOF with an open block: register what we have.
	if ref != nil {
		p.finishBlock(ref, modref)
	}
	return requires
}

// commentLine applies one comment line of an open block: a modifier or
// collection tag takes effect immediately, anything else stays in the body.
func (p *Parser) commentLine(
	ref, modref *model.Ref, n int, line string,
	scopes []*model.Ref, section string, sectionRef *model.Ref,
	tableLevel int, parseNext bool,
) ([]*model.Ref, string, *model.Ref, bool) {
	name, args, rest, isTag := parseTagLine(line, true)
	if !isTag {
		ref.Content = append(ref.Content, model.Line{N: n, Text: line})
		return scopes, section, sectionRef, parseNext
	}
	spec, known := tagSpecs[name]
	if !known || spec.content {
		// Content tags and unknown tags are interpreted later, with the
		// body indentation intact.
		ref.Content = append(ref.Content, model.Line{N: n, Text: line})
		return scopes, section, sectionRef, parseNext
	}
	if len(args) < spec.minArgs {
		p.sink.Warnf(diag.Parse, ref.File, n, "@%s requires an argument, ignoring", name)
		return scopes, section, sectionRef, parseNext
	}

	switch name {
	case "module", "class", "section", "table":
		kind := model.Kind(name)
		ref.Kind = kind
		ref.Symbol = args[0]
		ref.Line = n
		ref.Section = args[0]
		ref.SectionRef = sectionRef
		ref.Level = tableLevel
		switch kind {
		case model.Class:
			// A new class closes the previous one; classes never nest.
			if top := scopes[len(scopes)-1]; top.Kind == model.Class {
				scopes = scopes[:len(scopes)-1]
			}
			ref.Scopes = slices.Clone(scopes)
			scopes = []*model.Ref{scopes[0], ref}
			parseNext = false
		case model.Module:
			ref.Scopes = slices.Clone(scopes)
			scopes = []*model.Ref{scopes[0], ref}
		case model.Table:
			ref.Scopes = slices.Clone(scopes)
			scopes = append(slices.Clone(scopes), ref)
			parseNext = false
		case model.Section:
			// Sections stay open for the next code line: a construct
			// following directly still attaches (with a warning).
			ref.Scopes = slices.Clone(scopes)
		}
		section = args[0]
		sectionRef = ref

	case "field":
		f := &model.Ref{
			Kind: model.Field, File: ref.File, Line: n,
			Symbol: stripSelfPrefix(args[0]),
			Scopes: slices.Clone(scopes), Section: section, SectionRef: sectionRef,
		}
		if desc := dropTokens(rest, 1); desc != "" {
			f.Content = append(f.Content, model.Line{N: n, Text: desc})
		}
		p.addRef(f, modref)

	case "within":
		ref.Within = args[0]
	case "alias":
		ref.Aliases = append(ref.Aliases, args[0])
	case "scope":
		ref.Flags.Scope = rest
	case "rename":
		ref.Flags.Rename = rest
	case "display":
		ref.Flags.Display = rest
	case "inherits":
		ref.Flags.Inherits = rest
	case "meta":
		ref.Flags.Meta = rest
	case "type":
		ref.Flags.Types = splitTypes(args[0])
	case "order":
		ref.Flags.Order = p.parseOrder(ref.File, n, args)
	case "compact":
		if len(args) == 0 {
			ref.Flags.Compact = []string{"fields", "functions"}
		} else {
			ref.Flags.Compact = args
		}
	case "fullnames":
		ref.Flags.Fullnames = true
	}
	return scopes, section, sectionRef, parseNext
}

func (p *Parser) parseOrder(file string, n int, args []string) *model.OrderDirective {
	od := &model.OrderDirective{Whence: args[0]}
	switch od.Whence {
	case "first", "last":
		return od
	case "before", "after":
		if len(args) < 2 {
			p.sink.Warnf(diag.Parse, file, n, "@order %s requires a sibling name, ignoring", od.Whence)
			return nil
		}
		od.Anchor = args[1]
		return od
	default:
		p.sink.Warnf(diag.Parse, file, n, "@order position %q not recognized, ignoring", od.Whence)
		return nil
	}
}

// attachConstruct classifies the code line that terminated a block and,
// when it defines a function or field, turns the block into that leaf. A
// block that already declared a collection is registered as-is and the
// leaf attaches to a fresh element, with a warning. Returns the element
// to register.
func (p *Parser) attachConstruct(
	ref, modref *model.Ref, n int, code string, sc *sourceScanner,
	scopes []*model.Ref, section string, sectionRef *model.Ref,
) *model.Ref {
	top := scopes[len(scopes)-1]
	kinds := [2]model.Kind{model.Function, model.Field}
	if top.Kind == model.Table {
		// Inside a table constructor an assignment is a field even when
		// the value is a function expression.
		kinds = [2]model.Kind{model.Field, model.Function}
	}
	for _, kind := range kinds {
		var sym string
		var params []string
		var found bool
		if kind == model.Function {
			sym, params, found = parseFunctionSig(code, sc)
		} else {
			sym, found = parseFieldName(code)
		}
		if !found {
			continue
		}
		if kind == model.Field && top.Kind == model.Module && sym == top.Symbol {
			// Assigning the module table itself (local M = {}) is the
			// common module pattern, not a documented field.
			continue
		}
		if ref.Symbol != "" && ref.Kind.Collection() {
			p.sink.Warnf(diag.Parse, ref.File, n,
				"%s %q defined before %s %q block terminated; separate them with a blank line",
				kind, sym, ref.Kind, ref.Symbol)
			p.finishBlock(ref, modref)
			ref = &model.Ref{File: ref.File}
		}
		ref.Kind = kind
		ref.Symbol = sym
		if kind == model.Field {
			ref.Symbol = stripSelfPrefix(sym)
		}
		ref.Line = n
		ref.Scopes = slices.Clone(scopes)
		ref.Section = section
		ref.SectionRef = sectionRef
		ref.Params = params
		return ref
	}
	return ref
}

// finishBlock registers a completed block, or warns when prose was written
// that no element will carry.
func (p *Parser) finishBlock(ref, modref *model.Ref) {
	if ref == nil || ref.Added {
		return
	}
	if ref.Symbol != "" {
		p.addRef(ref, modref)
		return
	}
	for _, l := range ref.Content {
		if strings.TrimSpace(strings.TrimLeft(l.Text, "-")) != "" {
			p.sink.Warnf(diag.Parse, ref.File, ref.Line,
				"comment block is not attached to any element, ignoring")
			return
		}
	}
}

// addRef registers an element in the global tables. modref is the file's
// implicit module, registered on demand the first time a leaf needs a
// top-level anchor.
func (p *Parser) addRef(ref, modref *model.Ref) {
	if ref.Added {
		return
	}
	name := ref.Name()
	if name == "" {
		p.sink.Warnf(diag.Parse, ref.File, ref.Line, "could not determine a reference name")
		return
	}
	if ref.Kind.Top() {
		if other, ok := p.topIndex[name]; ok && other != ref {
			p.sink.Warnf(diag.Collision, ref.File, ref.Line,
				"%s %q conflicts with %s of the same name at %s:%d",
				ref.Kind, name, other.Kind, other.File, other.Line)
		} else if !ok {
			p.topIndex[name] = ref
			p.Tops = append(p.Tops, ref)
		}
	} else {
		if len(ref.Scopes) == 0 {
			p.sink.Warnf(diag.Parse, ref.File, ref.Line, "could not determine the scope of %q", name)
			return
		}
		anchored := false
		for i := len(ref.Scopes) - 1; i >= 0; i-- {
			if _, ok := p.topIndex[ref.Scopes[i].Name()]; ok {
				anchored = true
				break
			}
		}
		if !anchored && modref != nil && !modref.Added {
			p.sink.Warnf(diag.Parse, ref.File, ref.Line,
				"implicitly adding module %q for %s %q; consider an explicit @module",
				modref.Name(), ref.Kind, ref.Symbol)
			p.addRef(modref, nil)
		}
	}
	if ref.Kind.Collection() && ref.Kind != model.Manual {
		p.addCollection(ref)
	}
	p.register(name, ref)
	for _, alias := range ref.Aliases {
		p.register(alias, ref)
	}
	p.Parsed[ref.Kind] = append(p.Parsed[ref.Kind], ref)
	ref.Added = true
}

// register binds a name in the global reference table. On collision the
// later definition wins, with a warning naming both locations.
func (p *Parser) register(name string, ref *model.Ref) {
	existing, ok := p.Refs[name]
	if !ok || existing == ref {
		p.Refs[name] = ref
		return
	}
	// Sections on different pages may share a short name; the earlier one
	// keeps the bare name, pages address their own sections unambiguously.
	if ref.Kind == model.Section && existing.Kind == model.Section &&
		existing.TopName() != ref.TopName() {
		return
	}
	p.sink.Warnf(diag.Collision, ref.File, ref.Line,
		"%q collides with %s defined at %s:%d; later definition wins",
		name, existing.Kind, existing.File, existing.Line)
	p.Refs[name] = ref
}

// addCollection appends a collection to its page's ordered list. A
// reopened section keeps its original position.
func (p *Parser) addCollection(ref *model.Ref) {
	top := ref.TopName()
	byName := p.collIndex[top]
	if byName == nil {
		byName = map[string]bool{}
		p.collIndex[top] = byName
	}
	key := ref.Name()
	if byName[key] {
		return
	}
	byName[key] = true
	p.Collections[top] = append(p.Collections[top], ref)
}

// parseFunctionSig extracts the name and parameter list from a function
// definition or assignment, consuming continuation lines until the
// signature's closing paren.
func parseFunctionSig(code string, sc *sourceScanner) (name string, params []string, found bool) {
	m := funcDefRe.FindStringSubmatch(code)
	if m == nil {
		m = funcAssignRe.FindStringSubmatch(code)
	}
	if m == nil {
		return "", nil, false
	}
	name, argstr, closed := m[1], m[2], m[3] != ""
	for !closed {
		_, line, ok := sc.next()
		if !ok {
			break
		}
		line = stripTrailingComment(line)
		if i := strings.IndexByte(line, ')'); i >= 0 {
			argstr += line[:i]
			closed = true
		} else {
			argstr += line + " "
		}
	}
	for _, a := range strings.Split(argstr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			params = append(params, a)
		}
	}
	return name, params, true
}

// parseFieldName extracts the lvalue of an assignment, preferring the
// bracketed form where the key may be quoted.
func parseFieldName(code string) (string, bool) {
	if m := bracketFieldRe.FindStringSubmatch(code); m != nil {
		return strings.Trim(m[1], `'"`), true
	}
	if m := fieldAssignRe.FindStringSubmatch(code); m != nil {
		return m[1], true
	}
	return "", false
}

func stripTrailingComment(line string) string {
	if i := strings.Index(line, "--"); i >= 0 {
		return strings.TrimSpace(line[:i])
	}
	return line
}

func stripSelfPrefix(sym string) string {
	return strings.TrimPrefix(sym, "self.")
}

// moduleNameForPath derives the implicit module name from the file name;
// init.lua files take their directory's name.
func moduleNameForPath(path string) string {
	base := filepath.Base(path)
	if base == "init.lua" {
		if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != "/" {
			return dir
		}
	}
	return strings.TrimSuffix(base, ".lua")
}
