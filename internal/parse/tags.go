// Package parse scans Lua sources and manual pages for documentation
// blocks, interprets the tag grammar, and builds the global symbol table
// consumed by the resolver and renderer.
//
// A documentation block starts at a triple-dash comment line and
// accumulates every immediately following comment line; the first
// non-comment line (blank lines included) terminates it and, if it is a
// function definition or assignment, becomes the block's attached
// construct.
package parse

import (
	"regexp"
	"strings"
)

// Tag argument shapes. The grammar is deliberately small: one shape per
// tag, extra arguments warned about and dropped.
const (
	argNone  = iota // @fullnames
	argName         // @module, @class, @section, @table, @alias
	argRest         // @inherits, @within, @scope, @rename, @display, @meta
	argList         // @see, @compact
	argTypes        // @type: pipe-delimited type list
	argOrder        // @order <first|last|before|after> [anchor]
	argField        // @field <name> <description...>
	argBody         // @code, @usage, @example, @note, @warning, @tparam, @treturn
)

// tagSpec describes one recognized tag.
type tagSpec struct {
	shape   int
	minArgs int
	// content tags are not applied at scan time; they stay in the block
	// body and are interpreted by the content parser.
	content bool
}

// tagSpecs is the tag grammar table. Tags absent from this table are
// unknown: they are warned about during content parsing and rendered as
// plain text.
var tagSpecs = map[string]tagSpec{
	"module":    {shape: argName, minArgs: 1},
	"class":     {shape: argName, minArgs: 1},
	"section":   {shape: argName, minArgs: 1},
	"table":     {shape: argName, minArgs: 1},
	"within":    {shape: argName, minArgs: 1},
	"alias":     {shape: argName, minArgs: 1},
	"inherits":  {shape: argRest, minArgs: 1},
	"scope":     {shape: argRest, minArgs: 1},
	"rename":    {shape: argRest, minArgs: 1},
	"display":   {shape: argRest, minArgs: 1},
	"meta":      {shape: argRest, minArgs: 1},
	"type":      {shape: argTypes, minArgs: 1},
	"order":     {shape: argOrder, minArgs: 1},
	"compact":   {shape: argList},
	"fullnames": {shape: argNone},
	"field":     {shape: argField, minArgs: 1},

	"see":     {shape: argList, minArgs: 1, content: true},
	"code":    {shape: argBody, content: true},
	"usage":   {shape: argBody, content: true},
	"example": {shape: argBody, content: true},
	"note":    {shape: argBody, content: true},
	"warning": {shape: argBody, content: true},
	"tparam":  {shape: argBody, minArgs: 2, content: true},
	"treturn": {shape: argBody, minArgs: 1, content: true},
}

var (
	// @{ref} is reference syntax, not a tag, hence the [^{\s] guard.
	commentTagRe = regexp.MustCompile(`^--+ *@([^{\s]\S*) *(.*)$`)
	bareTagRe    = regexp.MustCompile(`^ *@([^{\s]\S*) *(.*)$`)
)

// parseTagLine extracts a @tag directive from a line. With requireComment
// the line must carry a leading comment marker (source scanning); without,
// the markers were already stripped (content parsing, manual pages).
func parseTagLine(line string, requireComment bool) (name string, args []string, rest string, ok bool) {
	re := bareTagRe
	if requireComment {
		re = commentTagRe
	}
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", nil, "", false
	}
	return m[1], strings.Fields(m[2]), strings.TrimSpace(m[2]), true
}

// splitTypes splits a pipe-delimited type list, trimming each component.
// Components are candidate reference names resolved later, never here.
func splitTypes(arg string) []string {
	parts := strings.Split(arg, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
