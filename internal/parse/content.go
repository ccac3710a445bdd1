package parse

import (
	"regexp"
	"strings"

	"luadox/internal/diag"
	"luadox/internal/model"
)

// Node is one structured piece of a documentation body. The renderer
// decides how each concrete node becomes HTML.
type Node interface {
	node()
}

// Text is a run of markdown lines.
type Text struct {
	Markdown string
}

// CodeBlock is a fenced code block from @code, @usage or @example.
type CodeBlock struct {
	Lang    string
	Heading string // "Usage" or "Example", empty for @code
	Lines   []string
}

// Admonition is a @note or @warning callout with a recursively parsed body.
type Admonition struct {
	Kind  string // "note" or "warning"
	Title string
	Body  []Node
}

// SeeAlso lists unresolved reference names from a @see tag.
type SeeAlso struct {
	Refs []string
}

func (Text) node()       {}
func (CodeBlock) node()  {}
func (Admonition) node() {}
func (SeeAlso) node()    {}

// Param is a documented function parameter from @tparam.
type Param struct {
	Name  string
	Types []string
	Desc  string
}

// Return is one documented return value from @treturn.
type Return struct {
	Types []string
	Desc  string
}

// Body is the parsed documentation content of one element.
type Body struct {
	Nodes   []Node
	Params  []Param
	Returns []Return
}

// contentLine is a content line normalized for parsing: comment markers
// stripped, indentation measured after them.
type contentLine struct {
	n      int
	text   string // leading indentation preserved
	indent int
}

// ParseContent interprets an element's raw content lines. With
// stripComments each line still carries its leading dash run (source
// blocks); manual page content arrives bare.
func ParseContent(sink *diag.Sink, file string, lines []model.Line, stripComments bool) *Body {
	cl := make([]contentLine, 0, len(lines))
	for _, l := range lines {
		text := l.Text
		if stripComments {
			text = strings.TrimLeft(text, "-")
		}
		cl = append(cl, contentLine{n: l.N, text: strings.TrimRight(text, " \t"), indent: indentOf(text)})
	}
	p := &contentParser{sink: sink, file: file}
	body := &Body{}
	body.Nodes = p.parse(cl, body)
	return body
}

type contentParser struct {
	sink *diag.Sink
	file string
}

func (p *contentParser) parse(lines []contentLine, body *Body) []Node {
	var nodes []Node
	var text []string
	flush := func() {
		if len(text) > 0 {
			nodes = append(nodes, Text{Markdown: strings.Join(text, "\n")})
			text = nil
		}
	}
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		name, args, rest, isTag := parseTagLine(l.text, false)
		if !isTag {
			text = append(text, l.text)
			continue
		}
		spec, known := tagSpecs[name]
		if !known {
			p.sink.Warnf(diag.Parse, p.file, l.n, "unknown tag @%s, rendering as text", name)
			text = append(text, l.text)
			continue
		}
		if len(args) < spec.minArgs {
			p.sink.Warnf(diag.Parse, p.file, l.n, "@%s requires at least %d argument(s)", name, spec.minArgs)
			continue
		}
		captured, next := captureBody(lines, i+1, l.indent)
		i = next - 1

		switch name {
		case "see":
			flush()
			nodes = append(nodes, SeeAlso{Refs: args})
		case "code", "usage", "example":
			flush()
			cb := CodeBlock{Lang: "lua"}
			if len(args) > 0 {
				cb.Lang = args[0]
			}
			switch name {
			case "usage":
				cb.Heading = "Usage"
			case "example":
				cb.Heading = "Example"
			}
			cb.Lines = dedent(captured)
			nodes = append(nodes, cb)
		case "note", "warning":
			flush()
			title := rest
			if title == "" {
				title = strings.ToUpper(name[:1]) + name[1:]
			}
			nodes = append(nodes, Admonition{Kind: name, Title: title, Body: p.parse(captured, body)})
		case "tparam":
			body.Params = append(body.Params, Param{
				Name:  args[1],
				Types: splitTypes(args[0]),
				Desc:  joinDesc(dropTokens(rest, 2), captured),
			})
		case "treturn":
			body.Returns = append(body.Returns, Return{
				Types: splitTypes(args[0]),
				Desc:  joinDesc(dropTokens(rest, 1), captured),
			})
		default:
			// Modifier tags are consumed during scanning and never reach
			// content. Treat a stray one as text so nothing is lost.
			text = append(text, l.text)
		}
	}
	flush()
	return nodes
}

// captureBody collects the indentation-delimited body of a tag: every
// following line indented strictly deeper than the tag line. Blank lines
// belong to the body only when a deeper non-blank line follows.
func captureBody(lines []contentLine, start, threshold int) (body []contentLine, next int) {
	var blanks []contentLine
	i := start
	for ; i < len(lines); i++ {
		l := lines[i]
		if strings.TrimSpace(l.text) == "" {
			blanks = append(blanks, l)
			continue
		}
		if l.indent <= threshold {
			break
		}
		body = append(body, blanks...)
		blanks = nil
		body = append(body, l)
	}
	return body, i - len(blanks)
}

// dedent strips the first body line's indentation from every line,
// preserving relative indentation inside code blocks.
func dedent(lines []contentLine) []string {
	level := -1
	for _, l := range lines {
		if strings.TrimSpace(l.text) != "" {
			level = l.indent
			break
		}
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		text := l.text
		if level > 0 && len(text) >= level && strings.TrimSpace(text[:level]) == "" {
			text = text[level:]
		}
		out = append(out, text)
	}
	return out
}

func joinDesc(first string, body []contentLine) string {
	parts := []string{first}
	for _, l := range body {
		parts = append(parts, strings.TrimSpace(l.text))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// dropTokens removes the first n whitespace-delimited tokens.
func dropTokens(s string, n int) string {
	for ; n > 0; n-- {
		s = strings.TrimLeft(s, " \t")
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			return ""
		}
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

func indentOf(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// Sentence punctuation inside common abbreviations must not end the
// summary.
var abbrevRe = regexp.MustCompile(`(?i)\b(e\.g|i\.e|etc|et al|vs)\.`)

var sentenceEndRe = regexp.MustCompile(`(?s)^(.+?[.!?])(\s.*|$)`)

// FirstSentence splits markdown into the first sentence and the remainder.
// The first sentence never crosses a blank line or a heading.
func FirstSentence(md string) (first, rest string) {
	protected := abbrevRe.ReplaceAllStringFunc(md, func(m string) string {
		return strings.ReplaceAll(m, ".", "\x00")
	})
	para := protected
	tail := ""
	if i := strings.Index(para, "\n\n"); i >= 0 {
		para, tail = para[:i], para[i:]
	}
	if i := strings.Index(para, "\n#"); i >= 0 {
		para, tail = para[:i], para[i:]+tail
	}
	if m := sentenceEndRe.FindStringSubmatch(para); m != nil {
		first, rest = m[1], m[2]+tail
	} else {
		first, rest = para, tail
	}
	unescape := func(s string) string { return strings.ReplaceAll(s, "\x00", ".") }
	return strings.TrimSpace(unescape(first)), strings.TrimSpace(unescape(rest))
}
