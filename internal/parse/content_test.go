package parse

import (
	"strings"
	"testing"

	"luadox/internal/diag"
	"luadox/internal/model"
)

func parseBody(t *testing.T, src string) (*Body, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink(nil)
	var lines []model.Line
	for i, l := range strings.Split(src, "\n") {
		lines = append(lines, model.Line{N: i + 1, Text: l})
	}
	return ParseContent(sink, "test.lua", lines, true), sink
}

func TestPlainTextBecomesMarkdown(t *testing.T) {
	t.Parallel()
	body, sink := parseBody(t, "--- Does a thing.\n-- Second line.")
	if len(body.Nodes) != 1 {
		t.Fatalf("Nodes = %#v", body.Nodes)
	}
	text, ok := body.Nodes[0].(Text)
	if !ok {
		t.Fatalf("node type %T", body.Nodes[0])
	}
	if !strings.Contains(text.Markdown, "Does a thing.") || !strings.Contains(text.Markdown, "Second line.") {
		t.Errorf("Markdown = %q", text.Markdown)
	}
	if sink.Count() != 0 {
		t.Errorf("warnings: %v", sink.Warnings())
	}
}

func TestCodeBlockDedented(t *testing.T) {
	t.Parallel()
	body, _ := parseBody(t, strings.Join([]string{
		"--- Frobs.",
		"-- @example",
		"--   local x = frob()",
		"--     x:go()",
		"-- After the block.",
	}, "\n"))
	if len(body.Nodes) != 3 {
		t.Fatalf("want text, code, text; got %#v", body.Nodes)
	}
	cb, ok := body.Nodes[1].(CodeBlock)
	if !ok {
		t.Fatalf("node type %T", body.Nodes[1])
	}
	if cb.Heading != "Example" || cb.Lang != "lua" {
		t.Errorf("Heading=%q Lang=%q", cb.Heading, cb.Lang)
	}
	want := []string{"local x = frob()", "  x:go()"}
	if len(cb.Lines) != 2 || cb.Lines[0] != want[0] || cb.Lines[1] != want[1] {
		t.Errorf("Lines = %q, want %q", cb.Lines, want)
	}
}

func TestCodeBlockKeepsBlankLines(t *testing.T) {
	t.Parallel()
	body, _ := parseBody(t, strings.Join([]string{
		"--- Doc.",
		"-- @code",
		"--   first()",
		"--",
		"--   second()",
	}, "\n"))
	cb := body.Nodes[1].(CodeBlock)
	if len(cb.Lines) != 3 || strings.TrimSpace(cb.Lines[1]) != "" {
		t.Errorf("Lines = %q, want blank line preserved", cb.Lines)
	}
}

func TestNoteNestsCode(t *testing.T) {
	t.Parallel()
	body, _ := parseBody(t, strings.Join([]string{
		"--- Doc.",
		"-- @note Be careful",
		"--   Text inside the note.",
		"--   @code",
		"--     danger()",
		"-- Back outside.",
	}, "\n"))
	if len(body.Nodes) != 3 {
		t.Fatalf("Nodes = %#v", body.Nodes)
	}
	ad, ok := body.Nodes[1].(Admonition)
	if !ok {
		t.Fatalf("node type %T", body.Nodes[1])
	}
	if ad.Kind != "note" || ad.Title != "Be careful" {
		t.Errorf("Kind=%q Title=%q", ad.Kind, ad.Title)
	}
	if len(ad.Body) != 2 {
		t.Fatalf("nested Body = %#v", ad.Body)
	}
	if _, ok := ad.Body[1].(CodeBlock); !ok {
		t.Errorf("want nested code block, got %T", ad.Body[1])
	}
}

func TestWarningDefaultTitle(t *testing.T) {
	t.Parallel()
	body, _ := parseBody(t, "--- Doc.\n-- @warning\n--   Danger here.")
	ad := body.Nodes[1].(Admonition)
	if ad.Title != "Warning" {
		t.Errorf("Title = %q, want Warning", ad.Title)
	}
}

func TestTparamAndTreturn(t *testing.T) {
	t.Parallel()
	body, _ := parseBody(t, strings.Join([]string{
		"--- Clamps a value.",
		"-- @tparam number|string x the value,",
		"--   wrapped onto the next line",
		"-- @treturn number the clamped value",
	}, "\n"))
	if len(body.Params) != 1 {
		t.Fatalf("Params = %#v", body.Params)
	}
	p := body.Params[0]
	if p.Name != "x" || len(p.Types) != 2 || p.Types[0] != "number" || p.Types[1] != "string" {
		t.Errorf("Param = %#v", p)
	}
	if !strings.Contains(p.Desc, "wrapped onto the next line") {
		t.Errorf("Desc = %q", p.Desc)
	}
	if len(body.Returns) != 1 || body.Returns[0].Types[0] != "number" {
		t.Errorf("Returns = %#v", body.Returns)
	}
}

func TestTparamMissingNameWarns(t *testing.T) {
	t.Parallel()
	body, sink := parseBody(t, "--- Doc.\n-- @tparam number")
	if len(body.Params) != 0 {
		t.Errorf("Params = %#v", body.Params)
	}
	if sink.CountKind(diag.Parse) != 1 {
		t.Errorf("warnings: %v", sink.Warnings())
	}
}

func TestUnknownTagWarnsAndKeepsText(t *testing.T) {
	t.Parallel()
	body, sink := parseBody(t, "--- Doc.\n-- @nosuchtag args here")
	if sink.CountKind(diag.Parse) != 1 {
		t.Fatalf("warnings: %v", sink.Warnings())
	}
	text := body.Nodes[0].(Text)
	if !strings.Contains(text.Markdown, "@nosuchtag") {
		t.Errorf("Markdown = %q", text.Markdown)
	}
}

func TestSeeCollectsRefs(t *testing.T) {
	t.Parallel()
	body, _ := parseBody(t, "--- Doc.\n-- @see other.fn third")
	var see SeeAlso
	for _, n := range body.Nodes {
		if s, ok := n.(SeeAlso); ok {
			see = s
		}
	}
	if len(see.Refs) != 2 || see.Refs[0] != "other.fn" {
		t.Errorf("Refs = %v", see.Refs)
	}
}

func TestFirstSentence(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, first, rest string
	}{
		{"Clamps x. Second part.", "Clamps x.", "Second part."},
		{"Useful for e.g. ranges. More detail.", "Useful for e.g. ranges.", "More detail."},
		{"No punctuation here", "No punctuation here", ""},
		{"First paragraph\n\nSecond paragraph.", "First paragraph", "Second paragraph."},
	}
	for _, c := range cases {
		first, rest := FirstSentence(c.in)
		if first != c.first || rest != c.rest {
			t.Errorf("FirstSentence(%q) = %q, %q; want %q, %q", c.in, first, rest, c.first, c.rest)
		}
	}
}
