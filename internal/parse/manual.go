package parse

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"luadox/internal/diag"
	"luadox/internal/model"
)

// Manual pages are markdown documents rendered as their own toprefs.
// Headings h1 through h3 become sections addressable as pageid.slug, so
// source docstrings can link into the manual with @{pageid.slug}.

var headingRe = regexp.MustCompile(`^(#{1,3}) +(.+?)\s*#*\s*$`)

// frontMatter is the optional YAML header of a manual page.
type frontMatter struct {
	Title string `yaml:"title"`
}

// ParseManualFile reads and registers one manual page.
func (p *Parser) ParseManualFile(id, path string) (*model.Ref, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseManual(id, path, src), nil
}

// ParseManual registers a manual page and its heading sections. The page
// display name comes from the front matter title, falling back to the
// first heading, falling back to the page id.
func (p *Parser) ParseManual(id, path string, src []byte) *model.Ref {
	lines := strings.Split(string(src), "\n")
	start, title := p.splitFrontMatter(path, lines)

	page := &model.Ref{Kind: model.Manual, File: path, Line: 1, Symbol: id, Section: id}
	p.addRef(page, nil)

	cur := page
	inFence := false
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if t := strings.TrimSpace(line); strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~") {
			inFence = !inFence
		}
		if m := headingRe.FindStringSubmatch(line); m != nil && !inFence {
			text := strings.TrimSpace(m[2])
			if page.Flags.Display == "" {
				page.Flags.Display = text
			}
			slug := slugify(text)
			sec := &model.Ref{
				Kind: model.Section, File: path, Line: i + 1,
				Symbol: slug, Section: slug,
				Scopes: []*model.Ref{page},
				Flags:  model.Flags{Display: text, Level: len(m[1])},
			}
			p.addRef(sec, nil)
			cur = sec
			continue
		}
		cur.Content = append(cur.Content, model.Line{N: i + 1, Text: line})
	}
	if title != "" {
		page.Flags.Display = title
	}
	return page
}

// splitFrontMatter consumes a leading --- delimited YAML block, returning
// the index of the first content line and the title, if any.
func (p *Parser) splitFrontMatter(path string, lines []string) (start int, title string) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0, ""
	}
	for j := 1; j < len(lines); j++ {
		t := strings.TrimSpace(lines[j])
		if t != "---" && t != "..." {
			continue
		}
		var fm frontMatter
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:j], "\n")), &fm); err != nil {
			p.sink.Warnf(diag.Parse, path, 1, "manual page front matter: %v", err)
			return j + 1, ""
		}
		return j + 1, fm.Title
	}
	// No closing delimiter: the --- was a markdown rule, not front matter.
	return 0, ""
}

// slugify turns a heading into a section symbol: lowercased, spaces to
// underscores, other non-alphanumerics dropped.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '\t':
			b.WriteByte('_')
		}
	}
	return b.String()
}
