package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"luadox/internal/model"
	"luadox/internal/resolve"
)

// searchDoc is one entry of the client-side search index.
type searchDoc struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// contentText flattens an element's raw content for indexing. Comment
// markers survive scanning, so leading dashes are dropped per line.
func contentText(ref *model.Ref) string {
	parts := make([]string, len(ref.Content))
	for i, l := range ref.Content {
		parts[i] = strings.TrimLeft(l.Text, "-")
	}
	return markdownToText(strings.Join(parts, "\n"))
}

func (r *Renderer) searchIndex(pages []*resolve.Page) []searchDoc {
	var docs []searchDoc
	for _, p := range pages {
		path := pagePath(p.Top)
		docs = append(docs, searchDoc{
			Path: path, Type: string(p.Top.Kind),
			Title: p.Top.Display(), Text: contentText(p.Top),
		})
		for _, s := range p.Sections {
			if s.Ref != p.Top {
				docs = append(docs, searchDoc{
					Path: path + "#" + anchorOf(s.Ref), Type: string(s.Ref.Kind),
					Title: s.Ref.Display(), Text: contentText(s.Ref),
				})
			}
			for _, leaf := range s.Fields {
				docs = append(docs, leafDoc(path, leaf))
			}
			for _, leaf := range s.Functions {
				docs = append(docs, leafDoc(path, leaf))
			}
		}
	}
	return docs
}

func leafDoc(path string, leaf *model.Ref) searchDoc {
	return searchDoc{
		Path: path + "#" + anchorOf(leaf), Type: string(leaf.Kind),
		Title: leaf.Display(), Text: contentText(leaf),
	}
}

// writeSearch emits index.js, the search index consumed by search.js, and
// the search results page.
func (r *Renderer) writeSearch(outdir string, pages []*resolve.Page) error {
	docs := r.searchIndex(pages)
	blob, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding search index: %w", err)
	}
	js := "var docs = " + string(blob) + ";\n"
	if err := os.WriteFile(filepath.Join(outdir, "index.js"), []byte(js), 0o644); err != nil {
		return err
	}

	body := `<h1>Search</h1>
<input type="search" id="search-input" placeholder="Search..." autofocus>
<div id="search-results"></div>
<script src="index.js"></script>
<script src="search.js"></script>
`
	pc := &pageContext{r: r}
	html, err := pc.frame("Search", body, nil, nil, pages)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "search.html"), []byte(html), 0o644)
}
