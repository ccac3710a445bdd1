package render

import (
	"embed"
	"html/template"
	"os"
	"path/filepath"

	"luadox/internal/diag"
)

//go:embed assets
var assetsFS embed.FS

var pageTmpl = template.Must(template.ParseFS(assetsFS, "assets/page.html.tmpl"))

// writeAssets copies the embedded static files and any configured custom
// css/favicon into the output root.
func (r *Renderer) writeAssets(outdir string) error {
	for _, name := range []string{"luadox.css", "search.js"} {
		data, err := assetsFS.ReadFile("assets/" + name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(outdir, name), data, 0o644); err != nil {
			return err
		}
	}
	for _, src := range []string{r.cfg.Project.CSS, r.cfg.Project.Favicon} {
		if src == "" {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			r.sink.Warnf(diag.Crawl, src, 0, "could not read asset: %v", err)
			continue
		}
		dst := filepath.Join(outdir, filepath.Base(src))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
