// Package crawl turns input specs into the list of Lua files to scan.
//
// A spec is [MODNAME=]PATH where PATH is a file, a directory, or a glob.
// Directories are walked for .lua files, honoring the directory's
// .gitignore. The base directories learned from the specs also resolve
// require() statements discovered during scanning, so documented modules
// pull in their dependencies without being listed explicitly.
package crawl

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"luadox/internal/diag"
)

// File is one Lua source to parse. Alias, when set, names the module the
// file defines, overriding the filename-derived default.
type File struct {
	Path  string
	Alias string
}

type Crawler struct {
	sink *diag.Sink

	// bases maps a module name prefix to the directories it lives under.
	// The empty prefix holds unaliased base directories.
	bases map[string][]string
	seen  map[string]bool
}

func New(sink *diag.Sink) *Crawler {
	return &Crawler{sink: sink, bases: map[string][]string{}, seen: map[string]bool{}}
}

// Add expands one input spec. Unmatched globs and missing paths warn and
// yield nothing; a run never fails over a bad spec.
func (c *Crawler) Add(spec string) ([]File, error) {
	alias, path, ok := strings.Cut(spec, "=")
	if !ok {
		alias, path = "", alias
	}
	st, err := os.Stat(path)
	switch {
	case err == nil && st.IsDir():
		c.bases[alias] = append(c.bases[alias], path)
		return c.walkDir(alias, path)
	case err == nil:
		c.bases[""] = append(c.bases[""], filepath.Dir(path))
		return c.take(File{Path: path, Alias: alias}), nil
	}
	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("bad file spec %q: %w", spec, err)
	}
	if len(matches) == 0 {
		c.sink.Warnf(diag.Crawl, path, 0, "no files match spec %q", spec)
		return nil, nil
	}
	sort.Strings(matches)
	var files []File
	for _, m := range matches {
		c.bases[""] = append(c.bases[""], filepath.Dir(m))
		files = append(files, c.take(File{Path: m, Alias: alias})...)
	}
	return files, nil
}

// Require resolves a require()'d module name against the known base
// directories, both mod/path.lua and mod/path/init.lua shapes.
func (c *Crawler) Require(mod string) (File, bool) {
	for prefix, dirs := range c.bases {
		rel := mod
		if prefix != "" {
			if mod != prefix && !strings.HasPrefix(mod, prefix+".") {
				continue
			}
			rel = strings.TrimPrefix(strings.TrimPrefix(mod, prefix), ".")
		}
		relPath := strings.ReplaceAll(rel, ".", string(filepath.Separator))
		for _, dir := range dirs {
			for _, cand := range []string{
				filepath.Join(dir, relPath+".lua"),
				filepath.Join(dir, relPath, "init.lua"),
			} {
				if relPath == "" {
					cand = filepath.Join(dir, "init.lua")
				}
				if st, err := os.Stat(cand); err == nil && !st.IsDir() {
					if c.seen[cand] {
						return File{}, false
					}
					c.seen[cand] = true
					return File{Path: cand, Alias: mod}, true
				}
			}
		}
	}
	return File{}, false
}

// take marks a file seen, dropping duplicates across overlapping specs.
func (c *Crawler) take(f File) []File {
	if c.seen[f.Path] {
		return nil
	}
	c.seen[f.Path] = true
	return []File{f}
}

// walkDir collects .lua files under root in path order, skipping anything
// the root's .gitignore matches.
func (c *Crawler) walkDir(alias, root string) ([]File, error) {
	ign, _ := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".lua") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if ign != nil && ign.MatchesPath(rel) {
			return nil
		}
		files = append(files, File{Path: path, Alias: dirAlias(alias, rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	var kept []File
	for _, f := range files {
		kept = append(kept, c.take(f)...)
	}
	return kept, nil
}

// dirAlias derives a file's module name from the directory alias and its
// relative path: alias=src/foo/bar.lua documents module alias.foo.bar.
func dirAlias(alias, rel string) string {
	if alias == "" {
		return ""
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".lua")
	if strings.HasSuffix(rel, "/init") || rel == "init" {
		rel = strings.TrimSuffix(strings.TrimSuffix(rel, "init"), "/")
	}
	if rel == "" {
		return alias
	}
	return alias + "." + strings.ReplaceAll(rel, "/", ".")
}
