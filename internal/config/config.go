// Package config loads luadox.conf, an ini file with a [project] section
// for generator settings, a [manual] section mapping page ids to markdown
// files, and any number of [link*] sections for custom topbar links.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFile is consulted when no --config flag is given.
const DefaultFile = "luadox.conf"

// Page is one manual page: a markdown file rendered as its own topref.
type Page struct {
	ID   string
	Path string
}

// Link is a custom topbar link from a [link*] section.
type Link struct {
	Text    string
	URL     string
	Icon    string
	Tooltip string
}

// Project holds the [project] section.
type Project struct {
	Name     string
	OutDir   string
	HomeText string
	CSS      string
	Favicon  string
	Follow   bool
	Files    []string // [MODNAME=]PATH specs, newline separated in the ini
}

// Config is the merged configuration. CLI flags are applied on top by the
// caller; Load only reflects the file.
type Config struct {
	Project Project
	Manual  []Page
	Links   []Link
}

// Load reads an ini config file. With an empty path the default file is
// tried and its absence is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	cfg := &Config{Project: Project{OutDir: "out", Follow: true}}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.Project.Name = v.GetString("project.name")
	if v.IsSet("project.outdir") {
		cfg.Project.OutDir = v.GetString("project.outdir")
	}
	cfg.Project.HomeText = v.GetString("project.hometext")
	cfg.Project.CSS = v.GetString("project.css")
	cfg.Project.Favicon = v.GetString("project.favicon")
	if v.IsSet("project.follow") {
		cfg.Project.Follow = v.GetBool("project.follow")
	}
	cfg.Project.Files = splitSpecs(v.GetString("project.files"))
	cfg.Manual = manualPages(v.GetStringMapString("manual"))
	cfg.Links = linkSections(v)
	return cfg, nil
}

// splitSpecs breaks the multi-line files value into individual specs.
func splitSpecs(raw string) []string {
	var specs []string
	for _, line := range strings.Split(raw, "\n") {
		for _, spec := range strings.Fields(line) {
			specs = append(specs, spec)
		}
	}
	return specs
}

// manualPages orders the [manual] section: the ini parser does not preserve
// key order, so the index page comes first and the rest sort by id.
func manualPages(m map[string]string) []Page {
	pages := make([]Page, 0, len(m))
	for id, path := range m {
		pages = append(pages, Page{ID: id, Path: path})
	}
	sort.Slice(pages, func(i, j int) bool {
		if (pages[i].ID == "index") != (pages[j].ID == "index") {
			return pages[i].ID == "index"
		}
		return pages[i].ID < pages[j].ID
	})
	return pages
}

// linkSections collects every [link*] section, ordered by section name so
// [link1], [link2] render in a stable sequence.
func linkSections(v *viper.Viper) []Link {
	seen := map[string]bool{}
	var names []string
	for _, key := range v.AllKeys() {
		section, _, ok := strings.Cut(key, ".")
		if !ok || !strings.HasPrefix(section, "link") || seen[section] {
			continue
		}
		seen[section] = true
		names = append(names, section)
	}
	sort.Strings(names)
	links := make([]Link, 0, len(names))
	for _, s := range names {
		links = append(links, Link{
			Text:    v.GetString(s + ".text"),
			URL:     v.GetString(s + ".url"),
			Icon:    v.GetString(s + ".icon"),
			Tooltip: v.GetString(s + ".tooltip"),
		})
	}
	return links
}
