package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "luadox.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
[project]
name = My Project
outdir = docs
hometext = Welcome to **My Project**.
follow = false
files = src/foo.lua src/bar.lua

[manual]
tutorial = doc/tutorial.md
index = doc/index.md
api = doc/api.md

[link1]
text = GitHub
url = https://example.com/repo

[link2]
text = Discord
url = https://example.com/chat
tooltip = Chat with us
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project.Name != "My Project" {
		t.Errorf("Name = %q", cfg.Project.Name)
	}
	if cfg.Project.OutDir != "docs" {
		t.Errorf("OutDir = %q", cfg.Project.OutDir)
	}
	if cfg.Project.Follow {
		t.Error("Follow should be false")
	}
	if len(cfg.Project.Files) != 2 || cfg.Project.Files[0] != "src/foo.lua" {
		t.Errorf("Files = %v", cfg.Project.Files)
	}
	// index always sorts first, the rest alphabetically.
	if len(cfg.Manual) != 3 || cfg.Manual[0].ID != "index" || cfg.Manual[1].ID != "api" || cfg.Manual[2].ID != "tutorial" {
		t.Errorf("Manual = %v", cfg.Manual)
	}
	if len(cfg.Links) != 2 || cfg.Links[0].Text != "GitHub" || cfg.Links[1].Tooltip != "Chat with us" {
		t.Errorf("Links = %v", cfg.Links)
	}
}

func TestLoadDefaultsWhenAbsent(t *testing.T) {
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWD) })

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project.OutDir != "out" {
		t.Errorf("OutDir = %q, want out", cfg.Project.OutDir)
	}
	if !cfg.Project.Follow {
		t.Error("Follow should default to true")
	}
}

func TestLoadExplicitMissingFileErrors(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.conf")); err == nil {
		t.Error("want error for missing explicit config")
	}
}
