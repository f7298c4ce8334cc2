package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/w4tty/internal/wattpad"
)

func TestDefaultOutputPath(t *testing.T) {
	story := &wattpad.Story{ID: "42", Title: "A/B: Story?", Author: "me", Parts: []wattpad.Part{{ID: "7"}}}
	tests := []struct {
		name, tmpl, title, want string
	}{
		{"sanitized title", "${title}.pdf", "A/B: Story?", "A_B_ Story_.pdf"},
		{"fallback", "${title}.pdf", " ... ", "Wattpad Story 7.pdf"},
		{"custom template", "out/${id}-${author}.pdf", "x", "out/42-me.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *story
			s.Title = tt.title
			if got := defaultOutputPath(tt.tmpl, &s); got != tt.want {
				t.Fatalf("defaultOutputPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("page: A4\nfamily: Serif\ntimeout: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(Args{Config: path, Page: "A5", Timeout: 9})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Page != "A5" || cfg.Timeout != 9 || cfg.Family != "Serif" || cfg.Fonts != "fonts" {
		t.Fatalf("unexpected merged config %+v", cfg)
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "story.pdf")
	if err := writeFile(path, []byte("%PDF-1.7")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "%PDF-1.7" {
		t.Fatalf("unexpected file content %q (%v)", data, err)
	}
}
