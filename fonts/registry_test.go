package fonts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

func writeFont(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("写入测试字体失败: %v", err)
	}
	return path
}

func TestRegisterResolveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"Alpha-Regular.ttf":    goregular.TTF,
		"Alpha-Bold.ttf":       gobold.TTF,
		"Alpha-Italic.ttf":     goitalic.TTF,
		"Alpha-BoldItalic.ttf": gobolditalic.TTF,
	}
	r := NewRegistry(WithoutBuiltin())
	for name, data := range files {
		if _, err := r.Register(writeFont(t, dir, name, data)); err != nil {
			t.Fatalf("注册 %s 失败: %v", name, err)
		}
	}
	for _, style := range allStyles {
		ref, err := r.Resolve("Alpha", style)
		if err != nil {
			t.Fatalf("Resolve(Alpha, %s) 失败: %v", style, err)
		}
		if ref.Family != "Alpha" || ref.Style != style {
			t.Fatalf("Resolve 往返不一致: got %s want Alpha/%s", ref, style)
		}
	}
	if _, err := r.Resolve("Beta", Style{}); !errors.Is(err, ErrUnknownFace) {
		t.Fatalf("expected ErrUnknownFace, got %v", err)
	}
}

func TestRegisterUnreadableFont(t *testing.T) {
	dir := t.TempDir()
	path := writeFont(t, dir, "Broken-Regular.ttf", []byte("not a font"))

	r := NewRegistry()
	if _, err := r.Register(path); !errors.Is(err, ErrUnreadableFont) {
		t.Fatalf("expected ErrUnreadableFont, got %v", err)
	}
	if _, err := r.Register(filepath.Join(dir, "Missing-Regular.ttf")); !errors.Is(err, ErrUnreadableFont) {
		t.Fatalf("missing file: expected ErrUnreadableFont, got %v", err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrUnreadableFont) {
		t.Fatalf("Load: expected ErrUnreadableFont, got %v", err)
	}
}

func TestDuplicateRegistrationLastWins(t *testing.T) {
	first := writeFont(t, t.TempDir(), "Dup-Regular.ttf", goregular.TTF)
	second := writeFont(t, t.TempDir(), "Dup-Regular.ttf", gobold.TTF)

	r := NewRegistry(WithoutBuiltin())
	for _, p := range []string{first, second} {
		if _, err := r.Register(p); err != nil {
			t.Fatalf("注册 %s 失败: %v", p, err)
		}
	}
	face, ok := r.Face(FaceRef{Family: "Dup"})
	if !ok {
		t.Fatalf("Dup/regular 未注册")
	}
	if face.Path != second {
		t.Fatalf("expected last registration %s to win, got %s", second, face.Path)
	}
	if diff := cmp.Diff([]string{"Dup"}, r.Families()); diff != "" {
		t.Fatalf("families mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRegistrationOrder(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, dir, "Zeta-Regular.ttf", goregular.TTF)
	writeFont(t, dir, "Beta-Regular.ttf", goregular.TTF)
	writeFont(t, dir, "notes.txt", []byte("ignored"))

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if diff := cmp.Diff([]string{"Go", "Beta", "Zeta"}, r.Families()); diff != "" {
		t.Fatalf("families mismatch (-want +got):\n%s", diff)
	}
	if got := r.DefaultFamily(); got != BuiltinFamily {
		t.Fatalf("expected default family %s, got %s", BuiltinFamily, got)
	}

	r, err = Load(dir, WithDefaultFamily("Zeta"), WithFallbackOrder("Beta"))
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if diff := cmp.Diff([]string{"Zeta", "Beta", "Go"}, r.FallbackFamilies()); diff != "" {
		t.Fatalf("fallback order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingDirectoryUsesBuiltin(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	for _, style := range allStyles {
		if _, err := r.Resolve(BuiltinFamily, style); err != nil {
			t.Fatalf("内置字体 %s 缺失: %v", style, err)
		}
	}
}

func TestLoadWithoutLatinCoverage(t *testing.T) {
	if _, err := Load("", WithoutBuiltin()); !errors.Is(err, ErrNoLatinCoverage) {
		t.Fatalf("expected ErrNoLatinCoverage, got %v", err)
	}
}

func TestSealedRegistryRejectsFonts(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if _, err := r.RegisterBytes("Late-Regular.ttf", goregular.TTF); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed, got %v", err)
	}
}

func TestClosestDegradesStyle(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	if err := RegisterBuiltin(r); err != nil {
		t.Fatalf("RegisterBuiltin 失败: %v", err)
	}
	for name, data := range map[string][]byte{
		"Serif-Regular.ttf": goregular.TTF,
		"Serif-Italic.ttf":  goitalic.TTF,
	} {
		if _, err := r.Register(writeFont(t, dir, name, data)); err != nil {
			t.Fatalf("注册 %s 失败: %v", name, err)
		}
	}
	r.Seal()

	tests := []struct {
		name   string
		family string
		style  Style
		want   FaceRef
	}{
		{"exact", "Serif", Style{Italic: true}, FaceRef{"Serif", Style{Italic: true}}},
		{"drop bold", "Serif", Style{Bold: true, Italic: true}, FaceRef{"Serif", Style{Italic: true}}},
		{"bold only", "Serif", Style{Bold: true}, FaceRef{"Serif", Style{}}},
		{"unknown family", "Nope", Style{Bold: true}, FaceRef{BuiltinFamily, Style{Bold: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Closest(tt.family, tt.style); got != tt.want {
				t.Fatalf("Closest(%s, %s) = %s, want %s", tt.family, tt.style, got, tt.want)
			}
		})
	}
}

func TestFallbackForCoveredRunes(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	missing := r.MissingGlyph()
	for _, c := range "Hello, world! Ünïcødé ßæøå" {
		got := r.FallbackFor(c)
		if got == missing {
			t.Fatalf("covered rune %q mapped to missing-glyph face", c)
		}
		if !r.Covers(got, c) {
			t.Fatalf("FallbackFor(%q) = %s does not cover the rune", c, got)
		}
	}
	if got := r.FallbackFor('\U0001F600'); got != missing {
		t.Fatalf("expected missing-glyph face for emoji, got %s", got)
	}
	if r.Covers(missing, 'A') {
		t.Fatalf("missing-glyph face must not cover any rune")
	}
	if face, ok := r.Face(missing); !ok || face.Ref.Family != BuiltinFamily {
		t.Fatalf("missing-glyph face should render with the default family, got %v", face)
	}
}

func TestCoversLatinIncludesSpace(t *testing.T) {
	tests := []struct {
		name string
		has  func(rune) bool
		want bool
	}{
		{"full range", func(r rune) bool { return r >= 0x20 && r <= 0x7e }, true},
		{"missing space", func(r rune) bool { return r > 0x20 && r <= 0x7e }, false},
		{"missing tilde", func(r rune) bool { return r >= 0x20 && r < 0x7e }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coversLatin(tt.has); got != tt.want {
				t.Fatalf("coversLatin = %v, want %v", got, tt.want)
			}
		})
	}
}
