package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ByLCY/w4tty/fonts"
	"github.com/ByLCY/w4tty/layout"
	canvasrenderer "github.com/ByLCY/w4tty/renderer/canvas"
)

// jsonRenderer 以 JSON 输出文档，并以字号的一半作为字符宽度。
type jsonRenderer struct{}

func (jsonRenderer) Render(doc *layout.Document) ([]byte, error) { return json.Marshal(doc) }

func (jsonRenderer) TextWidth(_ fonts.FaceRef, size float64, text string) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.5
}

func (jsonRenderer) Metrics(_ fonts.FaceRef, size float64) layout.FontMetrics {
	return layout.FontMetrics{Ascent: size * 0.8, Descent: size * 0.2, LineHeight: size * 1.2}
}

type renderOnly struct{}

func (renderOnly) Render(*layout.Document) ([]byte, error) { return nil, nil }

// testConfig: 可用高度 36mm，正文行高 6mm，二级标题行高 9mm。
func testConfig() layout.Config {
	return layout.Config{
		PageWidth:        100,
		PageHeight:       60,
		Margin:           layout.Margin{Top: 10, Right: 10, Bottom: 14, Left: 10},
		FontSize:         5,
		LineHeight:       1.2,
		HeadingScale:     [6]float64{2, 1.5, 1.2, 1, 1, 1},
		ParagraphSpacing: 2,
		RuleWidth:        0.3,
	}
}

func newAssembler(t *testing.T, opts ...Option) *Assembler {
	t.Helper()
	reg, err := fonts.Load("")
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	a, err := NewAssembler(reg, jsonRenderer{}, append([]Option{WithConfig(testConfig())}, opts...)...)
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	return a
}

func bodyLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line%d", i+1)
	}
	return "<p>" + strings.Join(lines, "<br>") + "</p>"
}

func pageTexts(p layout.Page) []string {
	out := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		out = append(out, l.Text())
	}
	return out
}

func TestAssembleTitlePage(t *testing.T) {
	a := newAssembler(t, WithMeta(layout.DocumentMeta{Author: "Anon"}))
	book, err := a.Assemble("Story", nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	pages := book.Document.Pages
	if len(pages) != 1 {
		t.Fatalf("expected only the title page, got %d pages", len(pages))
	}
	if diff := cmp.Diff([]string{"Story", "Anon"}, pageTexts(pages[0])); diff != "" {
		t.Fatalf("title page mismatch (-want +got):\n%s", diff)
	}
	title := pages[0].Lines[0]
	if title.Y != 22 || title.Height != 12 {
		t.Fatalf("title placed at y=%v height=%v, want 22/12", title.Y, title.Height)
	}
	if title.Align.String() != "center" {
		t.Fatalf("title should be centered, got %s", title.Align)
	}
	if book.Document.Meta.Title != "Story" || book.Document.Meta.Author != "Anon" {
		t.Fatalf("unexpected meta %+v", book.Document.Meta)
	}
}

func TestAssembleChapterSpansPages(t *testing.T) {
	a := newAssembler(t)
	book, err := a.Assemble("Story", []Chapter{{Title: "One", HTML: bodyLines(14)}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	pages := book.Document.Pages
	if len(pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(pages))
	}
	counts := []int{len(pages[1].Lines), len(pages[2].Lines), len(pages[3].Lines)}
	if diff := cmp.Diff([]int{5, 6, 4}, counts); diff != "" {
		t.Fatalf("lines per chapter page (-want +got):\n%s", diff)
	}
	heading := pages[1].Lines[0]
	if heading.Text() != "One" || heading.Height != 9 {
		t.Fatalf("unexpected chapter heading %q height %v", heading.Text(), heading.Height)
	}
	if got := pages[1].Lines[1].Y; got != 21 {
		t.Fatalf("first body line at %v, want 21 (heading + paragraph spacing)", got)
	}
	var all []string
	for _, p := range pages[1:] {
		all = append(all, pageTexts(p)...)
	}
	if all[len(all)-1] != "line14" {
		t.Fatalf("last line %q", all[len(all)-1])
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Fatalf("page %d numbered %d", i+1, p.Number)
		}
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	chapters := []Chapter{
		{Title: "One", HTML: `<p><b>Hello</b> world</p><p style="text-align:justify">` + strings.Repeat("word ", 40) + `</p>`},
		{Title: "Two", Missing: true},
		{HTML: "<h3>Inner</h3><hr><p>Tail</p>"},
	}
	a := newAssembler(t)
	first, err := a.Assemble("Story", chapters)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	second, err := a.Assemble("Story", chapters)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if diff := cmp.Diff(first.Document, second.Document); diff != "" {
		t.Fatalf("layout differs between runs (-first +second):\n%s", diff)
	}
	b1, err := first.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	b2, err := second.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("serialized output differs")
	}
}

func TestSerializePDFIsStableOverTime(t *testing.T) {
	reg, err := fonts.Load("")
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	chapters := []Chapter{{Title: "One", HTML: "<p><b>Hello</b> world</p>"}, {Title: "Two", Missing: true}}
	build := func() []byte {
		t.Helper()
		a, err := NewAssembler(reg, canvasrenderer.NewRenderer(reg), WithMeta(layout.DocumentMeta{Author: "Anon"}))
		if err != nil {
			t.Fatalf("NewAssembler: %v", err)
		}
		book, err := a.Assemble("Story", chapters)
		if err != nil {
			t.Fatalf("Assemble: %v", err)
		}
		data, err := book.Serialize()
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		return data
	}
	first := build()
	time.Sleep(1100 * time.Millisecond)
	if second := build(); !bytes.Equal(first, second) {
		t.Fatalf("Assemble+Serialize twice produced different PDF bytes")
	}
}

func TestAssembleUnregisteredHeadingFamily(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := newAssembler(t, WithHeadingFamily("NoSuchFamily"), WithLogger(zap.New(core)))
	book, err := a.Assemble("Story", []Chapter{{Title: "One", HTML: "<p>Body</p>"}})
	if err != nil {
		t.Fatalf("unregistered heading family should not fail: %v", err)
	}
	heading := book.Document.Pages[1].Lines[0]
	face := heading.Tokens[0].Fragments[0].Face
	if face.Family != fonts.BuiltinFamily || !face.Style.Bold {
		t.Fatalf("heading face = %v, want bold %s", face, fonts.BuiltinFamily)
	}
	if logs.Len() == 0 {
		t.Fatalf("expected a warning about the unknown family")
	}
}

func TestAssembleEmptyChapter(t *testing.T) {
	a := newAssembler(t)
	book, err := a.Assemble("Story", []Chapter{{Title: "Empty", HTML: ""}, {HTML: "  "}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	pages := book.Document.Pages
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if diff := cmp.Diff([]string{"Empty", "Part 2"}, pageTexts(pages[1])); diff != "" {
		t.Fatalf("empty chapters should yield headings only (-want +got):\n%s", diff)
	}
}

func TestAssembleMissingChapter(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := newAssembler(t, WithLogger(zap.New(core)), WithPlaceholder("[${title} unavailable]"))
	book, err := a.Assemble("Story", []Chapter{{Title: "Lost", HTML: "<p>ignored</p>", Missing: true}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	lines := book.Document.Pages[1].Lines
	if diff := cmp.Diff([]string{"Lost", "[Lost unavailable]"}, pageTexts(book.Document.Pages[1])); diff != "" {
		t.Fatalf("missing chapter mismatch (-want +got):\n%s", diff)
	}
	if !lines[1].Tokens[0].Fragments[0].Face.Style.Italic {
		t.Fatalf("placeholder should be italic")
	}
	if logs.FilterMessage("章节缺失，写入占位提示").Len() != 1 {
		t.Fatalf("expected one missing-chapter warning, got %v", logs.All())
	}
}

func TestNewAssemblerRequiresMeasurer(t *testing.T) {
	reg, err := fonts.Load("")
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	if _, err := NewAssembler(reg, renderOnly{}); !errors.Is(err, ErrNotMeasurer) {
		t.Fatalf("expected ErrNotMeasurer, got %v", err)
	}
	bad := testConfig()
	bad.FontSize = 0
	if _, err := NewAssembler(reg, jsonRenderer{}, WithConfig(bad)); !errors.Is(err, layout.ErrInvalidPageConfig) {
		t.Fatalf("expected ErrInvalidPageConfig, got %v", err)
	}
}
