package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/runenames"

	"github.com/ByLCY/w4tty/fonts"
	"github.com/ByLCY/w4tty/markup"
)

const epsilon = 1e-9

// Engine 把 []markup.Run 增量排入页面。多次调用 Layout 会接着上一次的位置继续，
// 页面在第一次放置内容时才创建，因此不会产生空白页。
type Engine struct {
	cfg     Config
	fonts   FontSource
	measure Measurer
	log     *zap.Logger

	pages []Page
	page  *Page
	// gap 是尚未应用的段落间距，落在页顶时丢弃。
	gap float64

	warnedFaces map[string]bool
	warnedRunes map[rune]bool
}

// NewEngine 校验配置并创建排版引擎。
func NewEngine(cfg Config, opts BuildOptions) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Fonts == nil {
		return nil, fmt.Errorf("layout: 缺少字体来源 FontSource")
	}
	if opts.Measurer == nil {
		return nil, fmt.Errorf("layout: 缺少文本测量 Measurer")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:         cfg,
		fonts:       opts.Fonts,
		measure:     opts.Measurer,
		log:         log,
		warnedFaces: map[string]bool{},
		warnedRunes: map[rune]bool{},
	}, nil
}

// Layout 一次性排版 runs 并返回全部页面。
func Layout(runs []markup.Run, cfg Config, opts BuildOptions) ([]Page, error) {
	e, err := NewEngine(cfg, opts)
	if err != nil {
		return nil, err
	}
	e.Layout(runs)
	return e.Finish(), nil
}

// Config 返回引擎使用的配置。
func (e *Engine) Config() Config { return e.cfg }

// Layout 排版 runs。runs 的结尾视为段落结束。
func (e *Engine) Layout(runs []markup.Run) {
	var group []markup.Run
	for _, run := range runs {
		switch run.Role {
		case markup.RoleLineBreak:
			if hasText(group) {
				e.placeGroup(group)
			} else {
				e.blankLine()
			}
			group = nil
		case markup.RoleParagraphBreak:
			e.placeGroup(group)
			group = nil
			e.gap = e.cfg.ParagraphSpacing
		case markup.RoleRule:
			e.placeGroup(group)
			group = nil
			e.rule()
		default:
			group = append(group, run)
		}
	}
	e.placeGroup(group)
	e.gap = e.cfg.ParagraphSpacing
}

// Space 把光标下移 dy，超出页底时结束当前页。
func (e *Engine) Space(dy float64) {
	if dy <= 0 {
		return
	}
	if e.page == nil {
		e.openPage()
	}
	e.page.Cursor += dy
	if e.page.Cursor > e.bottom()+epsilon {
		e.sealPage()
	}
}

// BreakPage 结束当前页，后续内容从新页顶部开始。当前没有打开的页面时不做任何事。
func (e *Engine) BreakPage() {
	if e.page != nil {
		e.sealPage()
	}
	e.gap = 0
}

// Finish 封存当前页并返回所有页面。
func (e *Engine) Finish() []Page {
	if e.page != nil {
		e.sealPage()
	}
	return e.pages
}

func (e *Engine) bottom() float64 { return e.cfg.PageHeight - e.cfg.Margin.Bottom }

func (e *Engine) openPage() {
	e.page = &Page{
		Number: len(e.pages) + 1,
		Width:  e.cfg.PageWidth,
		Height: e.cfg.PageHeight,
		Margin: e.cfg.Margin,
		Cursor: e.cfg.Margin.Top,
	}
}

func (e *Engine) sealPage() {
	e.pages = append(e.pages, *e.page)
	e.page = nil
}

// reserve 为高度 height 的内容找到位置并返回其顶部坐标。
func (e *Engine) reserve(height float64) float64 {
	if e.page == nil {
		e.openPage()
	}
	atTop := e.page.Cursor <= e.cfg.Margin.Top+epsilon
	if !atTop {
		e.page.Cursor += e.gap
	}
	e.gap = 0
	if !atTop && e.page.Cursor+height > e.bottom()+epsilon {
		e.sealPage()
		e.openPage()
	}
	y := e.page.Cursor
	e.page.Cursor += height
	return y
}

func (e *Engine) blankLine() {
	e.reserve(e.cfg.FontSize * e.cfg.LineHeight)
}

func (e *Engine) rule() {
	height := e.cfg.FontSize * e.cfg.LineHeight
	y := e.reserve(height)
	e.page.Rules = append(e.page.Rules, Rule{
		X1:    e.cfg.Margin.Left,
		X2:    e.cfg.PageWidth - e.cfg.Margin.Right,
		Y:     y + height/2,
		Width: e.cfg.RuleWidth,
	})
}

// word 是尚未定位的词元，片段的 X 相对词首。
type word struct {
	frags []Fragment
	width float64
	// gap 是该词与前一个词之间空白的宽度。
	gap float64
}

func (w *word) add(frags []Fragment) {
	for _, f := range frags {
		f.X = w.width
		w.width += f.Width
		w.frags = append(w.frags, f)
	}
}

// placeGroup 把一个段落（或以换行结束的行组）贪心地折成多行。
func (e *Engine) placeGroup(group []markup.Run) {
	words := e.tokenize(group)
	if len(words) == 0 {
		return
	}
	align := group[0].Align
	usable := e.cfg.UsableWidth()

	var line []word
	width := 0.0
	for _, w := range words {
		add := w.width
		if len(line) > 0 {
			add += w.gap
		}
		if len(line) > 0 && width+add > usable+epsilon {
			e.placeLine(line, width, align, false)
			line, width, add = nil, 0, w.width
		}
		line = append(line, w)
		width += add
	}
	e.placeLine(line, width, align, true)
}

func (e *Engine) placeLine(words []word, width float64, align markup.Align, last bool) {
	var height, ascent, descent float64
	for _, w := range words {
		for _, f := range w.frags {
			m := e.measure.Metrics(f.Face, f.Size)
			height = math.Max(height, f.Size*e.cfg.LineHeight)
			ascent = math.Max(ascent, m.Ascent)
			descent = math.Max(descent, m.Descent)
		}
	}
	if height <= 0 {
		height = e.cfg.FontSize * e.cfg.LineHeight
	}
	// 行高多出的部分平均分到字形上下。
	if lead := (height - ascent - descent) / 2; lead > 0 {
		ascent += lead
	}

	y := e.reserve(height)
	usable := e.cfg.UsableWidth()
	x := e.cfg.Margin.Left
	extra := 0.0
	switch align {
	case markup.AlignCenter:
		x += math.Max(0, (usable-width)/2)
	case markup.AlignRight:
		x += math.Max(0, usable-width)
	case markup.AlignJustify:
		if !last && len(words) > 1 && width < usable {
			extra = (usable - width) / float64(len(words)-1)
		}
	}

	line := Line{Y: y, Height: height, Ascent: ascent, Width: width, Align: align, Last: last}
	for i, w := range words {
		if i > 0 {
			x += w.gap + extra
		}
		tok := Token{X: x, Width: w.width, Fragments: make([]Fragment, 0, len(w.frags))}
		for _, f := range w.frags {
			f.X += x
			tok.Fragments = append(tok.Fragments, f)
		}
		line.Tokens = append(line.Tokens, tok)
		x += w.width
	}
	e.page.Lines = append(e.page.Lines, line)
}

// tokenize 按空白切分词元（不可断行空格除外），一个词可以跨越多个 Run，各片段保留自己的样式。
func (e *Engine) tokenize(group []markup.Run) []word {
	var (
		words []word
		cur   *word
		gap   float64
	)
	for _, run := range group {
		size := e.sizeOf(run)
		primary := e.primaryFace(run)
		var piece strings.Builder
		flush := func() {
			if piece.Len() > 0 {
				cur.add(e.shape(piece.String(), run, primary, size))
				piece.Reset()
			}
		}
		for _, r := range run.Text {
			if unicode.IsSpace(r) && r != markup.NBSP {
				flush()
				if cur != nil {
					words = append(words, *cur)
					cur = nil
				}
				gap = e.measure.TextWidth(primary, size, " ")
				continue
			}
			if cur == nil {
				cur = &word{gap: gap}
				gap = 0
			}
			piece.WriteRune(r)
		}
		flush()
	}
	if cur != nil {
		words = append(words, *cur)
	}
	return words
}

func (e *Engine) sizeOf(run markup.Run) float64 {
	if run.Role == markup.RoleHeading {
		return e.cfg.sizeFor(run.Level)
	}
	return e.cfg.FontSize
}

func styleOf(run markup.Run) fonts.Style {
	return fonts.Style{Bold: run.Style.Bold, Italic: run.Style.Italic}
}

// primaryFace 解析 Run 请求的字体，未注册时用 Closest 替代并只记录一次。
func (e *Engine) primaryFace(run markup.Run) fonts.FaceRef {
	family := run.Style.Family
	if family == "" {
		family = e.cfg.Family
	}
	if family == "" {
		family = e.fonts.DefaultFamily()
	}
	style := styleOf(run)
	ref, err := e.fonts.Resolve(family, style)
	if err == nil {
		return ref
	}
	sub := e.fonts.Closest(family, style)
	key := family + "/" + style.String()
	if !e.warnedFaces[key] {
		e.warnedFaces[key] = true
		e.log.Warn("字体未注册，使用替代字体",
			zap.String("requested", key),
			zap.Stringer("face", sub))
	}
	return sub
}

// shape 为一段无空白文本选择字体：主字体 → 整段可覆盖的回退族 → 逐字回退。
func (e *Engine) shape(text string, run markup.Run, primary fonts.FaceRef, size float64) []Fragment {
	if e.coversAll(primary, text) {
		return []Fragment{e.fragment(text, primary, size, run)}
	}
	style := styleOf(run)
	for _, family := range e.fonts.FallbackFamilies() {
		ref := e.fonts.Closest(family, style)
		if ref.Family == family && ref != primary && e.coversAll(ref, text) {
			return []Fragment{e.fragment(text, ref, size, run)}
		}
	}

	var (
		frags []Fragment
		buf   strings.Builder
		face  fonts.FaceRef
	)
	for _, r := range text {
		f := e.faceForRune(r, primary, style)
		if buf.Len() > 0 && f != face {
			frags = append(frags, e.fragment(buf.String(), face, size, run))
			buf.Reset()
		}
		face = f
		buf.WriteRune(r)
	}
	if buf.Len() > 0 {
		frags = append(frags, e.fragment(buf.String(), face, size, run))
	}
	return frags
}

func (e *Engine) faceForRune(r rune, primary fonts.FaceRef, style fonts.Style) fonts.FaceRef {
	if e.fonts.Covers(primary, r) {
		return primary
	}
	ref := e.fonts.FallbackFor(r)
	if ref == e.fonts.MissingGlyph() {
		if !e.warnedRunes[r] {
			e.warnedRunes[r] = true
			e.log.Warn("缺少字形",
				zap.String("rune", fmt.Sprintf("U+%04X", r)),
				zap.String("name", runenames.Name(r)))
		}
		return ref
	}
	if styled := e.fonts.Closest(ref.Family, style); styled.Family == ref.Family && e.fonts.Covers(styled, r) {
		return styled
	}
	return ref
}

func (e *Engine) coversAll(face fonts.FaceRef, text string) bool {
	for _, r := range text {
		if !e.fonts.Covers(face, r) {
			return false
		}
	}
	return true
}

func (e *Engine) fragment(text string, face fonts.FaceRef, size float64, run markup.Run) Fragment {
	return Fragment{
		Text:      text,
		Face:      face,
		Size:      size,
		Width:     e.measure.TextWidth(face, size, text),
		Underline: run.Style.Underline,
	}
}

func hasText(group []markup.Run) bool {
	for _, run := range group {
		if strings.TrimSpace(run.Text) != "" {
			return true
		}
	}
	return false
}
