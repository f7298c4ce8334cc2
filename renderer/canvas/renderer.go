package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ByLCY/w4tty/fonts"
	"github.com/ByLCY/w4tty/layout"
	"github.com/ByLCY/w4tty/renderer"
)

const defaultRuleWidth = 0.2

// FaceSource 提供字体文件数据，*fonts.Registry 实现了它。
type FaceSource interface {
	Face(ref fonts.FaceRef) (*fonts.Face, bool)
}

// Renderer draws layout results via github.com/tdewolff/canvas.
// 它同时实现 layout.Measurer，保证测量与绘制使用同一份字体。
type Renderer struct {
	faces     FaceSource
	textColor color.Color
	log       *zap.Logger

	fontMu         sync.Mutex
	fontFamilies   map[fonts.FaceRef]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Option configures the canvas renderer.
type Option func(*Renderer)

// WithLogger 设置日志记录器。
func WithLogger(log *zap.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithTextColor 设置正文与分隔线颜色，默认深灰。
func WithTextColor(c color.Color) Option {
	return func(r *Renderer) { r.textColor = c }
}

// NewRenderer creates a canvas-based renderer drawing with faces from src.
func NewRenderer(src FaceSource, opts ...Option) *Renderer {
	r := &Renderer{
		faces:        src,
		textColor:    canvas.RGBA(30.0/255, 30.0/255, 30.0/255, 1),
		log:          zap.NewNop(),
		fontFamilies: map[fonts.FaceRef]*fontFamilyEntry{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render renders the document into a PDF byte slice.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, doc.Pages[0].Width, doc.Pages[0].Height, nil)
	r.applyMeta(writer, doc.Meta)
	for i, page := range doc.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page); err != nil {
			return nil, fmt.Errorf("渲染第 %d 页失败: %w", page.Number, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return pinInfoDates(buf.Bytes()), nil
}

// infoDatePattern 匹配信息字典中的 CreationDate/ModDate 字符串。
var infoDatePattern = regexp.MustCompile(`/(?:CreationDate|ModDate)\s*\((?:D:)?[^)]*\)`)

// fixedDate 是写入 PDF 的固定时间戳 2000-01-01 00:00:00，不足的位以 0 补齐。
const fixedDate = "20000101000000"

// pdf 写入器总会记录当前时间。pinInfoDates 原地把日期中的数字替换为 fixedDate，
// 长度不变，xref 偏移仍然有效，相同文档因此得到相同字节。
func pinInfoDates(data []byte) []byte {
	for _, loc := range infoDatePattern.FindAllIndex(data, -1) {
		open := bytes.IndexByte(data[loc[0]:loc[1]], '(') + loc[0]
		n := 0
		for i := open + 1; i < loc[1]-1; i++ {
			if data[i] < '0' || data[i] > '9' {
				continue
			}
			if n < len(fixedDate) {
				data[i] = fixedDate[n]
			} else {
				data[i] = '0'
			}
			n++
		}
	}
	return data
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page) error {
	r.drawRules(ctx, page.Rules)
	for _, line := range page.Lines {
		baseline := line.Y + line.Ascent
		for _, tok := range line.Tokens {
			for _, frag := range tok.Fragments {
				if err := r.drawFragment(ctx, frag, baseline); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Renderer) drawFragment(ctx *canvas.Context, frag layout.Fragment, baseline float64) error {
	// Fragment 的字号为 mm；创建字体面需要 pt，这里做一次 mm→pt。
	face, err := r.fontFace(frag.Face, frag.Size)
	if err != nil {
		return err
	}
	ctx.DrawText(frag.X, baseline, canvas.NewTextLine(face, frag.Text, canvas.Left))
	if frag.Underline {
		thickness := frag.Size * 0.06
		ctx.SetFillColor(r.textColor)
		ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
		ctx.DrawPath(frag.X, baseline+frag.Size*0.12, canvas.Rectangle(frag.Width, thickness))
	}
	return nil
}

// drawRules 绘制水平分隔线（毫米单位）
func (r *Renderer) drawRules(ctx *canvas.Context, rules []layout.Rule) {
	for _, rule := range rules {
		w := rule.Width
		if w <= 0 {
			w = defaultRuleWidth
		}
		ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
		ctx.SetStrokeColor(r.textColor)
		ctx.SetStrokeWidth(w)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(rule.X2-rule.X1, 0)
		ctx.DrawPath(rule.X1, rule.Y, p)
	}
}

// TextWidth 实现 layout.Measurer，size 与返回值均为 mm。
func (r *Renderer) TextWidth(ref fonts.FaceRef, size float64, text string) float64 {
	face, err := r.fontFace(ref, size)
	if err != nil {
		return estimateTextWidth(text, size)
	}
	return face.TextWidth(text)
}

// Metrics 实现 layout.Measurer。
func (r *Renderer) Metrics(ref fonts.FaceRef, size float64) layout.FontMetrics {
	face, err := r.fontFace(ref, size)
	if err != nil {
		return layout.FontMetrics{Ascent: size * 0.8, Descent: size * 0.2, LineHeight: size * 1.2}
	}
	m := face.Metrics()
	return layout.FontMetrics{Ascent: m.Ascent, Descent: m.Descent, LineHeight: m.LineHeight}
}

func (r *Renderer) fontFace(ref fonts.FaceRef, sizeMM float64) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(ref)
	if err != nil {
		return nil, err
	}
	return family.Face(toPt(sizeMM), r.textColor, style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(ref fonts.FaceRef) (*canvas.FontFamily, canvas.FontStyle, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[ref]; ok {
		return entry.family, entry.style, nil
	}

	family, style, err := r.loadFamily(ref)
	if err != nil {
		r.log.Warn("加载字体失败，使用后备字体", zap.Stringer("face", ref), zap.Error(err))
		fallback, fbStyle, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.fontFamilies[ref] = &fontFamilyEntry{family: fallback, style: fbStyle}
		return fallback, fbStyle, nil
	}
	r.fontFamilies[ref] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func (r *Renderer) loadFamily(ref fonts.FaceRef) (*canvas.FontFamily, canvas.FontStyle, error) {
	if r.faces == nil {
		return nil, canvas.FontRegular, fmt.Errorf("未配置字体来源")
	}
	face, ok := r.faces.Face(ref)
	if !ok {
		return nil, canvas.FontRegular, fmt.Errorf("%w: %s", fonts.ErrUnknownFace, ref)
	}
	// 缺字字体会映射到默认族的某个字形文件，样式以实际文件为准。
	style := parseFontStyle(face.Ref.Style)
	family := canvas.NewFontFamily(face.Ref.String())
	if err := family.LoadFont(face.Data(), 0, style); err != nil {
		return nil, canvas.FontRegular, fmt.Errorf("加载字体 %s 失败: %w", face.Path, err)
	}
	return family, style, nil
}

func (r *Renderer) fallback() (*canvas.FontFamily, canvas.FontStyle, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, canvas.FontRegular, nil
	}
	family := canvas.NewFontFamily("w4tty-fallback")
	if err := family.LoadFont(goregular.TTF, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fallbackFamily = family
	return family, canvas.FontRegular, nil
}

func parseFontStyle(style fonts.Style) canvas.FontStyle {
	result := canvas.FontRegular
	if style.Bold {
		result = canvas.FontBold
	}
	if style.Italic {
		result |= canvas.FontItalic
	}
	return result
}

// estimateTextWidth 在字体不可用时按半个字号估算每个字符的宽度。
func estimateTextWidth(content string, size float64) float64 {
	return float64(utf8.RuneCountInString(content)) * size * 0.5
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
