// Package document 把故事标题与各章节 HTML 组装成一份排好版的文档。
package document

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ByLCY/w4tty/binding"
	"github.com/ByLCY/w4tty/layout"
	"github.com/ByLCY/w4tty/markup"
	"github.com/ByLCY/w4tty/renderer"
)

// DefaultPlaceholder 是章节下载失败时写入正文的提示模板。
const DefaultPlaceholder = `[Chapter "${title}" could not be downloaded.]`

// ErrNotMeasurer 表示渲染器不能同时提供文本测量。
var ErrNotMeasurer = errors.New("document: renderer 未实现排版接口 layout.Measurer")

// Chapter 是一章的原始内容。Missing 为 true 时 HTML 被忽略，改用占位提示。
type Chapter struct {
	Title   string
	HTML    string
	Missing bool
}

// Book 是组装结果，可重复序列化。
type Book struct {
	Document *layout.Document
	renderer renderer.Renderer
}

// Serialize 调用渲染器输出最终字节。
func (b *Book) Serialize() ([]byte, error) {
	if b == nil || b.Document == nil {
		return nil, fmt.Errorf("document: 文档尚未组装")
	}
	return b.renderer.Render(b.Document)
}

// Option 配置 Assembler。
type Option func(*Assembler)

// WithConfig 设置页面与正文排版参数。
func WithConfig(cfg layout.Config) Option {
	return func(a *Assembler) { a.cfg = cfg }
}

// WithHeadingFamily 设置标题字体族，未注册时排版阶段回退到默认族。
func WithHeadingFamily(family string) Option {
	return func(a *Assembler) { a.headingFamily = family }
}

// WithPlaceholder 设置缺失章节的提示模板，可使用 ${title} 与 ${index}。
func WithPlaceholder(tmpl string) Option {
	return func(a *Assembler) {
		if tmpl != "" {
			a.placeholder = tmpl
		}
	}
}

// WithMeta 设置 PDF 元信息；Title 为空时使用 Assemble 的标题。
func WithMeta(meta layout.DocumentMeta) Option {
	return func(a *Assembler) { a.meta = meta }
}

// WithLogger 设置日志记录器。
func WithLogger(log *zap.Logger) Option {
	return func(a *Assembler) {
		if log != nil {
			a.log = log
		}
	}
}

// Assembler 依次排版标题页与各章节。
type Assembler struct {
	fonts    layout.FontSource
	renderer renderer.Renderer
	measure  layout.Measurer

	cfg           layout.Config
	headingFamily string
	placeholder   string
	meta          layout.DocumentMeta
	log           *zap.Logger
}

// NewAssembler 创建组装器。r 必须同时实现 layout.Measurer，保证排版与绘制度量一致。
func NewAssembler(src layout.FontSource, r renderer.Renderer, opts ...Option) (*Assembler, error) {
	if src == nil {
		return nil, fmt.Errorf("document: 缺少字体来源")
	}
	if r == nil {
		return nil, fmt.Errorf("document: 缺少渲染器")
	}
	m, ok := r.(layout.Measurer)
	if !ok {
		return nil, ErrNotMeasurer
	}
	a := &Assembler{
		fonts:       src,
		renderer:    r,
		measure:     m,
		cfg:         layout.DefaultConfig(),
		placeholder: DefaultPlaceholder,
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Assemble 排版标题页和全部章节。相同输入总是得到相同的 Document。
func (a *Assembler) Assemble(title string, chapters []Chapter) (*Book, error) {
	engine, err := layout.NewEngine(a.cfg, layout.BuildOptions{
		Fonts:    a.fonts,
		Measurer: a.measure,
		Logger:   a.log,
	})
	if err != nil {
		return nil, err
	}
	normalizer := markup.NewNormalizer(markup.WithLogger(a.log))

	a.titlePage(engine, title)
	for i, ch := range chapters {
		heading := ch.Title
		if heading == "" {
			heading = "Part " + strconv.Itoa(i+1)
		}
		engine.Layout([]markup.Run{markup.Heading(heading, 2, a.headingFamily, markup.AlignCenter)})

		if ch.Missing {
			a.log.Warn("章节缺失，写入占位提示", zap.Int("part", i+1), zap.String("title", heading))
			note := binding.Interpolate(a.placeholder, binding.Fields{
				"title": heading,
				"index": strconv.Itoa(i + 1),
			})
			engine.Layout([]markup.Run{markup.Text(note, markup.Style{Italic: true}, markup.AlignLeft)})
			continue
		}
		engine.Layout(normalizer.Normalize(ch.HTML))
	}

	meta := a.meta
	if meta.Title == "" {
		meta.Title = title
	}
	return &Book{
		Document: &layout.Document{Meta: meta, Pages: engine.Finish()},
		renderer: a.renderer,
	}, nil
}

// titlePage 把标题放在页面三分之一高度处，其下可选作者行，然后换页。
func (a *Assembler) titlePage(engine *layout.Engine, title string) {
	engine.Space(a.cfg.UsableHeight() / 3)
	engine.Layout([]markup.Run{markup.Heading(title, 1, a.headingFamily, markup.AlignCenter)})
	if a.meta.Author != "" {
		engine.Layout([]markup.Run{markup.Text(a.meta.Author, markup.Style{Italic: true}, markup.AlignCenter)})
	}
	engine.BreakPage()
}
