package layout

import (
	"github.com/ByLCY/w4tty/fonts"
	"github.com/ByLCY/w4tty/markup"
)

// 该文件定义布局结果，供渲染与调试 JSON 共用。所有坐标以页面左上角为原点，单位 mm。

// Document 是排版完成、可直接渲染的文档。
type Document struct {
	Meta  DocumentMeta `json:"meta"`
	Pages []Page       `json:"pages"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// Page 记录页面尺寸、边距与已定位的行。页面封存后不再修改。
type Page struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin Margin  `json:"margin"`
	Lines  []Line  `json:"lines"`
	Rules  []Rule  `json:"rules,omitempty"`
	// Cursor 是下一行的顶部位置。
	Cursor float64 `json:"cursor"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Line 是一行已定位的词元。Y 为行顶，基线位于 Y+Ascent。
type Line struct {
	Y      float64      `json:"y"`
	Height float64      `json:"height"`
	Ascent float64      `json:"ascent"`
	Width  float64      `json:"width"` // 词元与词间距的自然宽度，不含两端对齐补偿
	Align  markup.Align `json:"align"`
	Last   bool         `json:"last,omitempty"` // 段落或行组的最后一行
	Tokens []Token      `json:"tokens"`
}

// Token 是以空白分隔的一个词，可能由多个不同字体的片段组成。
type Token struct {
	X         float64    `json:"x"`
	Width     float64    `json:"width"`
	Fragments []Fragment `json:"fragments"`
}

// Fragment 是同一字体、字号下连续绘制的一段文本。
type Fragment struct {
	Text      string        `json:"text"`
	Face      fonts.FaceRef `json:"face"`
	Size      float64       `json:"size"` // 字号（mm）
	X         float64       `json:"x"`
	Width     float64       `json:"width"`
	Underline bool          `json:"underline,omitempty"`
}

// Rule 是一条水平分隔线。
type Rule struct {
	X1    float64 `json:"x1"`
	X2    float64 `json:"x2"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"` // 线宽（mm）
}

// Text 返回该行的纯文本，词之间以单个空格连接。
func (l Line) Text() string {
	var out []byte
	for i, tok := range l.Tokens {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, tok.Text()...)
	}
	return string(out)
}

// Text 返回词元的纯文本。
func (t Token) Text() string {
	var out []byte
	for _, f := range t.Fragments {
		out = append(out, f.Text...)
	}
	return string(out)
}
