package markup

// Role 区分文本、标题以及各种分隔标记。
type Role int

const (
	RoleText Role = iota
	RoleHeading
	RoleLineBreak
	RoleParagraphBreak
	RoleRule
)

func (r Role) String() string {
	switch r {
	case RoleHeading:
		return "heading"
	case RoleLineBreak:
		return "line-break"
	case RoleParagraphBreak:
		return "paragraph-break"
	case RoleRule:
		return "rule"
	default:
		return "text"
	}
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// IsBreak 表示该 Run 只是结构标记，不携带文本。
func (r Role) IsBreak() bool {
	return r == RoleLineBreak || r == RoleParagraphBreak || r == RoleRule
}

// Align 是段落的水平对齐方式，零值为左对齐。
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
	AlignJustify
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	default:
		return "left"
	}
}

// MarshalText 让调试 JSON 输出可读的对齐方式。
func (a Align) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// ParseAlign 识别 left/center/right/justify（以及 start/end、middle），未知值返回 false。
func ParseAlign(value string) (Align, bool) {
	switch value {
	case "left", "start":
		return AlignLeft, true
	case "center", "middle":
		return AlignCenter, true
	case "right", "end":
		return AlignRight, true
	case "justify":
		return AlignJustify, true
	}
	return AlignLeft, false
}

// Style 是文本片段的字体请求。Family 为空时使用默认字体族。
type Style struct {
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Family    string `json:"family,omitempty"`
}

// Run 是规范化后的最小单元：一段同样式文本或一个分隔标记。
type Run struct {
	Text  string `json:"text,omitempty"`
	Style Style  `json:"style"`
	Align Align  `json:"align"`
	Role  Role   `json:"role"`
	Level int    `json:"level,omitempty"` // 标题级别 1–6
}

func (r Run) sameFormat(o Run) bool {
	return r.Style == o.Style && r.Align == o.Align && r.Role == o.Role && r.Level == o.Level
}

// Text 返回一个普通文本 Run。
func Text(text string, style Style, align Align) Run {
	return Run{Text: text, Style: style, Align: align, Role: RoleText}
}

// Heading 返回一个标题 Run，标题总是粗体。
func Heading(text string, level int, family string, align Align) Run {
	return Run{
		Text:  text,
		Style: Style{Bold: true, Family: family},
		Align: align,
		Role:  RoleHeading,
		Level: level,
	}
}

// LineBreak 与 ParagraphBreak 是两种分隔标记。
var (
	LineBreak      = Run{Role: RoleLineBreak}
	ParagraphBreak = Run{Role: RoleParagraphBreak}
)
