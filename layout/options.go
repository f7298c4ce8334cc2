package layout

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ByLCY/w4tty/fonts"
)

// Config 描述页面几何与正文排版参数，长度单位均为 mm。
type Config struct {
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`
	Margin     Margin  `json:"margin"`
	// FontSize 为正文字号（mm）。
	FontSize float64 `json:"fontSize"`
	// LineHeight 为行高相对字号的倍数。
	LineHeight float64 `json:"lineHeight"`
	// HeadingScale 是 h1–h6 相对正文字号的倍数。
	HeadingScale [6]float64 `json:"headingScale"`
	// ParagraphSpacing 是段落之间的额外间距，页顶不生效。
	ParagraphSpacing float64 `json:"paragraphSpacing"`
	// Family 是正文字体族，为空时使用注册表的默认族。
	Family string `json:"family,omitempty"`
	// RuleWidth 是 <hr> 的线宽。
	RuleWidth float64 `json:"ruleWidth"`
}

// DefaultConfig 返回 Letter 纸、12pt 正文的默认配置。
func DefaultConfig() Config {
	w, h, _ := PageSize("Letter", false)
	return Config{
		PageWidth:        w,
		PageHeight:       h,
		Margin:           Margin{Top: 10, Right: 10, Bottom: 15, Left: 10},
		FontSize:         12 * PtToMm,
		LineHeight:       1.3,
		HeadingScale:     [6]float64{2, 1.5, 1.17, 1, 0.83, 0.67},
		ParagraphSpacing: 2.5,
		RuleWidth:        0.3,
	}
}

// UsableWidth 返回左右边距之间的宽度。
func (c Config) UsableWidth() float64 { return c.PageWidth - c.Margin.Left - c.Margin.Right }

// UsableHeight 返回上下边距之间的高度。
func (c Config) UsableHeight() float64 { return c.PageHeight - c.Margin.Top - c.Margin.Bottom }

// Validate 检查配置能否排下至少一行文字。
func (c Config) Validate() error {
	switch {
	case c.PageWidth <= 0 || c.PageHeight <= 0:
		return fmt.Errorf("%w: 页面尺寸 %gx%gmm", ErrInvalidPageConfig, c.PageWidth, c.PageHeight)
	case c.Margin.Top < 0 || c.Margin.Right < 0 || c.Margin.Bottom < 0 || c.Margin.Left < 0:
		return fmt.Errorf("%w: 边距不能为负 %+v", ErrInvalidPageConfig, c.Margin)
	case c.UsableWidth() <= 0 || c.UsableHeight() <= 0:
		return fmt.Errorf("%w: 边距占满了页面", ErrInvalidPageConfig)
	case c.FontSize <= 0:
		return fmt.Errorf("%w: 字号 %gmm", ErrInvalidPageConfig, c.FontSize)
	case c.LineHeight <= 0:
		return fmt.Errorf("%w: 行高倍数 %g", ErrInvalidPageConfig, c.LineHeight)
	case c.ParagraphSpacing < 0:
		return fmt.Errorf("%w: 段落间距 %gmm", ErrInvalidPageConfig, c.ParagraphSpacing)
	}
	return nil
}

// sizeFor 返回标题级别对应的字号，level 为 0 表示正文。
func (c Config) sizeFor(level int) float64 {
	if level < 1 || level > len(c.HeadingScale) || c.HeadingScale[level-1] <= 0 {
		return c.FontSize
	}
	return c.FontSize * c.HeadingScale[level-1]
}

// FontSource 是布局阶段需要的字体查询能力，*fonts.Registry 实现了它。
type FontSource interface {
	Resolve(family string, style fonts.Style) (fonts.FaceRef, error)
	Closest(family string, style fonts.Style) fonts.FaceRef
	Covers(face fonts.FaceRef, r rune) bool
	FallbackFamilies() []string
	FallbackFor(r rune) fonts.FaceRef
	MissingGlyph() fonts.FaceRef
	DefaultFamily() string
}

// FontMetrics 是某字体在给定字号下的纵向度量（mm）。
type FontMetrics struct {
	Ascent     float64
	Descent    float64
	LineHeight float64
}

// Measurer 负责测量文本宽度，size 与返回值均为 mm。渲染器实现该接口，
// 保证排版与绘制使用同一套字形度量。
type Measurer interface {
	TextWidth(face fonts.FaceRef, size float64, text string) float64
	Metrics(face fonts.FaceRef, size float64) FontMetrics
}

// BuildOptions 配置布局阶段所需的依赖。
type BuildOptions struct {
	Fonts    FontSource
	Measurer Measurer
	Logger   *zap.Logger
}

var _ FontSource = (*fonts.Registry)(nil)
