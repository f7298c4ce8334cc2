// Package config 读取 YAML 配置文件，并转换为排版与抓取所需的参数。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/w4tty/binding"
	"github.com/ByLCY/w4tty/document"
	"github.com/ByLCY/w4tty/internal/wattpad"
	"github.com/ByLCY/w4tty/layout"
)

// Config 对应配置文件结构。长度字段接受 "12pt"、"1.5cm"、"10"（毫米）等写法。
type Config struct {
	Page             string `yaml:"page"`
	Landscape        bool   `yaml:"landscape"`
	Margin           string `yaml:"margin"`
	FontSize         string `yaml:"font-size"`
	LineHeight       string `yaml:"line-height"`
	ParagraphSpacing string `yaml:"paragraph-spacing"`

	Family        string   `yaml:"family"`
	HeadingFamily string   `yaml:"heading-family"`
	Fonts         string   `yaml:"fonts"`
	Fallback      []string `yaml:"fallback"`

	// Timeout 为单次请求超时（秒）。
	Timeout   int     `yaml:"timeout"`
	Rate      float64 `yaml:"rate"`
	UserAgent string  `yaml:"user-agent"`
	Browser   bool    `yaml:"browser"`
	// ChromePath 指定 --browser 使用的 Chrome 可执行文件，为空时自动查找。
	ChromePath string `yaml:"chrome-path"`

	// TextColor 是正文颜色的 SVG 颜色名，例如 black、darkslategray；为空时使用渲染器默认色。
	TextColor string `yaml:"text-color"`

	Placeholder string `yaml:"placeholder"`
	// Output 是输出文件名模板，可使用 ${title}、${id}、${author}。
	Output string `yaml:"output"`
}

// Default 返回内置默认配置。
func Default() Config {
	return Config{
		Page:             "Letter",
		Margin:           "10mm 10mm 15mm 10mm",
		FontSize:         "12pt",
		LineHeight:       "1.3",
		ParagraphSpacing: "2.5mm",
		Fonts:            "fonts",
		Timeout:          20,
		Rate:             wattpad.DefaultRate,
		UserAgent:        wattpad.DefaultUserAgent,
		Placeholder:      document.DefaultPlaceholder,
		Output:           "${title}.pdf",
	}
}

// Load 在默认配置之上解码 path 指向的 YAML 文件；path 为空时直接返回默认配置。
// 未知字段视为错误，避免拼写错误被静默忽略。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("配置文件 %s: %w", path, err)
	}
	return cfg, nil
}

// ErrInvalidConfig 表示配置中的模板或颜色无法使用。
var ErrInvalidConfig = errors.New("config: 配置无效")

var (
	outputFields      = []string{"title", "id", "author"}
	placeholderFields = []string{"title", "index"}
)

// Validate 检查模板只引用可用字段，且颜色名可识别。
func (c Config) Validate() error {
	if err := checkFields("output", c.Output, outputFields); err != nil {
		return err
	}
	if err := checkFields("placeholder", c.Placeholder, placeholderFields); err != nil {
		return err
	}
	if _, err := c.Color(); err != nil {
		return err
	}
	return nil
}

func checkFields(key, tmpl string, allowed []string) error {
	for _, name := range binding.Placeholders(tmpl) {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("%w: %s 模板引用了未知字段 ${%s}，可用字段：%s",
				ErrInvalidConfig, key, name, strings.Join(allowed, ", "))
		}
	}
	return nil
}

// Color 解析 TextColor；为空时返回 nil。
func (c Config) Color() (color.Color, error) {
	name := strings.ToLower(strings.TrimSpace(c.TextColor))
	if name == "" {
		return nil, nil
	}
	rgba, ok := colornames.Map[name]
	if !ok {
		return nil, fmt.Errorf("%w: 未知颜色名 %q", ErrInvalidConfig, c.TextColor)
	}
	return rgba, nil
}

// RequestTimeout 返回单次请求的超时时间。
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Layout 把配置转换为 layout.Config，无法解析的值返回 layout.ErrInvalidPageConfig。
func (c Config) Layout() (layout.Config, error) {
	out := layout.DefaultConfig()

	width, height, err := layout.PageSize(c.Page, c.Landscape)
	if err != nil {
		return out, err
	}
	out.PageWidth, out.PageHeight = width, height

	if out.Margin, err = layout.ParseMargin(c.Margin); err != nil {
		return out, err
	}

	size, err := layout.ParseLength(c.FontSize)
	if err != nil {
		return out, fmt.Errorf("%w: font-size: %v", layout.ErrInvalidPageConfig, err)
	}
	out.FontSize = size.ToMM()

	lh, err := layout.ParseLineHeight(c.LineHeight)
	if err != nil {
		return out, fmt.Errorf("%w: line-height: %v", layout.ErrInvalidPageConfig, err)
	}
	if lh.Kind == layout.LineHeightFactor {
		out.LineHeight = lh.Factor
	} else {
		out.LineHeight = lh.FactorFor(size)
	}

	spacing, err := layout.ParseLength(c.ParagraphSpacing)
	if err != nil {
		return out, fmt.Errorf("%w: paragraph-spacing: %v", layout.ErrInvalidPageConfig, err)
	}
	out.ParagraphSpacing = spacing.ToMM()
	out.Family = c.Family

	return out, out.Validate()
}
