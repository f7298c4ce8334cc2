// Package css 解析 HTML 元素 style 属性中的内联声明列表，例如
// `font-weight: bold; text-align: center !important`。
package css

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	styleLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n\f]+`},
		{Name: "Comment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
		{Name: "Hash", Pattern: `#[0-9A-Za-z_-]+`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.\d+|\.\d+|\d+)(?:[A-Za-z]+|%)?`},
		{Name: "Ident", Pattern: `-?[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[(),/]`},
		{Name: "Colon", Pattern: `:`},
		{Name: "Semi", Pattern: `;`},
		{Name: "Bang", Pattern: `!`},
		{Name: "Other", Pattern: `[^\s;:!]`},
	})

	declarationParser = participle.MustBuild[DeclarationList](
		participle.Lexer(styleLexer),
		participle.Elide("Whitespace", "Comment"),
	)
)

// DeclarationList 是 style 属性的根节点。
type DeclarationList struct {
	Declarations []*Declaration `parser:"';'* ( @@ ';'* )*"`
}

// Declaration 表示一条 `property: value [!important]` 声明。
type Declaration struct {
	Pos       lexer.Position `parser:"" json:"-"`
	Property  string         `parser:"@Ident ':'"`
	Values    []string       `parser:"@(Ident | Number | String | Hash | Punct | Other | ':')*"`
	Important bool           `parser:"( '!' @Ident )?"`
}

// Value 将值的各个词法单元以单个空格拼接，逗号前后不留空格。
func (d *Declaration) Value() string {
	var b strings.Builder
	for i, v := range d.Values {
		if i > 0 && v != "," && d.Values[i-1] != "," {
			b.WriteByte(' ')
		}
		b.WriteString(unquote(v))
	}
	return b.String()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// Parse 解析内联样式。
func Parse(style string) (*DeclarationList, error) {
	if strings.TrimSpace(style) == "" {
		return &DeclarationList{}, nil
	}
	list, err := declarationParser.ParseString("", style)
	if err != nil {
		return nil, fmt.Errorf("解析内联样式失败: %w", err)
	}
	return list, nil
}

// Lookup 返回属性（大小写不敏感）的最终取值：后出现的声明覆盖先出现的，
// 但普通声明不能覆盖 !important 声明。
func (l *DeclarationList) Lookup(property string) (string, bool) {
	if l == nil {
		return "", false
	}
	var (
		value     string
		found     bool
		important bool
	)
	for _, d := range l.Declarations {
		if !strings.EqualFold(d.Property, property) {
			continue
		}
		if important && !d.Important {
			continue
		}
		value, found, important = d.Value(), true, d.Important
	}
	return value, found
}

// Properties 按出现顺序列出声明的属性名（小写，去重）。
func (l *DeclarationList) Properties() []string {
	if l == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, d := range l.Declarations {
		name := strings.ToLower(d.Property)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
