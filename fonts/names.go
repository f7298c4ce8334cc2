package fonts

import (
	"path/filepath"
	"strings"
)

// styleSuffixes 按匹配优先级排列，组合样式必须排在单一样式之前。
var styleSuffixes = []struct {
	keyword string
	style   Style
}{
	{"boldoblique", Style{Bold: true, Italic: true}},
	{"bolditalic", Style{Bold: true, Italic: true}},
	{"bold", Style{Bold: true}},
	{"oblique", Style{Italic: true}},
	{"italic", Style{Italic: true}},
	{"regular", Style{}},
	{"book", Style{}},
}

// parseFontName 从文件名推断字体族与样式，例如 "DejaVuSans-BoldOblique.ttf"。
// 第二个返回值表示文件名中是否带有可识别的样式后缀。
func parseFontName(name string) (string, Style, bool) {
	name = filepath.Base(strings.TrimPrefix(name, builtinPrefix))
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	base, suffix, ok := strings.Cut(stem, "-")
	if !ok || base == "" {
		return stem, Style{}, false
	}
	lowered := strings.ToLower(suffix)
	for _, s := range styleSuffixes {
		if strings.HasSuffix(lowered, s.keyword) {
			return base, s.style, true
		}
	}
	return stem, Style{}, false
}

func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}
