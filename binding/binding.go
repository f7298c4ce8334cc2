package binding

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Fields 是模板可引用的字段，例如 title、id、author。
type Fields map[string]string

// Interpolate 将文本中的 ${name} 替换为 fields 中的值，名称前后空白会被忽略。
// 若字段不存在，则保留原占位符。
func Interpolate(text string, fields Fields) string {
	if len(fields) == 0 {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		name := strings.TrimSpace(groups[1])
		if val, ok := fields[name]; ok {
			return val
		}
		return match
	})
}

// Placeholders 按出现顺序列出模板中引用的字段名。
func Placeholders(text string) []string {
	var out []string
	for _, m := range exprPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

const maxFilenameLen = 120

var unsafeFilenameChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_", `\`, "_",
	"|", "_", "?", "_", "*", "_", "\x00", "_",
)

// SanitizeFilename 把 value 转成可用作文件名的字符串：替换 <>:"/\|?* 与 NUL，
// 去掉首尾空白以及末尾的点和空格，最多保留 120 个字符；结果为空时返回 fallback。
func SanitizeFilename(value, fallback string) string {
	cleaned := strings.TrimSpace(unsafeFilenameChars.Replace(value))
	cleaned = strings.TrimRight(cleaned, ". ")
	if utf8.RuneCountInString(cleaned) > maxFilenameLen {
		cleaned = strings.TrimRight(string([]rune(cleaned)[:maxFilenameLen]), ". ")
	}
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
