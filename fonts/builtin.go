package fonts

import (
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// builtinPrefix 标记内置字体的来源路径。
const builtinPrefix = "builtin:"

// BuiltinFamily 是随程序内置的字体族名称（Go 字体，覆盖 WGL4 字符集）。
const BuiltinFamily = "Go"

// builtinFaces 按注册顺序列出内置字体，文件名沿用 Family-Style 约定以复用名称解析。
var builtinFaces = []struct {
	name string
	data []byte
}{
	{"Go-Regular.ttf", goregular.TTF},
	{"Go-Bold.ttf", gobold.TTF},
	{"Go-Italic.ttf", goitalic.TTF},
	{"Go-BoldItalic.ttf", gobolditalic.TTF},
}

// RegisterBuiltin 将内置 Go 字体族注册到 r。
func RegisterBuiltin(r *Registry) error {
	for _, f := range builtinFaces {
		if _, err := r.RegisterBytes(builtinPrefix+f.name, f.data); err != nil {
			return err
		}
	}
	return nil
}
