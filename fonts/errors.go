package fonts

import "errors"

var (
	// ErrUnreadableFont 表示字体文件无法读取或解析，注册表构建失败。
	ErrUnreadableFont = errors.New("fonts: 无法解析字体文件")
	// ErrUnknownFace 表示请求的 (family, style) 从未注册。
	ErrUnknownFace = errors.New("fonts: 未注册的字体样式")
	// ErrNoLatinCoverage 表示没有任何已注册字体覆盖基本拉丁字符。
	ErrNoLatinCoverage = errors.New("fonts: 没有覆盖基本拉丁字符的字体")
	// ErrSealed 表示注册表已封存，不再接受新的字体。
	ErrSealed = errors.New("fonts: 字体注册表已封存")
)
