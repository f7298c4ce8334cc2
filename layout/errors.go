package layout

import "errors"

// ErrInvalidPageConfig 表示页面尺寸、边距、字号或行高无法容纳任何内容。
var ErrInvalidPageConfig = errors.New("layout: 页面配置无效")
