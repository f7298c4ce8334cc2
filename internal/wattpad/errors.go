package wattpad

import "errors"

var (
	// ErrNoStoryID 表示 URL 中找不到以数字开头的路径段。
	ErrNoStoryID = errors.New("wattpad: 无法从 URL 识别故事 ID，请使用故事页的规范链接")
	// ErrNoTitle 表示故事页中找不到标题。
	ErrNoTitle = errors.New("wattpad: 页面中找不到故事标题")
	// ErrNoParts 表示目录中没有任何公开章节。
	ErrNoParts = errors.New("wattpad: 目录中没有公开章节")
	// ErrChapterFetchFailed 表示单个章节下载失败，调用方通常以占位章节代替。
	ErrChapterFetchFailed = errors.New("wattpad: 章节下载失败")
	// ErrHTTPStatus 表示服务器返回了非 2xx 状态码。
	ErrHTTPStatus = errors.New("wattpad: HTTP 状态异常")
)
