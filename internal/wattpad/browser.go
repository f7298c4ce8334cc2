package wattpad

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserSource 用无头 Chrome 渲染故事页，适用于目录由脚本生成的页面。
// 浏览器在第一次调用 Page 时启动，使用完毕必须调用 Close。
type BrowserSource struct {
	execPath  string
	userAgent string
	timeout   time.Duration

	once          sync.Once
	startErr      error
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// BrowserOption 配置 BrowserSource。
type BrowserOption func(*BrowserSource)

// WithExecPath 指定 Chrome 可执行文件路径，为空时由 chromedp 自动查找。
func WithExecPath(path string) BrowserOption {
	return func(b *BrowserSource) { b.execPath = path }
}

// WithBrowserUserAgent 设置浏览器的 User-Agent。
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(b *BrowserSource) { b.userAgent = ua }
}

// WithBrowserTimeout 设置单个页面的加载超时。
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserSource) { b.timeout = d }
}

// NewBrowserSource 创建浏览器页面来源，此时并不启动浏览器。
func NewBrowserSource(opts ...BrowserOption) *BrowserSource {
	b := &BrowserSource{userAgent: DefaultUserAgent, timeout: DefaultTimeout}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *BrowserSource) start() error {
	b.once.Do(func() {
		allocOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("no-first-run", true),
			chromedp.UserAgent(b.userAgent),
		)
		if b.execPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(b.execPath))
		}
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			b.startErr = fmt.Errorf("启动浏览器失败: %w", err)
			return
		}
		b.allocCancel, b.browserCtx, b.browserCancel = allocCancel, browserCtx, browserCancel
	})
	return b.startErr
}

// Page 打开 pageURL，等待 body 就绪后返回渲染后的完整 HTML。
func (b *BrowserSource) Page(ctx context.Context, pageURL string) (string, error) {
	if err := b.start(); err != nil {
		return "", err
	}
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, b.timeout)
		defer cancel()
	}
	// 调用方取消时同时结束标签页
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var out string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &out, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("渲染页面 %s 失败: %w", pageURL, err)
	}
	return out, nil
}

// Close 关闭浏览器进程，可重复调用。
func (b *BrowserSource) Close() {
	if b.browserCancel != nil {
		b.browserCancel()
		b.allocCancel()
		b.browserCancel = nil
	}
}

var _ PageSource = (*BrowserSource)(nil)
