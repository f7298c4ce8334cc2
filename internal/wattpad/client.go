// Package wattpad 抓取故事目录与章节正文。
package wattpad

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ByLCY/w4tty/document"
)

const (
	// DefaultUserAgent 模拟桌面浏览器，部分页面会拒绝默认的 Go UA。
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0 Safari/537.36"
	// DefaultRate 是每秒请求数上限。
	DefaultRate = 4.0
	// DefaultBaseURL 是章节正文接口所在的站点。
	DefaultBaseURL = "https://www.wattpad.com"
	// DefaultTimeout 是单次请求的超时时间。
	DefaultTimeout = 20 * time.Second

	storyTextPath = "/apiv2/storytext"
	maxBodySize   = 32 << 20
)

// PageSource 获取故事页 HTML。默认直接 GET，BrowserSource 可渲染需要脚本的页面。
type PageSource interface {
	Page(ctx context.Context, pageURL string) (string, error)
}

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout 设置单次请求超时，非正数表示不限制。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent 设置 User-Agent。
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRate 设置每秒请求数上限，非正数表示不限速。
func WithRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithBaseURL 设置章节正文接口的站点地址，测试时指向 httptest 服务器。
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithPageSource 设置故事页来源。
func WithPageSource(src PageSource) Option {
	return func(c *Client) { c.pages = src }
}

// WithLogger 设置日志记录器。
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client 顺序地请求故事页与章节正文，请求之间按 limiter 限速。
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
	baseURL   string
	limiter   *rate.Limiter
	pages     PageSource
	log       *zap.Logger
}

// NewClient 创建客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		baseURL:   DefaultBaseURL,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRate), 1),
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.pages == nil {
		c.pages = httpSource{c}
	}
	return c
}

// FetchStory 下载并解析故事页。
func (c *Client) FetchStory(ctx context.Context, storyURL string) (*Story, error) {
	if _, err := ExtractStoryID(storyURL); err != nil {
		return nil, err
	}
	body, err := c.pages.Page(ctx, storyURL)
	if err != nil {
		return nil, fmt.Errorf("获取故事页失败: %w", err)
	}
	story, err := ParseStory(storyURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.log.Debug("故事目录解析完成",
		zap.String("title", story.Title),
		zap.String("id", story.ID),
		zap.Int("parts", len(story.Parts)))
	return story, nil
}

type storyText struct {
	Text string `json:"text"`
}

// PartText 通过 storytext 接口获取章节 HTML。响应为 JSON 时取其 text 字段，
// 否则直接使用响应体；内容为空视为失败。所有失败都包装 ErrChapterFetchFailed。
func (c *Client) PartText(ctx context.Context, partID string) (string, error) {
	endpoint := c.baseURL + storyTextPath + "?" + url.Values{"id": {partID}}.Encode()
	body, contentType, err := c.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: part %s: %w", ErrChapterFetchFailed, partID, err)
	}

	text := string(body)
	if isJSON(contentType) {
		var payload storyText
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("%w: part %s: 解析 JSON 失败: %w", ErrChapterFetchFailed, partID, err)
		}
		text = payload.Text
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: part %s: 响应为空", ErrChapterFetchFailed, partID)
	}
	return text, nil
}

// Chapters 依次下载全部章节。单个章节失败（含请求超时）记录警告并标记为 Missing，
// 不中断其余章节；ctx 被取消时立即返回已下载的章节与 ctx 的错误。
// progress 在每个章节处理完后调用，可为 nil。
func (c *Client) Chapters(ctx context.Context, story *Story, progress func(Part, error)) ([]document.Chapter, error) {
	chapters := make([]document.Chapter, 0, len(story.Parts))
	for _, part := range story.Parts {
		if err := ctx.Err(); err != nil {
			return chapters, fmt.Errorf("下载章节被中断: %w", err)
		}
		ch := document.Chapter{Title: CleanPartTitle(part.DisplayTitle())}
		text, err := c.PartText(ctx, part.ID)
		if err != nil && ctx.Err() != nil {
			return chapters, fmt.Errorf("下载章节被中断: %w", ctx.Err())
		}
		if err != nil {
			c.log.Warn("章节下载失败，使用占位内容",
				zap.String("part", part.ID),
				zap.String("title", ch.Title),
				zap.Error(err))
			ch.Missing = true
		} else {
			ch.HTML = text
		}
		chapters = append(chapters, ch)
		if progress != nil {
			progress(part, err)
		}
	}
	return chapters, nil
}

// get 在限速后发起一次带超时的 GET 请求，返回响应体与 Content-Type。
func (c *Client) get(ctx context.Context, target string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	c.log.Debug("HTTP 请求完成",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %s: %s", ErrHTTPStatus, target, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("读取响应失败: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func isJSON(contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		media = contentType
	}
	return strings.Contains(strings.ToLower(media), "json")
}

// httpSource 直接 GET 故事页。
type httpSource struct{ c *Client }

func (s httpSource) Page(ctx context.Context, pageURL string) (string, error) {
	body, _, err := s.c.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
