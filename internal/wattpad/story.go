package wattpad

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Story 是故事页解析结果。
type Story struct {
	ID     string
	URL    string
	Title  string
	Author string
	Parts  []Part
}

// Part 是目录中的一个章节。
type Part struct {
	ID    string
	Title string
	URL   string
}

// DisplayTitle 返回章节标题，为空时使用 "Part <id>"。
func (p Part) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return "Part " + p.ID
}

const (
	xpathOGTitle  = `//meta[@property="og:title"]`
	xpathHeading  = `//*[self::h1 or self::h2]`
	xpathTitle    = `//title`
	xpathAuthor   = `//meta[@name="author"]`
	xpathPartLink = `//ul[@aria-label="story-parts"]//a[@href]`
)

var leadingDigits = regexp.MustCompile(`^\d+`)

// ExtractStoryID 返回 URL 中最后一个以数字开头的路径段在第一个 "-" 之前的部分，
// 例如 ".../story/123456-some-title" 得到 "123456"。
func ExtractStoryID(rawURL string) (string, error) {
	path, _, _ := strings.Cut(rawURL, "#")
	path, _, _ = strings.Cut(path, "?")
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || !leadingDigits.MatchString(seg) {
			continue
		}
		id, _, _ := strings.Cut(seg, "-")
		return id, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoStoryID, rawURL)
}

// ParseStory 从故事页 HTML 中提取标题、作者与章节目录。pageURL 用于解析相对链接。
func ParseStory(pageURL string, r io.Reader) (*Story, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("解析故事 URL 失败: %w", err)
	}
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析故事页失败: %w", err)
	}

	title := storyTitle(doc)
	if title == "" {
		return nil, ErrNoTitle
	}
	story := &Story{URL: pageURL, Title: title}
	if node := htmlquery.FindOne(doc, xpathAuthor); node != nil {
		story.Author = strings.TrimSpace(htmlquery.SelectAttr(node, "content"))
	}

	for _, link := range htmlquery.Find(doc, xpathPartLink) {
		ref, err := url.Parse(strings.TrimSpace(htmlquery.SelectAttr(link, "href")))
		if err != nil {
			continue
		}
		partURL := base.ResolveReference(ref).String()
		id, err := ExtractStoryID(partURL)
		if err != nil {
			continue
		}
		story.Parts = append(story.Parts, Part{
			ID:    id,
			Title: CleanPartTitle(joinedText(link)),
			URL:   partURL,
		})
	}
	if len(story.Parts) == 0 {
		return nil, ErrNoParts
	}
	if id, err := ExtractStoryID(pageURL); err == nil {
		story.ID = id
	} else {
		story.ID = story.Parts[0].ID
	}
	return story, nil
}

// storyTitle 依次尝试 og:title、第一个 h1/h2 与 <title>。
func storyTitle(doc *html.Node) string {
	if node := htmlquery.FindOne(doc, xpathOGTitle); node != nil {
		if t := stripWattpadSuffix(htmlquery.SelectAttr(node, "content")); t != "" {
			return t
		}
	}
	if node := htmlquery.FindOne(doc, xpathHeading); node != nil {
		if t := stripWattpadSuffix(joinedText(node)); t != "" {
			return t
		}
	}
	if node := htmlquery.FindOne(doc, xpathTitle); node != nil {
		return stripWattpadSuffix(htmlquery.InnerText(node))
	}
	return ""
}

const wattpadSuffix = " - Wattpad"

func stripWattpadSuffix(value string) string {
	return strings.TrimSpace(strings.TrimSuffix(value, wattpadSuffix))
}

var (
	partDatePattern     = regexp.MustCompile(`(?i)(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun),?\s+[A-Z][a-z]{2}\s+\d{1,2},\s+\d{4}$`)
	trailingPunctuation = regexp.MustCompile(`[\s,:-]+$`)
	repeatedSpace       = regexp.MustCompile(`\s{2,}`)
)

// CleanPartTitle 去掉目录文字末尾附带的发布日期（如 "Mon, Jan 2, 2006"）
// 与多余的标点，并合并连续空白。
func CleanPartTitle(raw string) string {
	cleaned := strings.TrimSpace(partDatePattern.ReplaceAllString(raw, ""))
	cleaned = strings.TrimSpace(trailingPunctuation.ReplaceAllString(cleaned, ""))
	return repeatedSpace.ReplaceAllString(cleaned, " ")
}

// joinedText 收集节点下所有非空文本，去掉首尾空白后以单个空格连接。
func joinedText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
