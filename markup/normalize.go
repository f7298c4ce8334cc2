// Package markup 把章节 HTML 规范化为扁平的样式化文本序列。
package markup

import (
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/w4tty/css"
)

// blockTags 前后各请求一次段落分隔。
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "pre": true, "header": true, "footer": true,
	"figure": true, "figcaption": true, "center": true, "table": true, "tr": true,
	"main": true, "aside": true, "nav": true, "dl": true, "dt": true, "dd": true,
}

// droppedTags 的整棵子树都不是正文。
var droppedTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true, "noscript": true,
	"template": true, "iframe": true, "svg": true, "object": true, "canvas": true,
}

var genericFamilies = map[string]bool{
	"serif": true, "sans-serif": true, "monospace": true, "cursive": true,
	"fantasy": true, "system-ui": true, "inherit": true, "initial": true,
}

// Option 配置 Normalizer。
type Option func(*Normalizer)

// WithLogger 设置日志记录器。
func WithLogger(log *zap.Logger) Option {
	return func(n *Normalizer) {
		if log != nil {
			n.log = log
		}
	}
}

// Normalizer 把任意（可能残缺的）HTML 转成 []Run，从不失败。
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer 创建 Normalizer。
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{log: zap.NewNop()}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize 使用默认配置规范化 raw。
func Normalize(raw string) []Run { return NewNormalizer().Normalize(raw) }

// Normalize 解析 raw 并深度优先遍历，输出的 Run 满足：
// 换行与段落标记只出现在两段内容之间，相邻同格式文本已合并。
func (n *Normalizer) Normalize(raw string) []Run {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(raw), body)
	if err != nil {
		n.log.Warn("HTML 解析失败，使用已解析部分", zap.Error(err))
	}
	w := &walker{log: n.log, atStart: true, ignoredProps: map[string]bool{}}
	for _, node := range nodes {
		w.walk(node, scope{})
	}
	w.trimTrailingSpace()
	return w.runs
}

// scope 是沿 DOM 向下继承的格式上下文。
type scope struct {
	style Style
	align Align
	role  Role
	level int
	pre   bool
}

type listState struct {
	ordered bool
	next    int
}

type walker struct {
	log *zap.Logger

	runs []Run

	pendingPara  bool
	pendingLines int
	// atStart 为真表示当前位于行首，行首空白会被丢弃。
	atStart bool

	lists []*listState
	// ignoredProps 记录已经提示过的不支持样式属性。
	ignoredProps map[string]bool
}

func (w *walker) walk(node *html.Node, sc scope) {
	switch node.Type {
	case html.TextNode:
		w.text(node.Data, sc)
		return
	case html.DocumentNode:
		w.children(node, sc)
		return
	case html.ElementNode:
	default:
		return
	}

	name := strings.ToLower(node.Data)
	if droppedTags[name] {
		w.log.Debug("丢弃非正文标签", zap.String("tag", name))
		return
	}

	switch name {
	case "br":
		w.requestLine()
		return
	case "hr":
		w.rule(sc)
		return
	case "img":
		if alt := strings.TrimSpace(attr(node, "alt")); alt != "" {
			s := sc
			s.style.Italic = true
			w.text(alt, s)
		}
		return
	case "td", "th":
		w.text(" ", sc)
	}

	sc = w.applyFormatting(node, name, sc)
	block := blockTags[name]
	if block {
		w.requestParagraph()
	}

	switch name {
	case "ul", "ol":
		w.lists = append(w.lists, &listState{ordered: name == "ol", next: listStart(node)})
		w.children(node, sc)
		w.lists = w.lists[:len(w.lists)-1]
	case "li":
		w.listMarker(sc)
		w.children(node, sc)
	default:
		w.children(node, sc)
	}

	if block {
		w.requestParagraph()
	}
}

func (w *walker) children(node *html.Node, sc scope) {
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, sc)
	}
}

// applyFormatting 合并标签语义、align 属性、class 与内联 style。
func (w *walker) applyFormatting(node *html.Node, name string, sc scope) scope {
	switch name {
	case "b", "strong":
		sc.style.Bold = true
	case "i", "em", "cite", "var", "dfn":
		sc.style.Italic = true
	case "u", "ins":
		sc.style.Underline = true
	case "pre":
		sc.pre = true
	case "center":
		sc.align = AlignCenter
	case "h1", "h2", "h3", "h4", "h5", "h6":
		sc.role = RoleHeading
		sc.level = int(name[1] - '0')
		sc.style.Bold = true
	}

	if face := attr(node, "face"); face != "" {
		sc.style.Family = firstFamily(face)
	} else if face := attr(node, "data-font"); face != "" {
		sc.style.Family = firstFamily(face)
	}

	if a, ok := ParseAlign(strings.ToLower(strings.TrimSpace(attr(node, "align")))); ok {
		sc.align = a
	}

	for _, class := range strings.Fields(strings.ToLower(attr(node, "class"))) {
		switch {
		case strings.Contains(class, "bold"):
			sc.style.Bold = true
		case strings.Contains(class, "italic"):
			sc.style.Italic = true
		case strings.Contains(class, "underline"):
			sc.style.Underline = true
		case strings.Contains(class, "center"):
			sc.align = AlignCenter
		case strings.Contains(class, "right"):
			sc.align = AlignRight
		case strings.Contains(class, "justify"):
			sc.align = AlignJustify
		}
	}

	if raw := attr(node, "style"); raw != "" {
		decls, err := css.Parse(raw)
		if err != nil {
			w.log.Debug("忽略无法解析的内联样式", zap.String("style", raw), zap.Error(err))
			return sc
		}
		for _, prop := range decls.Properties() {
			if !styleProperties[prop] && !w.ignoredProps[prop] {
				w.ignoredProps[prop] = true
				w.log.Debug("忽略不支持的样式属性", zap.String("property", prop))
			}
		}
		sc = applyDeclarations(decls, sc)
	}
	return sc
}

// styleProperties 是 applyDeclarations 能识别的内联样式属性。
var styleProperties = map[string]bool{
	"font-weight": true, "font-style": true, "text-decoration": true,
	"text-decoration-line": true, "text-align": true, "font-family": true,
}

func applyDeclarations(decls *css.DeclarationList, sc scope) scope {
	if v, ok := decls.Lookup("font-weight"); ok {
		v = strings.ToLower(v)
		switch v {
		case "bold", "bolder":
			sc.style.Bold = true
		case "normal", "lighter":
			sc.style.Bold = false
		default:
			if n, err := strconv.Atoi(v); err == nil {
				sc.style.Bold = n >= 600
			}
		}
	}
	if v, ok := decls.Lookup("font-style"); ok {
		switch strings.ToLower(v) {
		case "italic", "oblique":
			sc.style.Italic = true
		case "normal":
			sc.style.Italic = false
		}
	}
	for _, prop := range []string{"text-decoration", "text-decoration-line"} {
		if v, ok := decls.Lookup(prop); ok {
			v = strings.ToLower(v)
			switch {
			case strings.Contains(v, "underline"):
				sc.style.Underline = true
			case strings.Contains(v, "none"):
				sc.style.Underline = false
			}
		}
	}
	if v, ok := decls.Lookup("text-align"); ok {
		if a, ok := ParseAlign(strings.ToLower(v)); ok {
			sc.align = a
		}
	}
	if v, ok := decls.Lookup("font-family"); ok {
		if family := firstFamily(v); family != "" {
			sc.style.Family = family
		}
	}
	return sc
}

// firstFamily 取字体列表中第一个具体族名，忽略通用族。
func firstFamily(value string) string {
	for _, part := range strings.Split(value, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"'`)
		if name == "" || genericFamilies[strings.ToLower(name)] {
			continue
		}
		return name
	}
	return ""
}

func (w *walker) listMarker(sc scope) {
	if len(w.lists) == 0 {
		w.text("• ", sc)
		return
	}
	list := w.lists[len(w.lists)-1]
	if !list.ordered {
		w.text("• ", sc)
		return
	}
	w.text(strconv.Itoa(list.next)+". ", sc)
	list.next++
}

func listStart(node *html.Node) int {
	if n, err := strconv.Atoi(attr(node, "start")); err == nil {
		return n
	}
	return 1
}

func (w *walker) requestParagraph() {
	w.pendingPara = true
	w.pendingLines = 0
	w.atStart = true
	w.trimTrailingSpace()
}

func (w *walker) requestLine() {
	if !w.pendingPara {
		w.pendingLines++
	}
	w.atStart = true
	w.trimTrailingSpace()
}

func (w *walker) rule(sc scope) {
	w.trimTrailingSpace()
	w.pendingPara, w.pendingLines = false, 0
	w.runs = append(w.runs, Run{Role: RoleRule, Align: sc.align})
	w.pendingPara = true
	w.atStart = true
}

// flushBreaks 在输出下一段文本前写入挂起的分隔标记；文档开头的分隔被丢弃。
func (w *walker) flushBreaks() {
	if len(w.runs) > 0 && w.runs[len(w.runs)-1].Role != RoleRule {
		switch {
		case w.pendingPara:
			w.runs = append(w.runs, ParagraphBreak)
		case w.pendingLines > 0:
			for i := 0; i < w.pendingLines; i++ {
				w.runs = append(w.runs, LineBreak)
			}
		}
	}
	w.pendingPara, w.pendingLines = false, 0
}

func (w *walker) text(raw string, sc scope) {
	raw = strings.ReplaceAll(norm.NFC.String(raw), "\u00a0", " ")
	if sc.pre {
		lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
		for i, line := range lines {
			if i > 0 {
				w.requestLine()
			}
			if strings.TrimSpace(line) != "" {
				w.emit(preSpaces.Replace(line), sc)
			}
		}
		return
	}
	text := collapseSpace(raw)
	if w.atStart || w.endsWithSpace() {
		text = strings.TrimLeft(text, " ")
	}
	if text == "" {
		return
	}
	w.emit(text, sc)
}

func (w *walker) emit(text string, sc scope) {
	if w.pendingPara || w.pendingLines > 0 {
		w.flushBreaks()
	}
	run := Run{Text: text, Style: sc.style, Align: sc.align, Role: RoleText}
	if sc.role == RoleHeading {
		run.Role, run.Level = RoleHeading, sc.level
	}
	if n := len(w.runs); n > 0 && !w.runs[n-1].Role.IsBreak() && w.runs[n-1].sameFormat(run) {
		w.runs[n-1].Text += text
	} else {
		w.runs = append(w.runs, run)
	}
	w.atStart = false
}

func (w *walker) endsWithSpace() bool {
	n := len(w.runs)
	if n == 0 || w.runs[n-1].Role.IsBreak() {
		return false
	}
	return strings.HasSuffix(w.runs[n-1].Text, " ")
}

func (w *walker) trimTrailingSpace() {
	n := len(w.runs)
	if n == 0 || w.runs[n-1].Role.IsBreak() {
		return
	}
	last := &w.runs[n-1]
	last.Text = strings.TrimRight(last.Text, " ")
	if last.Text == "" {
		w.runs = w.runs[:n-1]
		w.trimTrailingSpace()
	}
}

// NBSP 是不可断行空格，排版阶段不会在它处断词。
const NBSP = '\u00a0'

// preSpaces 把 pre 中的空格和制表符换成不可断行空格，缩进与连续空格因此保留到排版。
var preSpaces = strings.NewReplacer(" ", string(NBSP), "\t", strings.Repeat(string(NBSP), 4))

// collapseSpace 把连续空白折叠为单个空格。
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
