package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ByLCY/w4tty/binding"
	"github.com/ByLCY/w4tty/config"
	"github.com/ByLCY/w4tty/document"
	"github.com/ByLCY/w4tty/fonts"
	"github.com/ByLCY/w4tty/internal/wattpad"
	"github.com/ByLCY/w4tty/layout"
	canvasrenderer "github.com/ByLCY/w4tty/renderer/canvas"
)

// Args 是命令行参数，未设置的项使用配置文件中的值。
type Args struct {
	URL     string `arg:"positional,required" help:"Wattpad 故事页完整 URL"`
	Out     string `arg:"-o,--out" help:"PDF 输出路径，默认由标题生成"`
	Timeout int    `arg:"--timeout" help:"单次 HTTP 请求超时（秒），默认 20"`
	Config  string `arg:"-c,--config" help:"YAML 配置文件"`
	Fonts   string `arg:"--fonts" help:"字体目录，默认 fonts"`
	Family  string `arg:"--family" help:"正文字体族"`
	Page    string `arg:"--page" help:"纸张尺寸：Letter、Legal、A4、A5"`
	Debug   string `arg:"--debug" help:"布局调试 JSON 输出路径"`
	Browser bool   `arg:"--browser" help:"使用无头 Chrome 渲染故事页"`
	Verbose bool   `arg:"-v,--verbose" help:"输出调试日志"`
}

func (Args) Description() string {
	return "下载 Wattpad 故事并生成 PDF。"
}

var (
	okStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22AA55"))
	errStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
)

func main() {
	var args Args
	arg.MustParse(&args)

	log, err := newLogger(args.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("初始化日志失败: "+err.Error()))
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	title, path, err := run(ctx, args, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("生成 PDF 失败: "+err.Error()))
		os.Exit(1)
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Saved %q to %s", title, path)))
}

// newLogger 创建输出到 stderr 的开发格式日志，默认只显示警告及以上。
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// loadConfig 读取配置文件并用命令行参数覆盖。
func loadConfig(args Args) (config.Config, error) {
	cfg, err := config.Load(args.Config)
	if err != nil {
		return cfg, err
	}
	if args.Timeout > 0 {
		cfg.Timeout = args.Timeout
	}
	if args.Fonts != "" {
		cfg.Fonts = args.Fonts
	}
	if args.Family != "" {
		cfg.Family = args.Family
	}
	if args.Page != "" {
		cfg.Page = args.Page
	}
	if args.Browser {
		cfg.Browser = true
	}
	return cfg, nil
}

// run 串联抓取、排版与渲染，返回故事标题与输出路径。
func run(ctx context.Context, args Args, log *zap.Logger) (string, string, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return "", "", err
	}
	pageCfg, err := cfg.Layout()
	if err != nil {
		return "", "", fmt.Errorf("页面配置无效: %w", err)
	}

	registry, err := fonts.Load(cfg.Fonts,
		fonts.WithLogger(log),
		fonts.WithDefaultFamily(cfg.Family),
		fonts.WithFallbackOrder(cfg.Fallback...))
	if err != nil {
		return "", "", fmt.Errorf("加载字体失败: %w", err)
	}

	clientOpts := []wattpad.Option{
		wattpad.WithTimeout(cfg.RequestTimeout()),
		wattpad.WithRate(cfg.Rate),
		wattpad.WithUserAgent(cfg.UserAgent),
		wattpad.WithLogger(log),
	}
	if cfg.Browser {
		browser := wattpad.NewBrowserSource(
			wattpad.WithExecPath(cfg.ChromePath),
			wattpad.WithBrowserUserAgent(cfg.UserAgent),
			wattpad.WithBrowserTimeout(cfg.RequestTimeout()))
		defer browser.Close()
		clientOpts = append(clientOpts, wattpad.WithPageSource(browser))
	}
	client := wattpad.NewClient(clientOpts...)

	story, err := client.FetchStory(ctx, args.URL)
	if err != nil {
		return "", "", err
	}
	chapters, err := fetchChapters(ctx, client, story)
	if err != nil {
		return "", "", err
	}

	renderOpts := []canvasrenderer.Option{canvasrenderer.WithLogger(log)}
	textColor, err := cfg.Color()
	if err != nil {
		return "", "", err
	}
	if textColor != nil {
		renderOpts = append(renderOpts, canvasrenderer.WithTextColor(textColor))
	}
	r := canvasrenderer.NewRenderer(registry, renderOpts...)
	assembler, err := document.NewAssembler(registry, r,
		document.WithConfig(pageCfg),
		document.WithHeadingFamily(cfg.HeadingFamily),
		document.WithPlaceholder(cfg.Placeholder),
		document.WithMeta(layout.DocumentMeta{
			Title:   story.Title,
			Author:  story.Author,
			Creator: "w4tty",
			Subject: story.URL,
		}),
		document.WithLogger(log))
	if err != nil {
		return "", "", err
	}
	book, err := assembler.Assemble(story.Title, chapters)
	if err != nil {
		return "", "", fmt.Errorf("布局计算失败: %w", err)
	}

	if args.Debug != "" {
		if err := writeDebug(book.Document, args.Debug); err != nil {
			return "", "", err
		}
	}

	outputPath := args.Out
	if outputPath == "" {
		outputPath = defaultOutputPath(cfg.Output, story)
	}
	pdfBytes, err := book.Serialize()
	if err != nil {
		return "", "", fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := writeFile(outputPath, pdfBytes); err != nil {
		return "", "", err
	}
	return story.Title, outputPath, nil
}

// fetchChapters 逐章下载；stderr 是终端时显示进度条。
func fetchChapters(ctx context.Context, client *wattpad.Client, story *wattpad.Story) ([]document.Chapter, error) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return client.Chapters(ctx, story, nil)
	}
	bar := progressbar.NewOptions(len(story.Parts),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Downloading chapters"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
	chapters, err := client.Chapters(ctx, story, func(wattpad.Part, error) {
		_ = bar.Add(1)
	})
	if err != nil {
		_ = bar.Exit()
		return nil, err
	}
	_ = bar.Finish()
	return chapters, nil
}

// defaultOutputPath 用输出模板生成文件名，标题不可用时退回 "Wattpad Story <首章 ID>"。
func defaultOutputPath(tmpl string, story *wattpad.Story) string {
	fallback := "Wattpad Story"
	if len(story.Parts) > 0 {
		fallback += " " + story.Parts[0].ID
	}
	return binding.Interpolate(tmpl, binding.Fields{
		"title":  binding.SanitizeFilename(story.Title, fallback),
		"id":     story.ID,
		"author": binding.SanitizeFilename(story.Author, "unknown"),
	})
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func writeDebug(doc *layout.Document, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(doc, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
