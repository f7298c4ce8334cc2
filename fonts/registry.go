package fonts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cmap"
)

// Style 描述字形的粗体/斜体组合。
type Style struct {
	Bold   bool `json:"bold,omitempty"`
	Italic bool `json:"italic,omitempty"`
}

func (s Style) String() string {
	switch {
	case s.Bold && s.Italic:
		return "bold-italic"
	case s.Bold:
		return "bold"
	case s.Italic:
		return "italic"
	default:
		return "regular"
	}
}

// FaceRef 是布局阶段持有的字体引用，只包含族名与样式，不包含文件路径。
type FaceRef struct {
	Family string `json:"family"`
	Style  Style  `json:"style"`
}

func (f FaceRef) String() string { return f.Family + "/" + f.Style.String() }

// Face 是一个已注册的字体文件及其字形覆盖表。
type Face struct {
	Ref  FaceRef
	Path string

	data []byte
	cmap cmap.Subtable
}

// Data 返回字体文件原始字节，渲染器用它嵌入 PDF。
func (f *Face) Data() []byte { return f.data }

// Has 判断该字体是否包含码点 r 的字形。
func (f *Face) Has(r rune) bool {
	if f == nil || f.cmap == nil {
		return false
	}
	return f.cmap.Lookup(r) != 0
}

// Option 配置 Registry。
type Option func(*Registry)

// WithLogger 设置日志记录器，默认不输出。
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithDefaultFamily 指定默认字体族；未注册时按内置规则选择。
func WithDefaultFamily(family string) Option {
	return func(r *Registry) { r.preferred = family }
}

// WithFallbackOrder 指定优先参与字形回退的字体族，其余族按注册顺序排在后面。
func WithFallbackOrder(families ...string) Option {
	return func(r *Registry) { r.fallbackHint = append([]string(nil), families...) }
}

// WithoutBuiltin 让 Load 不注册内置 Go 字体。
func WithoutBuiltin() Option {
	return func(r *Registry) { r.builtin = false }
}

// Registry 按 (family, style) 索引字体，并按回退顺序为码点寻找可用字体。
// 由 Load 一次性构建并封存，之后只读。
type Registry struct {
	faces    map[FaceRef]*Face
	families []string // 首次注册顺序

	preferred    string
	fallbackHint []string
	builtin      bool
	sealed       bool

	log *zap.Logger
}

// NewRegistry 创建一个空的、尚未封存的注册表。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		faces:   map[FaceRef]*Face{},
		builtin: true,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load 注册内置字体，扫描 dir 下的 .ttf/.otf 文件，校验拉丁字符覆盖后封存。
// dir 为空或不存在时只使用内置字体。
func Load(dir string, opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	if r.builtin {
		if err := RegisterBuiltin(r); err != nil {
			return nil, err
		}
	}
	if dir != "" {
		if err := r.scan(dir); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.Seal()
	r.log.Debug("字体注册完成",
		zap.Int("faces", len(r.faces)),
		zap.Strings("fallback", r.FallbackFamilies()),
		zap.String("default", r.DefaultFamily()))
	return r, nil
}

func (r *Registry) scan(dir string) error {
	// os.ReadDir 按文件名排序，保证同一目录内容得到相同的注册顺序。
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.log.Info("字体目录不存在，仅使用内置字体", zap.String("dir", dir))
			return nil
		}
		return fmt.Errorf("读取字体目录 %s 失败: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isFontFile(entry.Name()) {
			continue
		}
		if _, err := r.Register(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Register 读取并注册一个字体文件。
func (r *Registry) Register(path string) (*Face, error) {
	if r.sealed {
		return nil, ErrSealed
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFont, path, err)
	}
	return r.RegisterBytes(path, data)
}

// RegisterBytes 注册内存中的字体数据，name 用于推断族名与样式。
// 相同 (family, style) 重复注册时后注册者覆盖前者。
func (r *Registry) RegisterBytes(name string, data []byte) (*Face, error) {
	if r.sealed {
		return nil, ErrSealed
	}
	font, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFont, name, err)
	}
	subtable, err := font.CMapTable.GetBest()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: 缺少可用的 cmap: %v", ErrUnreadableFont, name, err)
	}

	family, style, ok := parseFontName(name)
	if !ok {
		style = Style{Bold: font.IsBold, Italic: font.IsItalic}
	}
	ref := FaceRef{Family: family, Style: style}
	if prev, exists := r.faces[ref]; exists {
		r.log.Debug("字体重复注册，后者覆盖",
			zap.Stringer("face", ref),
			zap.String("previous", prev.Path),
			zap.String("path", name))
	} else if !slices.Contains(r.families, family) {
		r.families = append(r.families, family)
	}

	face := &Face{Ref: ref, Path: name, data: data, cmap: subtable}
	r.faces[ref] = face
	return face, nil
}

// Seal 封存注册表，此后 Register 返回 ErrSealed。
func (r *Registry) Seal() { r.sealed = true }

// Validate 检查至少有一个字体族覆盖基本拉丁字符（U+0020–U+007E）。
func (r *Registry) Validate() error {
	for _, family := range r.families {
		ref, _ := r.inFamily(family, Style{})
		if face := r.faces[ref]; face != nil && coversLatin(face.Has) {
			return nil
		}
	}
	return ErrNoLatinCoverage
}

// coversLatin 判断 has 是否覆盖 U+0020–U+007E 的每个码点（含空格）。
func coversLatin(has func(rune) bool) bool {
	for c := rune(0x20); c <= 0x7e; c++ {
		if !has(c) {
			return false
		}
	}
	return true
}

// Resolve 精确查找 (family, style)，未注册时返回 ErrUnknownFace。
func (r *Registry) Resolve(family string, style Style) (FaceRef, error) {
	ref := FaceRef{Family: family, Style: style}
	if _, ok := r.faces[ref]; ok {
		return ref, nil
	}
	return FaceRef{}, fmt.Errorf("%w: %s", ErrUnknownFace, ref)
}

// Closest 返回与请求最接近的已注册字体：先在请求的族内依次去掉粗体、斜体，
// 再在默认族内重复该过程，最后退回任意已注册字体。注册表为空时返回零值。
func (r *Registry) Closest(family string, style Style) FaceRef {
	if ref, ok := r.inFamily(family, style); ok {
		return ref
	}
	if ref, ok := r.inFamily(r.DefaultFamily(), style); ok {
		return ref
	}
	for _, fam := range r.families {
		if ref, ok := r.inFamily(fam, style); ok {
			return ref
		}
	}
	return FaceRef{}
}

var allStyles = []Style{{}, {Bold: true}, {Italic: true}, {Bold: true, Italic: true}}

// inFamily 在单个字体族内按降级顺序查找，最后接受该族的任意样式。
func (r *Registry) inFamily(family string, style Style) (FaceRef, bool) {
	for _, s := range append(degrade(style), allStyles...) {
		ref := FaceRef{Family: family, Style: s}
		if _, ok := r.faces[ref]; ok {
			return ref, true
		}
	}
	return FaceRef{}, false
}

// degrade 列出样式的降级顺序：原样式 → 去粗体 → 去斜体 → 常规。
func degrade(s Style) []Style {
	out := []Style{s}
	if s.Bold {
		out = append(out, Style{Italic: s.Italic})
	}
	if s.Italic {
		out = append(out, Style{Bold: s.Bold})
	}
	if s.Bold || s.Italic {
		out = append(out, Style{})
	}
	return out
}

// Covers 判断 face 是否包含码点 r。
func (r *Registry) Covers(face FaceRef, c rune) bool {
	return r.faces[face].Has(c)
}

// Face 返回已注册字体的完整信息（含字形数据）。缺字字体返回默认族的常规体。
func (r *Registry) Face(ref FaceRef) (*Face, bool) {
	if ref.Family == MissingFamily {
		ref = r.Closest(r.DefaultFamily(), Style{})
	}
	f, ok := r.faces[ref]
	return f, ok
}

// Families 返回按首次注册顺序排列的字体族。
func (r *Registry) Families() []string {
	return slices.Clone(r.families)
}

// DefaultFamily 返回默认字体族。
func (r *Registry) DefaultFamily() string {
	if r.preferred != "" && r.hasFamily(r.preferred) {
		return r.preferred
	}
	for _, name := range []string{"DejaVuSans", BuiltinFamily} {
		if r.hasFamily(name) {
			return name
		}
	}
	if len(r.families) > 0 {
		return r.families[0]
	}
	return ""
}

func (r *Registry) hasFamily(family string) bool {
	return slices.Contains(r.families, family)
}

// FallbackFamilies 返回回退顺序：默认族、显式指定的族、其余按注册顺序。
func (r *Registry) FallbackFamilies() []string {
	order := make([]string, 0, len(r.families))
	add := func(name string) {
		if name != "" && r.hasFamily(name) && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	add(r.DefaultFamily())
	for _, name := range r.fallbackHint {
		add(name)
	}
	for _, name := range r.families {
		add(name)
	}
	return order
}

// MissingFamily 是缺字字体的保留族名，不对应任何注册文件，也不覆盖任何码点。
const MissingFamily = "missing-glyph"

// MissingGlyph 返回指定的缺字字体。渲染时它映射到默认族的常规体，
// PDF 阅读器会以 .notdef 方框显示缺失字形。
func (r *Registry) MissingGlyph() FaceRef {
	return FaceRef{Family: MissingFamily}
}

// FallbackFor 按回退顺序返回第一个包含码点 c 的字体，找不到时返回 MissingGlyph，从不失败。
func (r *Registry) FallbackFor(c rune) FaceRef {
	for _, family := range r.FallbackFamilies() {
		if ref, ok := r.inFamily(family, Style{}); ok && r.Covers(ref, c) {
			return ref
		}
	}
	return r.MissingGlyph()
}
