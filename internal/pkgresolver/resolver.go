package pkgresolver

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// Resolver 把导入路径解析为真实包名
//
// 示例：
//
//	"fmt" → "fmt"
//	"io/fs" → "fs"
//	"github.com/samber/lo" → "lo"
//	"gopkg.in/yaml.v3" → "yaml"
//	"example.com/x/gg" → "g2" (如果 package 声明是 g2)
type Resolver struct {
	cache      *nameCache
	stdLib     *StdLib
	moduleRoot string // 包含 go.mod 的目录
	modulePath string // go.mod 中的 module 路径
}

// NewResolver 创建解析器，moduleRoot 为空时只解析标准库和模块缓存中的包
func NewResolver(moduleRoot string) *Resolver {
	r := &Resolver{
		cache:      newNameCache(),
		stdLib:     DefaultStdLib(),
		moduleRoot: moduleRoot,
	}
	if moduleRoot != "" {
		r.modulePath, _ = ReadModulePath(filepath.Join(moduleRoot, "go.mod"))
	}
	return r
}

// ForDir 从 dir 向上查找 go.mod 并创建解析器
func ForDir(dir string) *Resolver {
	root, _ := FindModuleRoot(dir)
	return NewResolver(root)
}

// ModulePath 返回所在模块的 module 路径
func (r *Resolver) ModulePath() string {
	return r.modulePath
}

// IsStdLib 判断是否是标准库
func (r *Resolver) IsStdLib(importPath string) bool {
	return r.stdLib.IsStdLib(importPath)
}

// GetPackageName 获取导入路径对应的真实包名
// 找不到包源码时按路径推断
func (r *Resolver) GetPackageName(importPath string) string {
	if importPath == "" {
		return ""
	}
	if name, ok := r.cache.get(importPath); ok {
		return name
	}

	name := AssumedPackageName(importPath)
	if dir, ok := r.resolveDir(importPath); ok {
		if pkgName, err := ReadPackageName(dir); err == nil {
			name = pkgName
		}
	}

	r.cache.set(importPath, name)
	return name
}

// PackageDir 返回导入路径对应的源码目录，标准库、本模块与模块缓存之外的包找不到
func (r *Resolver) PackageDir(importPath string) (string, bool) {
	return r.resolveDir(importPath)
}

// resolveDir 将导入路径解析为磁盘路径
func (r *Resolver) resolveDir(importPath string) (string, bool) {
	if dir, ok := r.stdLib.Dir(importPath); ok {
		return dir, true
	}

	if r.modulePath != "" {
		if importPath == r.modulePath {
			return r.moduleRoot, true
		}
		if rel, ok := strings.CutPrefix(importPath, r.modulePath+"/"); ok {
			return filepath.Join(r.moduleRoot, filepath.FromSlash(rel)), true
		}
	}

	dir, err := findInModCache(importPath)
	if err != nil {
		return "", false
	}
	return dir, true
}

// AssumedPackageName 按 Go 工具链的惯例从导入路径推断包名
// 去掉 .vN 与 /vN 版本后缀和 go- 前缀，只保留标识符字符
func AssumedPackageName(importPath string) string {
	base := path.Base(importPath)
	if isMajorVersion(base) {
		base = path.Base(path.Dir(importPath))
	}
	if i := strings.LastIndex(base, ".v"); i > 0 && isMajorVersion(base[i+1:]) {
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")

	var sb strings.Builder
	for _, c := range base {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FindModuleRoot 从 dir 开始向上查找包含 go.mod 的目录
func FindModuleRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("未找到 go.mod")
		}
		dir = parent
	}
}

// ReadModulePath 从 go.mod 文件读取 module 路径
func ReadModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s 中没有 module 声明", goModPath)
}

// findInModCache 在 GOMODCACHE 中查找第三方包
func findInModCache(importPath string) (string, error) {
	modCache := os.Getenv("GOMODCACHE")
	if modCache == "" {
		goPath := os.Getenv("GOPATH")
		if goPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("无法获取用户主目录: %w", err)
			}
			goPath = filepath.Join(home, "go")
		}
		modCache = filepath.Join(filepath.SplitList(goPath)[0], "pkg", "mod")
	}

	// 从最长前缀开始尝试模块根路径
	parts := strings.Split(importPath, "/")
	for i := len(parts); i >= 1; i-- {
		modulePath := strings.Join(parts[:i], "/")
		matches, err := filepath.Glob(filepath.Join(modCache, filepath.FromSlash(escapeModulePath(modulePath))+"@*"))
		if err != nil || len(matches) == 0 {
			continue
		}
		// 字典序最后一个通常是最新版本
		dir := filepath.Join(matches[len(matches)-1], filepath.Join(parts[i:]...))
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	return "", fmt.Errorf("未找到第三方包 %s", importPath)
}

// escapeModulePath 模块缓存中大写字母编码为 ! 加小写
// 例如：github.com/BurntSushi/toml -> github.com/!burnt!sushi/toml
func escapeModulePath(p string) string {
	var sb strings.Builder
	for _, c := range p {
		if unicode.IsUpper(c) {
			sb.WriteByte('!')
			sb.WriteRune(unicode.ToLower(c))
		} else {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
