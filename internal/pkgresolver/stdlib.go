package pkgresolver

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StdLib 标准库包表，首次查询时扫描 $GOROOT/src
type StdLib struct {
	once    sync.Once
	goroot  string
	pkgs    map[string]bool
	scanned bool
}

func NewStdLib() *StdLib {
	return &StdLib{pkgs: make(map[string]bool)}
}

var defaultStdLib = NewStdLib()

// DefaultStdLib 返回进程内共享的标准库表
func DefaultStdLib() *StdLib {
	return defaultStdLib
}

func (s *StdLib) init() {
	s.once.Do(func() {
		s.goroot = build.Default.GOROOT
		if s.goroot == "" {
			s.goroot = os.Getenv("GOROOT")
		}
		if s.goroot == "" {
			return
		}
		s.scanDir(filepath.Join(s.goroot, "src"), "")
		s.scanned = len(s.pkgs) > 0
	})
}

// scanDir 递归记录包含非测试 Go 文件的目录
func (s *StdLib) scanDir(dir, pkgPath string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	hasGoFiles := false
	for _, entry := range entries {
		name := entry.Name()
		// 标准库的 internal 不对外
		if strings.HasPrefix(name, ".") || name == "testdata" || name == "vendor" || name == "internal" || name == "cmd" {
			continue
		}
		if entry.IsDir() {
			sub := name
			if pkgPath != "" {
				sub = pkgPath + "/" + name
			}
			s.scanDir(filepath.Join(dir, name), sub)
		} else if strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			hasGoFiles = true
		}
	}

	if hasGoFiles && pkgPath != "" {
		s.pkgs[pkgPath] = true
	}
}

// IsStdLib 判断导入路径是否属于标准库
// 无法扫描 GOROOT 时退化为首段不含点的判断
func (s *StdLib) IsStdLib(importPath string) bool {
	if importPath == "" {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	if strings.Contains(first, ".") {
		return false
	}

	s.init()
	if !s.scanned {
		return true
	}
	return s.pkgs[importPath]
}

// Dir 返回标准库包的磁盘路径
func (s *StdLib) Dir(importPath string) (string, bool) {
	if !s.IsStdLib(importPath) || s.goroot == "" {
		return "", false
	}
	return filepath.Join(s.goroot, "src", filepath.FromSlash(importPath)), true
}
