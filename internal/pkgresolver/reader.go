package pkgresolver

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ReadPackageName 读取目录中 Go 源文件的 package 声明
// 测试文件不参与判断，因为外部测试包的名字带 _test 后缀
func ReadPackageName(pkgDir string) (string, error) {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return "", fmt.Errorf("读取目录失败 %s: %w", pkgDir, err)
	}

	goFiles := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		name := entry.Name()
		return name, !entry.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	})
	if len(goFiles) == 0 {
		return "", fmt.Errorf("目录 %s 中没有找到 Go 源文件", pkgDir)
	}
	slices.Sort(goFiles)

	return parsePackageClause(filepath.Join(pkgDir, goFiles[0]))
}

// parsePackageClause 只解析 package 子句
func parsePackageClause(filename string) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), filename, nil, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("解析文件 %s 失败: %w", filename, err)
	}
	return f.Name.Name, nil
}
