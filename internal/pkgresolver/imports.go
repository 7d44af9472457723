package pkgresolver

import (
	"cmp"
	"fmt"
	"go/ast"
	"go/parser"
	"slices"
	"strconv"
)

// Import 源文件中的一条 import
type Import struct {
	Path  string // 导入路径
	Alias string // 显式别名，没有时为空
	Name  string // 代码中使用的限定符
}

// ImportMap 限定符到 import 的映射
type ImportMap struct {
	byName map[string]Import
}

// FromFile 从文件 AST 建立映射，dot import 与空白 import 不参与
func FromFile(file *ast.File, r *Resolver) *ImportMap {
	m := &ImportMap{byName: make(map[string]Import)}
	if file == nil {
		return m
	}
	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		imp := Import{Path: importPath}
		if spec.Name != nil {
			if spec.Name.Name == "." || spec.Name.Name == "_" {
				continue
			}
			imp.Alias = spec.Name.Name
			imp.Name = spec.Name.Name
		} else if r != nil {
			imp.Name = r.GetPackageName(importPath)
		} else {
			imp.Name = AssumedPackageName(importPath)
		}
		m.byName[imp.Name] = imp
	}
	return m
}

// Lookup 按限定符查找 import
func (m *ImportMap) Lookup(qualifier string) (Import, bool) {
	imp, ok := m.byName[qualifier]
	return imp, ok
}

// Len 返回 import 数量
func (m *ImportMap) Len() int {
	return len(m.byName)
}

// Resolve 收集一组类型表达式引用到的 import，按路径排序去重
// 找不到对应 import 的限定符返回错误
func (m *ImportMap) Resolve(typeExprs ...string) ([]Import, error) {
	seen := make(map[string]bool)
	var result []Import
	for _, expr := range typeExprs {
		qualifiers, err := Qualifiers(expr)
		if err != nil {
			return nil, err
		}
		for _, q := range qualifiers {
			imp, ok := m.byName[q]
			if !ok {
				return nil, fmt.Errorf("类型 %s 引用的包 %s 没有被导入", expr, q)
			}
			if !seen[imp.Path] {
				seen[imp.Path] = true
				result = append(result, imp)
			}
		}
	}
	slices.SortFunc(result, func(a, b Import) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return result, nil
}

// Qualifiers 返回类型表达式中出现的包限定符，按出现顺序去重
//
//	"*fs.PathError"                 → [fs]
//	"map[string]json.RawMessage"    → [json]
//	"func(context.Context) error"   → [context]
func Qualifiers(typeExpr string) ([]string, error) {
	expr, err := parser.ParseExpr(typeExpr)
	if err != nil {
		return nil, fmt.Errorf("无法解析类型 %q: %w", typeExpr, err)
	}
	return QualifiersOf(expr), nil
}

// QualifiersOf 返回表达式中出现的包限定符
func QualifiersOf(expr ast.Expr) []string {
	var result []string
	ast.Inspect(expr, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok && !slices.Contains(result, ident.Name) {
			result = append(result, ident.Name)
		}
		return false
	})
	return result
}
