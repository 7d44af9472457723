package gocatchgen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/donutnomad/errcatch/internal/pkgresolver"
)

// typeIndex 一个包中与 error 实现有关的类型声明
type typeIndex struct {
	declared   map[string]bool
	opaque     map[string]bool // 别名、基于其它命名类型或带嵌入字段，语法上无法判断方法集
	interfaces map[string]bool
	valueError map[string]bool // Error 方法是值接收者
	ptrError   map[string]bool // Error 方法是指针接收者
}

func newTypeIndex() *typeIndex {
	return &typeIndex{
		declared:   make(map[string]bool),
		opaque:     make(map[string]bool),
		interfaces: make(map[string]bool),
		valueError: make(map[string]bool),
		ptrError:   make(map[string]bool),
	}
}

// scanTypeIndex 解析目录下的非测试 Go 文件，解析失败的文件跳过
func scanTypeIndex(dir string) *typeIndex {
	idx := newTypeIndex()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return idx
	}
	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.SkipObjectResolution)
		if err != nil {
			continue
		}
		idx.add(file)
	}
	return idx
}

func (idx *typeIndex) add(file *ast.File) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				name := ts.Name.Name
				idx.declared[name] = true
				if ts.Assign.IsValid() {
					idx.opaque[name] = true
					continue
				}
				switch t := ts.Type.(type) {
				case *ast.InterfaceType:
					idx.interfaces[name] = true
				case *ast.StructType:
					if hasEmbedded(t) {
						idx.opaque[name] = true
					}
				case *ast.Ident, *ast.SelectorExpr, *ast.IndexExpr, *ast.IndexListExpr, *ast.ParenExpr:
					idx.opaque[name] = true
				}
			}
		case *ast.FuncDecl:
			if d.Recv == nil || len(d.Recv.List) == 0 || d.Name.Name != "Error" || !isErrorSignature(d.Type) {
				continue
			}
			recv := d.Recv.List[0].Type
			pointer := false
			if star, ok := recv.(*ast.StarExpr); ok {
				pointer = true
				recv = star.X
			}
			ident, ok := baseType(recv).(*ast.Ident)
			if !ok {
				continue
			}
			if pointer {
				idx.ptrError[ident.Name] = true
			} else {
				idx.valueError[ident.Name] = true
			}
		}
	}
}

// errorTarget new(T) 能否作为 errors.As 的第二个参数
// T 必须是接口，或者实现了 error；pointer 表示 T 是 *name
func (idx *typeIndex) errorTarget(name string, pointer bool) bool {
	switch {
	case idx.opaque[name]:
		return true
	case idx.interfaces[name]:
		return !pointer
	case pointer:
		return idx.valueError[name] || idx.ptrError[name]
	default:
		return idx.valueError[name]
	}
}

func hasEmbedded(st *ast.StructType) bool {
	if st.Fields == nil {
		return false
	}
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			return true
		}
	}
	return false
}

// isErrorSignature 方法签名为 func() string
func isErrorSignature(ft *ast.FuncType) bool {
	if ft.Params.NumFields() != 0 || ft.Results.NumFields() != 1 {
		return false
	}
	ident, ok := ft.Results.List[0].Type.(*ast.Ident)
	return ok && ident.Name == "string"
}

// baseType 去掉泛型实参与括号
func baseType(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case *ast.IndexExpr:
		return baseType(e.X)
	case *ast.IndexListExpr:
		return baseType(e.X)
	case *ast.ParenExpr:
		return baseType(e.X)
	}
	return expr
}

// typeChecker 检查 catchers 中的异常类型能否作为 errors.As 的目标
// 值类型的 Error 是指针接收者时 errors.As 在运行时 panic，生成阶段就要拒绝
// 找不到源码的包一律放行
type typeChecker struct {
	resolver *pkgresolver.Resolver
	dir      string // 结构体所在包目录

	mu      sync.Mutex
	indexes map[string]*typeIndex
}

func newTypeChecker(resolver *pkgresolver.Resolver, dir string) *typeChecker {
	return &typeChecker{
		resolver: resolver,
		dir:      dir,
		indexes:  make(map[string]*typeIndex),
	}
}

func (c *typeChecker) index(dir string) *typeIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.indexes[dir]
	if !ok {
		idx = scanTypeIndex(dir)
		c.indexes[dir] = idx
	}
	return idx
}

// errorTarget imports 用于把限定符映射到包目录
func (c *typeChecker) errorTarget(expr ast.Expr, imports *pkgresolver.ImportMap) bool {
	pointer := false
	if star, ok := expr.(*ast.StarExpr); ok {
		pointer = true
		expr = star.X
	}

	switch e := baseType(expr).(type) {
	case *ast.InterfaceType:
		return !pointer
	case *ast.Ident:
		idx := c.index(c.dir)
		if idx.declared[e.Name] {
			return idx.errorTarget(e.Name, pointer)
		}
		if obj, ok := types.Universe.Lookup(e.Name).(*types.TypeName); ok {
			_, iface := obj.Type().Underlying().(*types.Interface)
			return iface && !pointer
		}
		return true
	case *ast.SelectorExpr:
		x, ok := e.X.(*ast.Ident)
		if !ok || imports == nil || c.resolver == nil {
			return true
		}
		imp, ok := imports.Lookup(x.Name)
		if !ok {
			return true
		}
		dir, ok := c.resolver.PackageDir(imp.Path)
		if !ok {
			return true
		}
		idx := c.index(dir)
		if !idx.declared[e.Sel.Name] {
			return true
		}
		return idx.errorTarget(e.Sel.Name, pointer)
	}
	// 切片、映射、函数等类型不可能实现 error
	return false
}
