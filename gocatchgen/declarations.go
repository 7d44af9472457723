package gocatchgen

import (
	"cmp"
	"go/ast"
	"go/parser"
	"go/types"
	"path/filepath"
	"slices"
	"strings"

	"github.com/donutnomad/errcatch/catchgen"
	"github.com/donutnomad/errcatch/internal/pkgresolver"
	"github.com/donutnomad/errcatch/plugin"
	"github.com/samber/lo"
)

// defaultReceiverName 匿名接收者在包装方法中使用的名字
const defaultReceiverName = "recv"

// classInfo 一个带标记的结构体及其带指令的方法
type classInfo struct {
	marker  *plugin.AnnotatedTarget
	methods []*plugin.AnnotatedTarget

	importMaps map[*ast.File]*pkgresolver.ImportMap
}

func classKey(t *plugin.Target, typeName string) string {
	return filepath.Dir(t.FilePath) + "#" + typeName
}

// collectClasses 按 包目录 + 接收者类型 把方法归到结构体下
// 返回的结构体保持扫描顺序；接收者没有标记的方法单独返回
func collectClasses(targets []*plugin.AnnotatedTarget) ([]*classInfo, []*plugin.AnnotatedTarget) {
	byKey := make(map[string]*classInfo)
	var classes []*classInfo
	for _, t := range targets {
		if t.Target.Kind != plugin.TargetStruct || !plugin.HasAnnotation(t.Annotations, catchgen.MarkerName) {
			continue
		}
		c := &classInfo{marker: t}
		byKey[classKey(t.Target, t.Target.Name)] = c
		classes = append(classes, c)
	}

	var skipped []*plugin.AnnotatedTarget
	for _, t := range targets {
		if t.Target.Kind != plugin.TargetMethod || !plugin.HasAnnotation(t.Annotations, catchgen.DirectiveName) {
			continue
		}
		c, ok := byKey[classKey(t.Target, t.Target.BaseReceiverType())]
		if !ok {
			skipped = append(skipped, t)
			continue
		}
		c.methods = append(c.methods, t)
	}
	return classes, skipped
}

// importMap 每个源文件的 import 映射只建立一次
func (c *classInfo) importMap(file *ast.File, resolver *pkgresolver.Resolver) *pkgresolver.ImportMap {
	if c.importMaps == nil {
		c.importMaps = make(map[*ast.File]*pkgresolver.ImportMap)
	}
	imap, ok := c.importMaps[file]
	if !ok {
		imap = pkgresolver.FromFile(file, resolver)
		c.importMaps[file] = imap
	}
	return imap
}

// eachMethod 遍历有接收者的方法声明
func (c *classInfo) eachMethod(fn func(m *plugin.AnnotatedTarget, decl *ast.FuncDecl)) {
	for _, m := range c.methods {
		decl, ok := m.Target.Node.(*ast.FuncDecl)
		if !ok || decl.Recv == nil || len(decl.Recv.List) == 0 {
			continue
		}
		fn(m, decl)
	}
}

// sourceImports 收集签名与 catchers 引用到的源文件 import，按路径排序
func (c *classInfo) sourceImports(resolver *pkgresolver.Resolver) []pkgresolver.Import {
	imports := make(map[string]pkgresolver.Import)
	c.eachMethod(func(m *plugin.AnnotatedTarget, fn *ast.FuncDecl) {
		for _, imp := range referencedImports(fn, m.Annotations, c.importMap(m.Target.File, resolver)) {
			imports[imp.Path] = imp
		}
	})

	result := lo.Values(imports)
	slices.SortFunc(result, func(a, b pkgresolver.Import) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return result
}

// declaration 构建结构体的声明图
// rename 把源文件中的包限定符改写为输出文件中的导入名；checker 为空时不检查 catchers 的类型
func (c *classInfo) declaration(resolver *pkgresolver.Resolver, rename map[string]string, checker *typeChecker) *catchgen.ClassDeclaration {
	decl := &catchgen.ClassDeclaration{
		Name:        c.marker.Target.Name,
		Annotations: convertAnnotations(c.marker.Annotations, directiveSource{}),
	}

	c.eachMethod(func(m *plugin.AnnotatedTarget, fn *ast.FuncDecl) {
		method := methodDeclaration(fn, rename)
		method.Annotations = convertAnnotations(m.Annotations, directiveSource{
			imports: c.importMap(m.Target.File, resolver),
			rename:  rename,
			types:   checker,
		})
		decl.Methods = append(decl.Methods, method)
	})
	return decl
}

// methodDeclaration 从方法 AST 构建方法声明，类型按源码文本保留
func methodDeclaration(fn *ast.FuncDecl, rename map[string]string) *catchgen.MethodDeclaration {
	recv := fn.Recv.List[0]
	recvName := defaultReceiverName
	if len(recv.Names) > 0 && recv.Names[0].Name != "_" {
		recvName = recv.Names[0].Name
	}

	method := &catchgen.MethodDeclaration{
		Name:     fn.Name.Name,
		Receiver: recvName + " " + typeText(recv.Type, rename),
		Results:  resultsText(fn.Type.Results, rename),
	}

	if fn.Type.Params == nil {
		return method
	}
	for _, field := range fn.Type.Params.List {
		typ := typeText(field.Type, rename)
		kind := catchgen.ParamPositional
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			kind = catchgen.ParamVariadic
		}
		if len(field.Names) == 0 {
			method.Parameters = append(method.Parameters, &catchgen.Parameter{Type: typ, Kind: kind})
			continue
		}
		for _, name := range field.Names {
			method.Parameters = append(method.Parameters, &catchgen.Parameter{Name: name.Name, Type: typ, Kind: kind})
		}
	}
	return method
}

// typeText 源码中的类型文本，限定符按 rename 改写
// 不修改传入的 AST，需要改写时重新解析一份
func typeText(expr ast.Expr, rename map[string]string) string {
	if e, ok := expr.(*ast.Ellipsis); ok {
		return "..." + typeText(e.Elt, rename)
	}
	text := types.ExprString(expr)
	if len(rename) == 0 {
		return text
	}
	copied, err := parser.ParseExpr(text)
	if err != nil {
		return text
	}
	return qualify(copied, rename)
}

// qualify 就地改写表达式中的包限定符并返回文本
func qualify(expr ast.Expr, rename map[string]string) string {
	if len(rename) > 0 {
		ast.Inspect(expr, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			if x, ok := sel.X.(*ast.Ident); ok {
				if name, ok := rename[x.Name]; ok {
					x.Name = name
				}
			}
			return false
		})
	}
	return types.ExprString(expr)
}

// resultsText 返回值只保留类型，具名返回值的名字可能与守护区标识符冲突
func resultsText(results *ast.FieldList, rename map[string]string) string {
	if results == nil {
		return ""
	}
	var typs []string
	for _, field := range results.List {
		typ := typeText(field.Type, rename)
		for range max(len(field.Names), 1) {
			typs = append(typs, typ)
		}
	}
	switch len(typs) {
	case 0:
		return ""
	case 1:
		return typs[0]
	default:
		return "(" + strings.Join(typs, ", ") + ")"
	}
}

// convertAnnotations 转换为核心注解，每个注解携带 base 的副本作为求值上下文
func convertAnnotations(anns []*plugin.Annotation, base directiveSource) []*catchgen.Annotation {
	return lo.Map(anns, func(ann *plugin.Annotation, _ int) *catchgen.Annotation {
		src := base
		src.ann = ann
		return &catchgen.Annotation{
			Symbol: catchgen.Symbol{Library: catchgen.GoLibrary, Name: ann.Name},
			Raw:    ann.Raw,
			Source: &src,
		}
	})
}

// referencedImports 收集接收者、参数、返回值与第一个指令的 catchers 中出现的包
// 找不到的限定符跳过，由 goimports 在写入时处理
func referencedImports(fn *ast.FuncDecl, anns []*plugin.Annotation, imap *pkgresolver.ImportMap) []pkgresolver.Import {
	var qualifiers []string
	qualifiers = append(qualifiers, pkgresolver.QualifiersOf(fn.Recv.List[0].Type)...)
	for _, list := range []*ast.FieldList{fn.Type.Params, fn.Type.Results} {
		if list == nil {
			continue
		}
		for _, field := range list.List {
			qualifiers = append(qualifiers, pkgresolver.QualifiersOf(field.Type)...)
		}
	}
	if directive := plugin.GetAnnotation(anns, catchgen.DirectiveName); directive != nil {
		for _, entry := range splitEntries(directive.GetParam("catchers")) {
			typeText, funcText, _ := splitEntry(entry)
			for _, text := range []string{typeText, funcText} {
				if q, err := pkgresolver.Qualifiers(text); err == nil {
					qualifiers = append(qualifiers, q...)
				}
			}
		}
	}

	return lo.FilterMap(lo.Uniq(qualifiers), func(q string, _ int) (pkgresolver.Import, bool) {
		return imap.Lookup(q)
	})
}
