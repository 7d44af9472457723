package gocatchgen

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"strings"

	"github.com/donutnomad/errcatch/catchgen"
	"github.com/donutnomad/errcatch/internal/pkgresolver"
	"github.com/donutnomad/errcatch/plugin"
	"github.com/spf13/cast"
)

// directiveParams 注释参数名（小写）到指令字段名
var directiveParams = map[string]string{
	"uselogging": catchgen.FieldUseLogging,
	"catchers":   catchgen.FieldCatchers,
}

// directiveSource 核心注解中携带的前端句柄
type directiveSource struct {
	ann     *plugin.Annotation
	imports *pkgresolver.ImportMap
	rename  map[string]string // 源文件限定符 → 输出文件导入名
	types   *typeChecker      // 为空时不检查异常类型
}

// commentResolver 把注释中的指令参数解析为常量
//
//	// @ErrorCatching(useLogging=false, catchers=`*fs.PathError:onPathError, *json.SyntaxError:onSyntax`)
//
// 注释中省略的参数取声明默认值，useLogging 默认为 true
type commentResolver struct{}

func (commentResolver) Resolve(ctx context.Context, ann *catchgen.Annotation) (*catchgen.ConstObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, ok := ann.Source.(*directiveSource)
	if !ok || src == nil || src.ann == nil {
		return nil, catchgen.ErrUnresolvable
	}
	if err := checkParams(src.ann); err != nil {
		return nil, err
	}

	obj := catchgen.NewConstObject()
	for name, value := range catchgen.DirectiveDefaults {
		obj.Set(name, value)
	}
	if raw, ok := src.ann.Params["uselogging"]; ok {
		obj.Set(catchgen.FieldUseLogging, decodeBool(raw))
	}
	if raw, ok := src.ann.Params["catchers"]; ok {
		obj.Set(catchgen.FieldCatchers, decodeCatchers(raw, src))
	}
	return obj, nil
}

// checkParams 参数文本无法解析或含未知参数时视为无法求值
func checkParams(ann *plugin.Annotation) error {
	for _, key := range ann.ParamKeys() {
		if _, ok := directiveParams[key]; !ok {
			return fmt.Errorf("@%s 未知参数 %s: %w", ann.Name, key, catchgen.ErrUnresolvable)
		}
	}
	if len(ann.Params) == 0 {
		lp, rp := strings.Index(ann.Raw, "("), strings.LastIndex(ann.Raw, ")")
		if lp >= 0 && rp > lp && strings.TrimSpace(ann.Raw[lp+1:rp]) != "" {
			return fmt.Errorf("@%s 参数无法解析: %s: %w", ann.Name, ann.Raw, catchgen.ErrUnresolvable)
		}
	}
	return nil
}

// decodeBool 非布尔文本保留为字符串，由提取阶段报告类型错误
func decodeBool(raw string) *catchgen.ConstValue {
	raw = strings.TrimSpace(raw)
	if isNullText(raw) {
		return catchgen.Null()
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return catchgen.String(raw)
	}
	return catchgen.Bool(b)
}

// decodeCatchers 解析 `类型:处理函数, ...`
// 无法解析的类型或函数记为 null，由提取阶段报告映射格式错误
func decodeCatchers(raw string, src *directiveSource) *catchgen.ConstValue {
	raw = strings.TrimSpace(raw)
	if isNullText(raw) {
		return catchgen.Null()
	}
	if raw == "{}" {
		return catchgen.Map()
	}

	var entries []catchgen.ConstEntry
	for _, entry := range splitEntries(raw) {
		typeText, funcText, ok := splitEntry(entry)
		if !ok {
			entries = append(entries, catchgen.Entry(typeValue(typeText, src), catchgen.Null()))
			continue
		}
		entries = append(entries, catchgen.Entry(typeValue(typeText, src), funcValue(funcText, src.rename)))
	}
	return catchgen.Map(entries...)
}

func isNullText(s string) bool {
	return s == "" || s == "null" || s == "nil"
}

// typeValue 类型表达式必须可解析，包限定符都已导入，且能作为 errors.As 的目标
func typeValue(text string, src *directiveSource) *catchgen.ConstValue {
	if text == "" {
		return catchgen.Null()
	}
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return catchgen.Null()
	}
	if src.imports != nil {
		for _, q := range pkgresolver.QualifiersOf(expr) {
			if _, ok := src.imports.Lookup(q); !ok {
				return catchgen.Null()
			}
		}
	}
	if src.types != nil && !src.types.errorTarget(expr, src.imports) {
		return catchgen.Null()
	}
	return catchgen.TypeRef(qualify(expr, src.rename))
}

// funcValue 处理函数只能是标识符或 x.Name 形式
// x 可以是包名，也可以是接收者变量
func funcValue(text string, rename map[string]string) *catchgen.ConstValue {
	if text == "" {
		return catchgen.Null()
	}
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return catchgen.Null()
	}
	switch e := expr.(type) {
	case *ast.Ident:
		return catchgen.FuncRef(e.Name)
	case *ast.SelectorExpr:
		if _, ok := e.X.(*ast.Ident); ok {
			return catchgen.FuncRef(qualify(e, rename))
		}
	}
	return catchgen.Null()
}

// splitEntries 按顶层逗号分割，括号内的逗号不分割
func splitEntries(raw string) []string {
	var entries []string
	depth, start := 0, 0
	for i, c := range raw {
		switch c {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				entries = append(entries, raw[start:i])
				start = i + 1
			}
		}
	}
	entries = append(entries, raw[start:])

	var result []string
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			result = append(result, e)
		}
	}
	return result
}

// splitEntry 以最后一个冒号分割类型与处理函数
func splitEntry(entry string) (typeText, funcText string, ok bool) {
	i := strings.LastIndex(entry, ":")
	if i < 0 {
		return strings.TrimSpace(entry), "", false
	}
	return strings.TrimSpace(entry[:i]), strings.TrimSpace(entry[i+1:]), true
}
