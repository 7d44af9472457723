package catchgen

import (
	"fmt"
	"go/token"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// 生成代码以固定别名导入标准库，用户包叫 errors、fmt 或 debug 时也不会冲突
const (
	GoErrorsAlias = "stderrors"
	GoFmtAlias    = "stdfmt"
	GoDebugAlias  = "stddebug"
)

var (
	goErrorsImport = Import{Path: "errors", Alias: GoErrorsAlias}
	goFmtImport    = Import{Path: "fmt", Alias: GoFmtAlias}
	goDebugImport  = Import{Path: "runtime/debug", Alias: GoDebugAlias}
)

// GoImports 生成代码可能用到的全部导入
// 同一输出文件中这些路径与别名被占用，源文件的同路径导入也要改用这里的别名
func GoImports() []Import {
	return []Import{goErrorsImport, goFmtImport, goDebugImport}
}

// goRegionIdents 守护区内部使用的标识符，参数与之同名时必须改名
var goRegionIdents = []string{GoErrorsAlias, GoFmtAlias, GoDebugAlias, "recovered", "err", "ok", "stackTrace"}

// goErrorType 捕获全部错误的类型，分发时不需要 errors.As
const goErrorType = "error"

// GoDialect 生成 Go 接收者方法
// panic 对应异常：defer + recover 捕获，errors.As 做类型分发，最后 panic(recovered) 重新抛出原值
type GoDialect struct{}

var _ Dialect = GoDialect{}

func (GoDialect) Name() string   { return "go" }
func (GoDialect) Indent() string { return "\t" }

func (GoDialect) ValidateClass(name string) error {
	if !token.IsIdentifier(name) {
		return &ConfigError{Class: name, Reason: "类型名不是合法的 Go 标识符"}
	}
	return nil
}

func (GoDialect) ValidateMethod(method *MethodDeclaration) error {
	if !token.IsIdentifier(method.Name) {
		return configErrorf(method.Name, "", "方法名不是合法的 Go 标识符")
	}
	if receiverName(method.Receiver) == "" {
		return configErrorf(method.Name, "", "缺少接收者")
	}
	for i, p := range method.Parameters {
		if p == nil {
			return configErrorf(method.Name, "", "第 %d 个参数为空", i+1)
		}
		// 匿名参数在 Prepare 中补名
		if p.Name != "" && p.Name != "_" && !token.IsIdentifier(p.Name) {
			return configErrorf(method.Name, "", "第 %d 个参数名 %q 不是合法的 Go 标识符", i+1, p.Name)
		}
		if p.Kind == ParamVariadic && i != len(method.Parameters)-1 {
			return configErrorf(method.Name, "", "可变参数 %s 必须是最后一个参数", p.Name)
		}
	}
	return nil
}

// Prepare 为匿名参数补名，并把会遮蔽守护区标识符的参数重命名
func (GoDialect) Prepare(req *RenderRequest) []*Parameter {
	params := copyParams(req.Method.Parameters)

	reserved := make(map[string]bool)
	for _, id := range goRegionIdents {
		reserved[id] = true
	}
	reserved[receiverName(req.Method.Receiver)] = true
	req.Catchers.Each(func(exceptionType, handler string) {
		reserved[rootIdent(exceptionType)] = true
		reserved[rootIdent(handler)] = true
	})

	taken := make(map[string]bool)
	for _, p := range params {
		taken[p.Name] = true
	}

	for i, p := range params {
		name := p.Name
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}
		for reserved[name] || (name != p.Name && taken[name]) {
			name += "Val"
		}
		if name != p.Name {
			taken[name] = true
			p.Name = name
		}
	}
	return params
}

// ParameterList 渲染 Go 参数列表
func (GoDialect) ParameterList(params []*Parameter) string {
	return strings.Join(lo.Map(params, func(p *Parameter, _ int) string {
		if p.Kind == ParamVariadic {
			return p.Name + " ..." + strings.TrimPrefix(p.Type, "...")
		}
		return p.Name + " " + p.Type
	}), ", ")
}

// ArgumentList 渲染转发参数，可变参数展开
func (GoDialect) ArgumentList(params []*Parameter) string {
	return strings.Join(lo.Map(params, func(p *Parameter, _ int) string {
		if p.Kind == ParamVariadic {
			return p.Name + "..."
		}
		return p.Name
	}), ", ")
}

func (d GoDialect) Signature(w *codeWriter, req *RenderRequest) {
	results := strings.TrimSpace(req.Method.Results)
	if results != "" {
		results = " " + results
	}
	w.Line("// %s 调用 %s，panic 时按类型分发后重新抛出", req.Wrapper, req.Method.Name)
	w.Open("func (%s) %s(%s)%s {", strings.TrimSpace(req.Method.Receiver), req.Wrapper, d.ParameterList(req.Params), results)
}

func (GoDialect) Guard(w *codeWriter, req *RenderRequest) {
	w.Open("defer func() {")
	w.Open("if recovered := recover(); recovered != nil {")
	if !usesFailureValue(req) {
		return
	}
	w.Line("err, ok := recovered.(error)")
	w.Open("if !ok {")
	w.Raw("err = " + GoFmtAlias + `.Errorf("%v", recovered)`)
	w.Close("}")
	w.Line("stackTrace := %s.Stack()", GoDebugAlias)
}

// Dispatch 非 error 的 panic 值已被包装为 error，所以 error 条目无条件调用
func (GoDialect) Dispatch(w *codeWriter, _ *RenderRequest, exceptionType, handler string) {
	if exceptionType == goErrorType {
		w.Line("%s(err, stackTrace)", handler)
		return
	}
	w.Open("if %s.As(err, new(%s)) {", GoErrorsAlias, exceptionType)
	w.Line("%s(err, stackTrace)", handler)
	w.Close("}")
}

func (GoDialect) LogBlock(w *codeWriter, req *RenderRequest) {
	sep := strconv.Quote(req.Separator())
	w.Line("%s.Println(%s)", GoFmtAlias, sep)
	w.Line(`%s.Printf("%%s threw %%T\n", %s, recovered)`, GoFmtAlias, strconv.Quote(req.Label()))
	w.Line("%s.Println(err.Error())", GoFmtAlias)
	w.Line("%s.Println(string(stackTrace))", GoFmtAlias)
	w.Line("%s.Println(%s)", GoFmtAlias, sep)
}

func (GoDialect) Rethrow(w *codeWriter, _ *RenderRequest) {
	w.Line("panic(recovered)")
	w.Close("}")
	w.Close("}()")
}

func (d GoDialect) Finish(w *codeWriter, req *RenderRequest) {
	call := fmt.Sprintf("%s.%s(%s)", receiverName(req.Method.Receiver), req.Method.Name, d.ArgumentList(req.Params))
	if strings.TrimSpace(req.Method.Results) != "" {
		w.Line("return %s", call)
	} else {
		w.Line("%s", call)
	}
	w.Close("}")
}

// ValidateBindings 参数冲突已在 Prepare 中通过改名解决
func (GoDialect) ValidateBindings(*RenderRequest) error { return nil }

func (GoDialect) Imports(req *RenderRequest) []Import {
	if !usesFailureValue(req) {
		return nil
	}
	imports := []Import{goFmtImport, goDebugImport}
	if slices.ContainsFunc(req.Catchers.Keys(), func(t string) bool { return t != goErrorType }) {
		imports = append(imports, goErrorsImport)
	}
	return imports
}

func (d GoDialect) Scope(className, suffix string, methods []RenderedMethod) string {
	w := newCodeWriter(d.Indent())
	w.Line("// %s%s: %s 的错误捕获包装方法", className, suffix, className)
	w.Line("")
	for i, m := range methods {
		if i > 0 {
			w.Line("")
		}
		w.Block(m.Text)
	}
	return w.String()
}

// usesFailureValue 只有分发或日志需要 err 与 stackTrace，否则不声明以免出现未使用变量
func usesFailureValue(req *RenderRequest) bool {
	return req.UseLogging || req.Catchers.Len() > 0
}

// receiverName 从接收者文本（如 "s *Service"）中取出接收者变量名
func receiverName(receiver string) string {
	fields := strings.Fields(receiver)
	if len(fields) < 2 {
		return ""
	}
	return fields[0]
}

// rootIdent 取表达式最左侧的标识符，例如 *fs.PathError -> fs
func rootIdent(expr string) string {
	expr = strings.TrimLeft(expr, "*[]")
	end := strings.IndexFunc(expr, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$')
	})
	if end < 0 {
		return expr
	}
	return expr[:end]
}
