package catchgen

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minSeparatorWidth 诊断块分隔线的最小宽度
const minSeparatorWidth = 40

// RenderRequest 渲染单个包装方法所需的全部输入
type RenderRequest struct {
	Method     *MethodDeclaration
	ClassName  string
	Wrapper    string       // 包装方法名
	Params     []*Parameter // 方言处理后的参数（可能被重命名）
	Catchers   *OrderedMap[string, string]
	UseLogging bool
}

// Label 诊断信息中的 Class.method 标识
func (r *RenderRequest) Label() string {
	return r.ClassName + "." + r.Method.Name
}

// Separator 诊断块分隔线，宽度取标识的显示宽度（至少 40）
func (r *RenderRequest) Separator() string {
	width := runewidth.StringWidth(r.Label() + " threw ")
	if width < minSeparatorWidth {
		width = minSeparatorWidth
	}
	return strings.Repeat("=", width)
}

// RenderedMethod 生成的包装方法文本
type RenderedMethod struct {
	Name     string   // 包装方法名
	Original string   // 原方法名
	Text     string   // 方法文本，不含外层作用域缩进
	Imports  []Import // 生成代码依赖的导入（仅 Go 方言）
}

// Import 生成代码需要的一条导入，Alias 为空时使用包名
type Import struct {
	Path  string
	Alias string
}

// Dialect 目标语言方言
// 包装方法由固定的命名步骤组成：签名、守护区、类型分发、诊断块、重新抛出、收尾
type Dialect interface {
	Name() string
	Indent() string

	// ValidateMethod 检查方法名与参数名能否安全输出
	ValidateMethod(method *MethodDeclaration) error
	// ValidateClass 检查类名能否安全输出
	ValidateClass(name string) error
	// Prepare 计算输出时使用的参数列表
	Prepare(req *RenderRequest) []*Parameter
	// ValidateBindings 检查参数与处理函数、异常类型等生成代码引用的名字是否冲突
	ValidateBindings(req *RenderRequest) error

	Signature(w *codeWriter, req *RenderRequest)
	Guard(w *codeWriter, req *RenderRequest)
	Dispatch(w *codeWriter, req *RenderRequest, exceptionType, handler string)
	LogBlock(w *codeWriter, req *RenderRequest)
	Rethrow(w *codeWriter, req *RenderRequest)
	Finish(w *codeWriter, req *RenderRequest)

	// Imports 返回该方法生成代码需要的导入
	Imports(req *RenderRequest) []Import
	// Scope 将方法文本包进以 类名+后缀 命名的作用域
	Scope(className, suffix string, methods []RenderedMethod) string
}

// Render 为一个带指令的方法渲染包装方法
// catchers 为 nil 时不生成类型分发，但仍然生成捕获、可选日志和重新抛出
func (e *Engine) Render(method *MethodDeclaration, catchers *OrderedMap[string, string], className string, useLogging bool) RenderedMethod {
	return e.render(e.request(method, catchers, className, useLogging))
}

func (e *Engine) request(method *MethodDeclaration, catchers *OrderedMap[string, string], className string, useLogging bool) *RenderRequest {
	req := &RenderRequest{
		Method:     method,
		ClassName:  className,
		Wrapper:    method.Name + e.suffix,
		Catchers:   catchers,
		UseLogging: useLogging,
	}
	req.Params = e.dialect.Prepare(req)
	return req
}

func (e *Engine) render(req *RenderRequest) RenderedMethod {
	w := newCodeWriter(e.dialect.Indent())
	e.dialect.Signature(w, req)
	e.dialect.Guard(w, req)
	// 所有条目依次检查，不会在第一次命中后提前退出
	req.Catchers.Each(func(exceptionType, handler string) {
		e.dialect.Dispatch(w, req, exceptionType, handler)
	})
	if req.UseLogging {
		e.dialect.LogBlock(w, req)
	}
	e.dialect.Rethrow(w, req)
	e.dialect.Finish(w, req)

	return RenderedMethod{
		Name:     req.Wrapper,
		Original: req.Method.Name,
		Text:     w.String(),
		Imports:  e.dialect.Imports(req),
	}
}

// copyParams 复制参数列表，避免修改外部传入的声明
func copyParams(params []*Parameter) []*Parameter {
	out := make([]*Parameter, 0, len(params))
	for _, p := range params {
		if p == nil {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out
}
