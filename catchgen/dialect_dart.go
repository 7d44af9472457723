package catchgen

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var dartIdentRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// dartReservedWords Dart 保留字，不能作为标识符
var dartReservedWords = map[string]bool{
	"assert": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "default": true, "do": true, "else": true,
	"enum": true, "extends": true, "false": true, "final": true, "finally": true,
	"for": true, "if": true, "in": true, "is": true, "new": true, "null": true,
	"rethrow": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "true": true, "try": true, "var": true, "void": true,
	"while": true, "with": true,
}

// DartDialect 生成 Dart extension 中的包装方法
type DartDialect struct{}

var _ Dialect = DartDialect{}

func (DartDialect) Name() string   { return "dart" }
func (DartDialect) Indent() string { return "  " }

// IsDartIdentifier 检查是否为合法的 Dart 标识符
func IsDartIdentifier(name string) bool {
	return dartIdentRegex.MatchString(name) && !dartReservedWords[name]
}

func (DartDialect) ValidateClass(name string) error {
	if !IsDartIdentifier(name) {
		return &ConfigError{Class: name, Reason: "类名不是合法的 Dart 标识符"}
	}
	return nil
}

func (DartDialect) ValidateMethod(method *MethodDeclaration) error {
	if !IsDartIdentifier(method.Name) {
		return configErrorf(method.Name, "", "方法名不是合法的 Dart 标识符")
	}
	for i, p := range method.Parameters {
		if p == nil || !IsDartIdentifier(p.Name) {
			return configErrorf(method.Name, "", "第 %d 个参数名不是合法的 Dart 标识符", i+1)
		}
		if p.Kind == ParamVariadic {
			return configErrorf(method.Name, "", "Dart 不支持可变参数 %s", p.Name)
		}
		if p.Name == method.Name {
			return configErrorf(method.Name, "", "参数 %s 与方法同名，包装方法无法调用原方法", p.Name)
		}
	}
	return nil
}

// ValidateBindings 参数在 catch 块中仍然可见，不能与处理函数、异常类型或 print 同名
func (DartDialect) ValidateBindings(req *RenderRequest) error {
	names := make(map[string]bool, len(req.Params))
	for _, p := range req.Params {
		names[p.Name] = true
	}

	var err error
	req.Catchers.Each(func(exceptionType, handler string) {
		if err != nil {
			return
		}
		switch {
		case names[rootIdent(handler)]:
			err = configErrorf(req.Method.Name, FieldCatchers, "参数 %s 遮蔽了处理函数 %s", rootIdent(handler), handler)
		case names[rootIdent(exceptionType)]:
			err = configErrorf(req.Method.Name, FieldCatchers, "参数 %s 遮蔽了异常类型 %s", rootIdent(exceptionType), exceptionType)
		}
	})
	if err != nil {
		return err
	}
	if req.UseLogging && names["print"] {
		return configErrorf(req.Method.Name, FieldUseLogging, "参数 print 遮蔽了诊断输出使用的 print")
	}
	return nil
}

// Prepare Dart 命名参数是 API 的一部分，不能重命名
func (DartDialect) Prepare(req *RenderRequest) []*Parameter {
	return copyParams(req.Method.Parameters)
}

// ParameterList 按原顺序重建参数列表，保留修饰符与默认值
// 可选位置参数包在 [...] 中，命名参数包在 {...} 中
func (DartDialect) ParameterList(params []*Parameter) string {
	var positional, optional, named []string
	for _, p := range params {
		switch p.Kind {
		case ParamOptionalPositional:
			optional = append(optional, dartParam(p, false))
		case ParamNamed:
			named = append(named, dartParam(p, p.Required))
		default:
			positional = append(positional, dartParam(p, false))
		}
	}

	parts := positional
	if len(optional) > 0 {
		parts = append(parts, "["+strings.Join(optional, ", ")+"]")
	}
	if len(named) > 0 {
		parts = append(parts, "{"+strings.Join(named, ", ")+"}")
	}
	return strings.Join(parts, ", ")
}

func dartParam(p *Parameter, required bool) string {
	fields := make([]string, 0, 4)
	if required {
		fields = append(fields, "required")
	}
	if m := strings.TrimSpace(p.Modifiers); m != "" {
		fields = append(fields, m)
	}
	if t := strings.TrimSpace(p.Type); t != "" {
		fields = append(fields, t)
	}
	fields = append(fields, p.Name)
	text := strings.Join(fields, " ")
	if d := strings.TrimSpace(p.Default); d != "" {
		text += " = " + d
	}
	return text
}

// ArgumentList 按原顺序转发参数，命名参数使用 name: name
func (DartDialect) ArgumentList(params []*Parameter) string {
	return strings.Join(lo.Map(params, func(p *Parameter, _ int) string {
		if p.Kind == ParamNamed {
			return p.Name + ": " + p.Name
		}
		return p.Name
	}), ", ")
}

func (d DartDialect) Signature(w *codeWriter, req *RenderRequest) {
	w.Open("void %s(%s) {", req.Wrapper, d.ParameterList(req.Params))
}

func (d DartDialect) Guard(w *codeWriter, req *RenderRequest) {
	w.Open("try {")
	w.Line("%s(%s);", req.Method.Name, d.ArgumentList(req.Params))
	w.Close("} catch (error, stackTrace) {")
	w.depth++
}

func (DartDialect) Dispatch(w *codeWriter, _ *RenderRequest, exceptionType, handler string) {
	w.Open("if (error is %s) {", exceptionType)
	w.Line("%s(error, stackTrace);", handler)
	w.Close("}")
}

func (DartDialect) LogBlock(w *codeWriter, req *RenderRequest) {
	sep := req.Separator()
	w.Line("print('%s');", sep)
	w.Line("print('%s threw ${error.runtimeType}');", dartEscape(req.Label()))
	w.Line("print(error.toString());")
	w.Line("print(stackTrace.toString());")
	w.Line("print('%s');", sep)
}

func (DartDialect) Rethrow(w *codeWriter, _ *RenderRequest) {
	w.Line("rethrow;")
	w.Close("}")
}

func (DartDialect) Finish(w *codeWriter, _ *RenderRequest) {
	w.Close("}")
}

func (DartDialect) Imports(*RenderRequest) []Import { return nil }

func (d DartDialect) Scope(className, suffix string, methods []RenderedMethod) string {
	w := newCodeWriter(d.Indent())
	w.Open("extension %s%s on %s {", className, suffix, className)
	for i, m := range methods {
		if i > 0 {
			w.Line("")
		}
		w.Block(m.Text)
	}
	w.Close("}")
	return w.String()
}

// dartEscape 转义单引号字符串字面量中的特殊字符
// Dart 标识符允许 $，放进字符串时必须转义以免被当作插值
func dartEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `$`, `\$`)
	return r.Replace(s)
}
