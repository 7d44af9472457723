package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/donutnomad/errcatch/catchgen"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// paramKinds 清单中的参数种类名
var paramKinds = map[string]catchgen.ParamKind{
	"":           catchgen.ParamPositional,
	"positional": catchgen.ParamPositional,
	"optional":   catchgen.ParamOptionalPositional,
	"named":      catchgen.ParamNamed,
}

// Declarations 把清单中的类转换为核心声明图
// 注解的 Source 指向清单中的注解，由 Resolver 求值
func (m *Manifest) Declarations() ([]*catchgen.ClassDeclaration, error) {
	classes := make([]*catchgen.ClassDeclaration, 0, len(m.Classes))
	for _, c := range m.Classes {
		decl := &catchgen.ClassDeclaration{
			Name:        c.Name,
			Annotations: convertAnnotations(c.Annotations),
		}
		for _, method := range c.Methods {
			if method == nil {
				continue
			}
			params, err := convertParameters(method.Parameters)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", c.Name, method.Name, err)
			}
			decl.Methods = append(decl.Methods, &catchgen.MethodDeclaration{
				Name:        method.Name,
				Parameters:  params,
				Annotations: convertAnnotations(method.Annotations),
			})
		}
		classes = append(classes, decl)
	}
	return classes, nil
}

func convertParameters(params []*Parameter) ([]*catchgen.Parameter, error) {
	result := make([]*catchgen.Parameter, 0, len(params))
	for i, p := range params {
		if p == nil {
			return nil, fmt.Errorf("第 %d 个参数为空", i+1)
		}
		kind, ok := paramKinds[strings.ToLower(p.Kind)]
		if !ok {
			return nil, fmt.Errorf("参数 %s 的种类 %q 无效", p.Name, p.Kind)
		}
		result = append(result, &catchgen.Parameter{
			Name:      p.Name,
			Type:      p.Type,
			Kind:      kind,
			Required:  p.Required,
			Modifiers: p.Modifiers,
			Default:   p.Default,
		})
	}
	return result, nil
}

func convertAnnotations(anns []*Annotation) []*catchgen.Annotation {
	anns = lo.Compact(anns)
	return lo.Map(anns, func(ann *Annotation, _ int) *catchgen.Annotation {
		return &catchgen.Annotation{
			Symbol: catchgen.Symbol{Library: ann.Library, Name: ann.Name},
			Raw:    "@" + ann.Name,
			Source: ann,
		}
	})
}

// Resolver 从清单注解中读取常量值
// 清单给出的就是分析工具求值后的结果，不补声明默认值
type Resolver struct{}

var _ catchgen.ConstantResolver = Resolver{}

func (Resolver) Resolve(ctx context.Context, ann *catchgen.Annotation) (*catchgen.ConstObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, ok := ann.Source.(*Annotation)
	if !ok || src == nil || src.Value == nil {
		return nil, catchgen.ErrUnresolvable
	}

	obj := catchgen.NewConstObject()
	obj.Set(catchgen.FieldUseLogging, boolValue(src.Value.UseLogging))
	if src.Value.Catchers != nil {
		obj.Set(catchgen.FieldCatchers, catchersValue(src.Value.Catchers))
	}
	return obj, nil
}

// boolValue 非布尔值保留为字符串
func boolValue(v any) *catchgen.ConstValue {
	switch b := v.(type) {
	case nil:
		return catchgen.Null()
	case bool:
		return catchgen.Bool(b)
	default:
		return catchgen.String(cast.ToString(v))
	}
}

func catchersValue(catchers []*Catcher) *catchgen.ConstValue {
	entries := lo.Map(catchers, func(c *Catcher, _ int) catchgen.ConstEntry {
		if c == nil {
			return catchgen.Entry(catchgen.Null(), catchgen.Null())
		}
		key, value := catchgen.Null(), catchgen.Null()
		if t := strings.TrimSpace(c.Type); t != "" {
			key = catchgen.TypeRef(t)
		}
		if f := strings.TrimSpace(c.Function); f != "" {
			value = catchgen.FuncRef(f)
		}
		return catchgen.Entry(key, value)
	})
	return catchgen.Map(entries...)
}
