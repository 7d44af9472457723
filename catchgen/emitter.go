package catchgen

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// Unit 一个类生成的完整代码单元
type Unit struct {
	ClassName string
	Methods   []string // 包装方法名，按发现顺序
	Text      string
	Imports   []Import // 按路径去重排序
}

// Emit 将一个类的所有包装方法合并为一个作用域
// 没有方法时返回 nil，而不是空单元
func (e *Engine) Emit(className string, methods []RenderedMethod) *Unit {
	if len(methods) == 0 {
		return nil
	}

	imports := lo.UniqBy(lo.FlatMap(methods, func(m RenderedMethod, _ int) []Import {
		return m.Imports
	}), func(imp Import) string {
		return imp.Path
	})
	slices.SortFunc(imports, func(a, b Import) int {
		return cmp.Compare(a.Path, b.Path)
	})

	return &Unit{
		ClassName: className,
		Methods: lo.Map(methods, func(m RenderedMethod, _ int) string {
			return m.Name
		}),
		Text:    e.dialect.Scope(className, e.suffix, methods),
		Imports: imports,
	}
}
