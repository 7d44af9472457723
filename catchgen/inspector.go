package catchgen

import "github.com/samber/lo"

// FindAnnotatedMethods 按声明顺序返回带有指令注解的方法
// 匹配依据是注解的定义符号，同名但来自其他库的注解不会被选中
func FindAnnotatedMethods(class *ClassDeclaration, directive Symbol) []*MethodDeclaration {
	if class == nil {
		return nil
	}
	return lo.Filter(class.Methods, func(m *MethodDeclaration, _ int) bool {
		return FindDirective(m, directive) != nil
	})
}

// FindDirective 返回方法上的指令注解
// 存在多个时取声明顺序中的第一个
func FindDirective(method *MethodDeclaration, directive Symbol) *Annotation {
	if method == nil {
		return nil
	}
	return FindAnnotation(method.Annotations, directive)
}

// IsMarked 检查类是否带有类级标记
func IsMarked(class *ClassDeclaration, marker Symbol) bool {
	return class != nil && HasAnnotation(class.Annotations, marker)
}
