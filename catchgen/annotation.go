package catchgen

// DefaultLibrary 注解定义所在的库
// Dart 侧为注解类所在的 package URI，Go 侧使用本模块路径
const DefaultLibrary = "package:error_catching/error_catching.dart"

// GoLibrary Go 源码注解的定义库
const GoLibrary = "github.com/donutnomad/errcatch"

const (
	// MarkerName 类级标记注解名称
	MarkerName = "GenerateErrorCatching"
	// DirectiveName 方法级生成指令注解名称
	DirectiveName = "ErrorCatching"
)

// 指令常量值中的字段名
const (
	FieldUseLogging = "useLogging"
	FieldCatchers   = "catchers"
)

// DefaultSuffix 包装方法名后缀
const DefaultSuffix = "ErrorCatching"

// Symbol 标识注解的定义符号（定义库 + 名称）
// 只有 Library 和 Name 完全一致才视为同一个注解
type Symbol struct {
	Library string
	Name    string
}

func (s Symbol) String() string {
	if s.Library == "" {
		return "@" + s.Name
	}
	return s.Library + "#" + s.Name
}

// MarkerSymbol 返回指定库下的类级标记符号
func MarkerSymbol(library string) Symbol {
	return Symbol{Library: library, Name: MarkerName}
}

// DirectiveSymbol 返回指定库下的方法级指令符号
func DirectiveSymbol(library string) Symbol {
	return Symbol{Library: library, Name: DirectiveName}
}

// Annotation 表示附着在声明上的一个注解实例
type Annotation struct {
	Symbol Symbol // 定义符号
	Raw    string // 原始注解文本，仅用于诊断信息
	Source any    // 前端私有的句柄，交给 ConstantResolver 解析
}

// DirectiveDefaults 指令在调用处省略参数时的声明默认值
// 注意：这里的 useLogging 默认为 true，而提取路径在字段缺失时回退为 false
var DirectiveDefaults = map[string]*ConstValue{
	FieldUseLogging: Bool(true),
	FieldCatchers:   Null(),
}

// HasAnnotation 检查注解列表中是否存在指定符号
func HasAnnotation(annotations []*Annotation, symbol Symbol) bool {
	return FindAnnotation(annotations, symbol) != nil
}

// FindAnnotation 返回第一个符号匹配的注解
func FindAnnotation(annotations []*Annotation, symbol Symbol) *Annotation {
	for _, ann := range annotations {
		if ann != nil && ann.Symbol == symbol {
			return ann
		}
	}
	return nil
}
