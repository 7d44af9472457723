package catchgen

import (
	"context"
	"errors"
)

// ParamKind 参数种类
type ParamKind int

const (
	ParamPositional         ParamKind = iota // 必填位置参数
	ParamOptionalPositional                  // 可选位置参数（Dart 中的 [...]）
	ParamNamed                               // 命名参数（Dart 中的 {...}）
	ParamVariadic                            // 可变参数（Go 中的 ...T）
)

func (k ParamKind) String() string {
	switch k {
	case ParamPositional:
		return "positional"
	case ParamOptionalPositional:
		return "optional"
	case ParamNamed:
		return "named"
	case ParamVariadic:
		return "variadic"
	default:
		return "unknown"
	}
}

// Parameter 方法参数
// Type、Modifiers、Default 都是不透明文本，生成时原样保留
type Parameter struct {
	Name      string
	Type      string
	Kind      ParamKind
	Required  bool   // 命名参数是否带 required
	Modifiers string // 例如 final、covariant
	Default   string // 默认值表达式，不含 "="
}

// MethodDeclaration 方法声明
type MethodDeclaration struct {
	Name        string
	Receiver    string // 接收者文本，例如 "s *Service"（仅 Go 方言使用）
	Parameters  []*Parameter
	Results     string // 返回值文本，例如 "(int, error)"（仅 Go 方言使用）
	Annotations []*Annotation
}

// ClassDeclaration 类（Go 中为结构体）声明
type ClassDeclaration struct {
	Name        string
	Annotations []*Annotation
	Methods     []*MethodDeclaration
}

// ErrUnresolvable 常量值无法解析
var ErrUnresolvable = errors.New("constant value is unresolvable")

// ConstantResolver 外部提供的常量求值器
// 无法解析时返回 ErrUnresolvable（可以被包装）
type ConstantResolver interface {
	Resolve(ctx context.Context, ann *Annotation) (*ConstObject, error)
}

// ResolverFunc 函数适配器
type ResolverFunc func(ctx context.Context, ann *Annotation) (*ConstObject, error)

func (f ResolverFunc) Resolve(ctx context.Context, ann *Annotation) (*ConstObject, error) {
	return f(ctx, ann)
}

// ConstKind 常量值种类
type ConstKind int

const (
	ConstNull ConstKind = iota
	ConstBool
	ConstString
	ConstType     // 类型引用，Name 为显示名
	ConstFunction // 函数引用，Name 为显示名
	ConstMap      // 有序映射
)

func (k ConstKind) String() string {
	switch k {
	case ConstNull:
		return "null"
	case ConstBool:
		return "bool"
	case ConstString:
		return "string"
	case ConstType:
		return "type"
	case ConstFunction:
		return "function"
	case ConstMap:
		return "map"
	default:
		return "unknown"
	}
}

// ConstValue 解析后的常量值
type ConstValue struct {
	Kind    ConstKind
	Bool    bool
	Name    string // ConstString 的值，或 ConstType/ConstFunction 的显示名
	Entries []ConstEntry
}

// ConstEntry 有序映射中的一项
type ConstEntry struct {
	Key   *ConstValue
	Value *ConstValue
}

// IsNull 判断是否为空值（nil 指针也视为 null）
func (v *ConstValue) IsNull() bool {
	return v == nil || v.Kind == ConstNull
}

// Null 构造 null 常量
func Null() *ConstValue { return &ConstValue{Kind: ConstNull} }

// Bool 构造布尔常量
func Bool(b bool) *ConstValue { return &ConstValue{Kind: ConstBool, Bool: b} }

// String 构造字符串常量
func String(s string) *ConstValue { return &ConstValue{Kind: ConstString, Name: s} }

// TypeRef 构造类型引用
func TypeRef(name string) *ConstValue { return &ConstValue{Kind: ConstType, Name: name} }

// FuncRef 构造函数引用
func FuncRef(name string) *ConstValue { return &ConstValue{Kind: ConstFunction, Name: name} }

// Map 构造有序映射
func Map(entries ...ConstEntry) *ConstValue { return &ConstValue{Kind: ConstMap, Entries: entries} }

// Entry 构造映射项
func Entry(key, value *ConstValue) ConstEntry { return ConstEntry{Key: key, Value: value} }

// ConstObject 注解实例求值后的字段集合
type ConstObject struct {
	Fields map[string]*ConstValue
}

// NewConstObject 创建常量对象
func NewConstObject() *ConstObject {
	return &ConstObject{Fields: make(map[string]*ConstValue)}
}

// Set 设置字段并返回自身，便于链式构造
func (o *ConstObject) Set(name string, value *ConstValue) *ConstObject {
	if o.Fields == nil {
		o.Fields = make(map[string]*ConstValue)
	}
	o.Fields[name] = value
	return o
}

// Field 读取字段，字段不存在时 ok 为 false
func (o *ConstObject) Field(name string) (*ConstValue, bool) {
	if o == nil || o.Fields == nil {
		return nil, false
	}
	v, ok := o.Fields[name]
	return v, ok
}
