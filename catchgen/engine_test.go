package catchgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateUnit_EndToEnd 测试 Foo.bar 的完整输出
func TestGenerateUnit_EndToEnd(t *testing.T) {
	obj := NewConstObject().
		Set(FieldUseLogging, Bool(false)).
		Set(FieldCatchers, catchersValue("ArgumentError", "logArg"))
	class := &ClassDeclaration{
		Name:        "Foo",
		Annotations: []*Annotation{marker()},
		Methods:     []*MethodDeclaration{method("bar", directive(obj), param("int", "x"))},
	}

	unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
	require.NoError(t, err)
	require.NotNil(t, unit)

	want := `extension FooErrorCatching on Foo {
  void barErrorCatching(int x) {
    try {
      bar(x);
    } catch (error, stackTrace) {
      if (error is ArgumentError) {
        logArg(error, stackTrace);
      }
      rethrow;
    }
  }
}
`
	assert.Equal(t, want, unit.Text)
	assert.Equal(t, []string{"barErrorCatching"}, unit.Methods)
	assert.Equal(t, "Foo", unit.ClassName)
	assert.Empty(t, unit.Imports)
}

// TestGenerateUnit_NoAnnotatedMethods 没有带指令的方法时不生成单元
func TestGenerateUnit_NoAnnotatedMethods(t *testing.T) {
	tests := []struct {
		name  string
		class *ClassDeclaration
	}{
		{name: "nil class", class: nil},
		{name: "no methods", class: &ClassDeclaration{Name: "Foo", Annotations: []*Annotation{marker()}}},
		{
			name: "methods without directive",
			class: &ClassDeclaration{
				Name: "Foo",
				Methods: []*MethodDeclaration{
					method("a", nil),
					method("b", &Annotation{Symbol: Symbol{Library: DefaultLibrary, Name: "Deprecated"}}),
				},
			},
		},
		{
			name: "directive from another library",
			class: &ClassDeclaration{
				Name: "Foo",
				Methods: []*MethodDeclaration{
					method("a", &Annotation{Symbol: DirectiveSymbol("package:other/other.dart"), Source: NewConstObject()}),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := New(sourceResolver).GenerateUnit(context.Background(), tt.class)
			require.NoError(t, err)
			assert.Nil(t, unit)
		})
	}
}

// TestGenerateUnit_OneWrapperPerMethodInOrder 每个带指令的方法生成一个包装方法，顺序与声明一致
func TestGenerateUnit_OneWrapperPerMethodInOrder(t *testing.T) {
	obj := NewConstObject().Set(FieldUseLogging, Bool(false))
	class := &ClassDeclaration{
		Name: "Repo",
		Methods: []*MethodDeclaration{
			method("save", directive(obj)),
			method("helper", nil),
			method("load", directive(obj)),
			method("delete", directive(obj)),
		},
	}

	unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
	require.NoError(t, err)
	require.NotNil(t, unit)

	assert.Equal(t, []string{"saveErrorCatching", "loadErrorCatching", "deleteErrorCatching"}, unit.Methods)
	assert.NotContains(t, unit.Text, "helperErrorCatching")

	save := strings.Index(unit.Text, "void saveErrorCatching(")
	load := strings.Index(unit.Text, "void loadErrorCatching(")
	del := strings.Index(unit.Text, "void deleteErrorCatching(")
	assert.True(t, save >= 0 && save < load && load < del, "包装方法顺序错误:\n%s", unit.Text)
	assert.Equal(t, 3, strings.Count(unit.Text, "rethrow;"))
}

// TestGenerateUnit_SignatureForwarding 参数列表与转发调用保持原样
func TestGenerateUnit_SignatureForwarding(t *testing.T) {
	class := &ClassDeclaration{
		Name: "Foo",
		Methods: []*MethodDeclaration{
			method("m", directive(NewConstObject()), param("int", "a"), param("String", "b")),
		},
	}

	unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
	require.NoError(t, err)
	require.NotNil(t, unit)

	assert.Contains(t, unit.Text, "void mErrorCatching(int a, String b) {")
	assert.Contains(t, unit.Text, "      m(a, b);\n")
}

// TestGenerateUnit_CatcherOrder 类型分发按声明顺序输出
func TestGenerateUnit_CatcherOrder(t *testing.T) {
	obj := NewConstObject().Set(FieldCatchers, catchersValue("TypeA", "handlerA", "TypeB", "handlerB"))
	class := &ClassDeclaration{
		Name:    "Foo",
		Methods: []*MethodDeclaration{method("run", directive(obj))},
	}

	unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
	require.NoError(t, err)
	require.NotNil(t, unit)

	a := strings.Index(unit.Text, "if (error is TypeA) {\n        handlerA(error, stackTrace);")
	b := strings.Index(unit.Text, "if (error is TypeB) {\n        handlerB(error, stackTrace);")
	require.GreaterOrEqual(t, a, 0, unit.Text)
	require.GreaterOrEqual(t, b, 0, unit.Text)
	assert.Less(t, a, b)

	// 两个检查都是独立的 if，没有 else 分支
	assert.NotContains(t, unit.Text, "else")
}

// TestGenerateUnit_MalformedCatchers catchers 中的条目无法解析时整个单元中止
func TestGenerateUnit_MalformedCatchers(t *testing.T) {
	tests := []struct {
		name  string
		entry ConstEntry
	}{
		{name: "null key", entry: Entry(Null(), FuncRef("h"))},
		{name: "key is not a type", entry: Entry(String("TypeA"), FuncRef("h"))},
		{name: "empty type name", entry: Entry(TypeRef(" "), FuncRef("h"))},
		{name: "null value", entry: Entry(TypeRef("TypeA"), Null())},
		{name: "value is not a function", entry: Entry(TypeRef("TypeA"), TypeRef("h"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := NewConstObject().Set(FieldCatchers, Map(Entry(TypeRef("Ok"), FuncRef("ok")), tt.entry))
			good := NewConstObject()
			class := &ClassDeclaration{
				Name: "Foo",
				Methods: []*MethodDeclaration{
					method("first", directive(good)),
					method("broken", directive(bad)),
				},
			}

			unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
			require.Error(t, err)
			assert.Nil(t, unit)
			assert.True(t, errors.Is(err, ErrHardConfig))

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "Foo", ce.Class)
			assert.Equal(t, "broken", ce.Method)
			assert.Equal(t, FieldCatchers, ce.Field)
			assert.Contains(t, err.Error(), "Foo.broken")
			assert.Contains(t, err.Error(), "映射格式错误")
		})
	}
}

// TestGenerateUnit_NoCatchers 没有 catchers 时仍然生成 try/catch、日志和 rethrow
func TestGenerateUnit_NoCatchers(t *testing.T) {
	obj := NewConstObject().Set(FieldUseLogging, Bool(true))
	class := &ClassDeclaration{
		Name:    "Foo",
		Methods: []*MethodDeclaration{method("run", directive(obj))},
	}

	unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
	require.NoError(t, err)
	require.NotNil(t, unit)

	assert.NotContains(t, unit.Text, "is ")
	assert.Contains(t, unit.Text, "try {")
	assert.Contains(t, unit.Text, "} catch (error, stackTrace) {")
	assert.Contains(t, unit.Text, "print('Foo.run threw ${error.runtimeType}');")
	assert.Contains(t, unit.Text, "rethrow;")
}

// TestGenerateUnit_LoggingResolution useLogging 的各种解析路径
func TestGenerateUnit_LoggingResolution(t *testing.T) {
	tests := []struct {
		name        string
		obj         *ConstObject
		wantLogging bool
	}{
		{name: "explicit true", obj: NewConstObject().Set(FieldUseLogging, Bool(true)), wantLogging: true},
		{name: "explicit false", obj: NewConstObject().Set(FieldUseLogging, Bool(false)), wantLogging: false},
		{name: "null falls back to false", obj: NewConstObject().Set(FieldUseLogging, Null()), wantLogging: false},
		{name: "absent falls back to false", obj: NewConstObject(), wantLogging: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := &ClassDeclaration{
				Name:    "Foo",
				Methods: []*MethodDeclaration{method("run", directive(tt.obj))},
			}
			unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
			require.NoError(t, err)
			require.NotNil(t, unit)
			assert.Equal(t, tt.wantLogging, strings.Contains(unit.Text, "print("))
		})
	}
}

// TestGenerateUnit_UnresolvableDirective 指令无法解析：catchers 软失败，但 useLogging 是硬错误
func TestGenerateUnit_UnresolvableDirective(t *testing.T) {
	class := &ClassDeclaration{
		Name:    "Foo",
		Methods: []*MethodDeclaration{method("run", directive(nil))},
	}

	unit, err := New(sourceResolver).GenerateUnit(context.Background(), class)
	require.Error(t, err)
	assert.Nil(t, unit)
	assert.True(t, errors.Is(err, ErrHardConfig))
	assert.Contains(t, err.Error(), "Foo.run")
	assert.Contains(t, err.Error(), FieldUseLogging)
}

// TestGenerateUnit_Deterministic 相同输入产生逐字节相同的输出
func TestGenerateUnit_Deterministic(t *testing.T) {
	obj := NewConstObject().
		Set(FieldUseLogging, Bool(true)).
		Set(FieldCatchers, catchersValue("StateError", "onState", "FormatException", "onFormat", "Exception", "onAny"))
	class := &ClassDeclaration{
		Name: "Parser",
		Methods: []*MethodDeclaration{
			method("parse", directive(obj), param("String", "input"), &Parameter{Name: "strict", Type: "bool", Kind: ParamNamed, Default: "false"}),
			method("reset", directive(obj)),
		},
	}

	engine := New(sourceResolver)
	first, err := engine.GenerateUnit(context.Background(), class)
	require.NoError(t, err)
	second, err := engine.GenerateUnit(context.Background(), class)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first, second)
}

// TestGenerateUnit_InvalidIdentifier 非法标识符在生成前被拒绝
func TestGenerateUnit_InvalidIdentifier(t *testing.T) {
	class := &ClassDeclaration{
		Name:    "Foo",
		Methods: []*MethodDeclaration{method("run", directive(NewConstObject()), param("int", "class"))},
	}

	_, err := New(sourceResolver).GenerateUnit(context.Background(), class)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHardConfig))
	assert.Contains(t, err.Error(), "Foo.run")
}

// TestGenerateUnit_ResolverFailure 求值器的其他错误直接向上传递
func TestGenerateUnit_ResolverFailure(t *testing.T) {
	boom := errors.New("analyzer crashed")
	resolver := ResolverFunc(func(context.Context, *Annotation) (*ConstObject, error) {
		return nil, boom
	})
	class := &ClassDeclaration{
		Name:    "Foo",
		Methods: []*MethodDeclaration{method("run", directive(NewConstObject()))},
	}

	_, err := New(resolver).GenerateUnit(context.Background(), class)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrHardConfig))
}

// TestGenerateUnit_CustomSuffixAndDirective 自定义后缀与指令符号
func TestGenerateUnit_CustomSuffixAndDirective(t *testing.T) {
	custom := Symbol{Library: "package:acme/acme.dart", Name: "Guarded"}
	class := &ClassDeclaration{
		Name: "Foo",
		Methods: []*MethodDeclaration{
			method("run", &Annotation{Symbol: custom, Source: NewConstObject()}),
			method("skip", directive(NewConstObject())),
		},
	}

	unit, err := New(sourceResolver, WithDirective(custom), WithSuffix("Guarded")).GenerateUnit(context.Background(), class)
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Equal(t, []string{"runGuarded"}, unit.Methods)
	assert.True(t, strings.HasPrefix(unit.Text, "extension FooGuarded on Foo {\n"), unit.Text)
}

// TestGenerateUnits_Parallel 并行生成保持输入顺序
func TestGenerateUnits_Parallel(t *testing.T) {
	var classes []*ClassDeclaration
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		classes = append(classes, &ClassDeclaration{
			Name:    name,
			Methods: []*MethodDeclaration{method("run", directive(NewConstObject()))},
		})
	}
	classes = append(classes, &ClassDeclaration{Name: "Empty"})

	units, err := New(sourceResolver, WithConcurrency(2)).GenerateUnits(context.Background(), classes)
	require.NoError(t, err)
	require.Len(t, units, len(classes))
	for i, name := range []string{"A", "B", "C", "D", "E"} {
		require.NotNil(t, units[i])
		assert.Equal(t, name, units[i].ClassName)
	}
	assert.Nil(t, units[5])
}

// TestGenerateUnits_FirstErrorWins 任一类失败时返回错误
func TestGenerateUnits_FirstErrorWins(t *testing.T) {
	classes := []*ClassDeclaration{
		{Name: "Good", Methods: []*MethodDeclaration{method("run", directive(NewConstObject()))}},
		{Name: "Bad", Methods: []*MethodDeclaration{method("run", directive(nil))}},
	}

	units, err := New(sourceResolver).GenerateUnits(context.Background(), classes)
	require.Error(t, err)
	assert.Nil(t, units)
	assert.Contains(t, err.Error(), "Bad")
}
