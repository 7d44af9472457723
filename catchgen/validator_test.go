package catchgen

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestExtractCatchers(t *testing.T) {
	t.Run("no directive", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := NewMockConstantResolver(ctrl)
		// 没有指令时不会调用求值器

		catchers, err := New(resolver).ExtractCatchers(context.Background(), method("run", nil))
		require.NoError(t, err)
		assert.Nil(t, catchers)
	})

	t.Run("unresolvable is a soft failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := NewMockConstantResolver(ctrl)
		resolver.EXPECT().
			Resolve(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("cannot evaluate: %w", ErrUnresolvable))

		catchers, err := New(resolver).ExtractCatchers(context.Background(), method("run", directive(nil)))
		require.NoError(t, err)
		assert.Nil(t, catchers)
	})

	t.Run("null catchers", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := NewMockConstantResolver(ctrl)
		resolver.EXPECT().
			Resolve(gomock.Any(), gomock.Any()).
			Return(NewConstObject().Set(FieldCatchers, Null()), nil)

		catchers, err := New(resolver).ExtractCatchers(context.Background(), method("run", directive(nil)))
		require.NoError(t, err)
		assert.Nil(t, catchers)
	})

	t.Run("empty map", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := NewMockConstantResolver(ctrl)
		resolver.EXPECT().
			Resolve(gomock.Any(), gomock.Any()).
			Return(NewConstObject().Set(FieldCatchers, Map()), nil)

		catchers, err := New(resolver).ExtractCatchers(context.Background(), method("run", directive(nil)))
		require.NoError(t, err)
		require.NotNil(t, catchers)
		assert.Equal(t, 0, catchers.Len())
	})

	t.Run("ordered entries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := NewMockConstantResolver(ctrl)
		ann := directive(nil)
		resolver.EXPECT().
			Resolve(gomock.Any(), ann).
			Return(NewConstObject().Set(FieldCatchers, catchersValue("TypeB", "b", "TypeA", "a", "TypeC", "c")), nil)

		catchers, err := New(resolver).ExtractCatchers(context.Background(), method("run", ann))
		require.NoError(t, err)
		assert.Equal(t, []string{"TypeB", "TypeA", "TypeC"}, catchers.Keys())
		handler, ok := catchers.Get("TypeA")
		assert.True(t, ok)
		assert.Equal(t, "a", handler)
	})

	t.Run("resolver failure propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := NewMockConstantResolver(ctrl)
		boom := errors.New("io failure")
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(nil, boom)

		_, err := New(resolver).ExtractCatchers(context.Background(), method("run", directive(nil)))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("first directive wins", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := NewMockConstantResolver(ctrl)
		first := directive(nil)
		second := directive(nil)
		m := &MethodDeclaration{Name: "run", Annotations: []*Annotation{first, second}}
		resolver.EXPECT().
			Resolve(gomock.Any(), gomock.Eq(first)).
			Return(NewConstObject().Set(FieldCatchers, catchersValue("First", "f")), nil)

		catchers, err := New(resolver).ExtractCatchers(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, []string{"First"}, catchers.Keys())
	})
}

func TestDecodeCatchers(t *testing.T) {
	tests := []struct {
		name    string
		value   *ConstValue
		want    []string
		wantErr string
	}{
		{
			name:  "type to function",
			value: catchersValue("*fs.PathError", "onPathError", "ArgumentError", "h.onArg"),
			want:  []string{"*fs.PathError", "ArgumentError"},
		},
		{
			name:    "not a map",
			value:   String("ArgumentError"),
			wantErr: "必须是 类型 -> 函数 的映射",
		},
		{
			name:    "duplicate type",
			value:   catchersValue("TypeA", "a", "TypeA", "b"),
			wantErr: "类型 TypeA 重复出现",
		},
		{
			name:    "nil key",
			value:   Map(Entry(nil, FuncRef("h"))),
			wantErr: "第 1 项的键 null 无法解析为类型",
		},
		{
			name:    "function as key",
			value:   Map(Entry(TypeRef("A"), FuncRef("a")), Entry(FuncRef("B"), FuncRef("b"))),
			wantErr: "第 2 项的键 function(B) 无法解析为类型",
		},
		{
			name:    "string as value",
			value:   Map(Entry(TypeRef("A"), String("a"))),
			wantErr: "第 1 项 (A) 的值 string(a) 无法解析为函数",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCatchers("run", tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrHardConfig)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Keys())
		})
	}
}

func TestExtractUseLogging(t *testing.T) {
	tests := []struct {
		name    string
		obj     *ConstObject
		err     error
		want    bool
		wantErr bool
	}{
		{name: "true", obj: NewConstObject().Set(FieldUseLogging, Bool(true)), want: true},
		{name: "false", obj: NewConstObject().Set(FieldUseLogging, Bool(false)), want: false},
		{name: "null", obj: NewConstObject().Set(FieldUseLogging, Null()), want: false},
		{name: "absent", obj: NewConstObject(), want: false},
		{name: "wrong kind", obj: NewConstObject().Set(FieldUseLogging, String("yes")), wantErr: true},
		{name: "unresolvable", err: ErrUnresolvable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			resolver := NewMockConstantResolver(ctrl)
			resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(tt.obj, tt.err)

			got, err := New(resolver).ExtractUseLogging(context.Background(), method("run", directive(nil)))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrHardConfig)
				var ce *ConfigError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, FieldUseLogging, ce.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestExtractUseLogging_MissingDirective 在没有指令的方法上读取 useLogging 是内部不一致
func TestExtractUseLogging_MissingDirective(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := NewMockConstantResolver(ctrl)

	_, err := New(resolver).ExtractUseLogging(context.Background(), method("run", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHardConfig)
	assert.Contains(t, err.Error(), "找不到")
}

func TestConfigError(t *testing.T) {
	err := withClass(configErrorf("bar", FieldCatchers, "映射格式错误"), "Foo")
	assert.Equal(t, "Foo.bar: @ErrorCatching.catchers: 映射格式错误", err.Error())

	// 已有类名时不覆盖
	ce := &ConfigError{Class: "Outer", Method: "m", Reason: "x"}
	assert.Equal(t, "Outer.m: @ErrorCatching: x", withClass(ce, "Inner").Error())

	wrapped := fmt.Errorf("context: %w", withClass(configErrorf("m", "", "bad"), "C"))
	assert.ErrorIs(t, wrapped, ErrHardConfig)
}
