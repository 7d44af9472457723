package plugin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type helpParams struct {
	Output  string `param:"name=output,required=false,default=,description=输出文件路径"`
	Suffix  string `param:"name=suffix,required=false,default=ErrorCatching,description=包装方法名后缀"`
	Handler string `param:"name=handler,required=true,default=,description=默认处理函数"`
}

func newHelpGenerator(name string, annotations []string, proto any) *testGenerator {
	return &testGenerator{
		BaseGenerator: *NewBaseGeneratorWithParamsStruct(name, annotations, []TargetKind{TargetStruct}, proto),
	}
}

func TestFormatHelpText(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newHelpGenerator("errcatch", []string{"GenerateErrorCatching", "ErrorCatching"}, helpParams{})))

	helpText := FormatHelpText(registry)

	for _, expected := range []string{
		"@GenerateErrorCatching - errcatch",
		"关联注解: @ErrorCatching",
		"output - 输出文件路径",
		"suffix [默认: ErrorCatching] - 包装方法名后缀",
		"handler (必填) - 默认处理函数",
		"示例:",
		"@GenerateErrorCatching(output=$FILE_errcatch.go)",
		"@GenerateErrorCatching(output=$STRUCT_errcatch.go)",
		"@GenerateErrorCatching(suffix=ErrorCatching)",
	} {
		assert.Contains(t, helpText, expected)
	}
	// output 参数只出现在通用说明里
	assert.NotContains(t, helpText, "output - 输出文件路径 -")
}

func TestFormatHelpText_MultipleGenerators(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newHelpGenerator("generator1", []string{"Ann1"}, nil)))
	require.NoError(t, registry.Register(newHelpGenerator("generator2", []string{"Ann2"}, nil)))

	helpText := FormatHelpText(registry)
	assert.Contains(t, helpText, "@Ann1 - generator1")
	assert.Contains(t, helpText, "@Ann2 - generator2")
	assert.Less(t, strings.Index(helpText, "@Ann1"), strings.Index(helpText, "@Ann2"))
}

func TestFormatHelpText_EmptyRegistry(t *testing.T) {
	assert.Contains(t, FormatHelpText(NewRegistry()), "(暂无已注册的生成器)")
}

func TestFormatParamDef(t *testing.T) {
	tests := []struct {
		name     string
		param    ParamDef
		expected string
	}{
		{
			name:     "required param",
			param:    ParamDef{Name: "handler", Required: true, Description: "默认处理函数"},
			expected: "handler, required, 默认处理函数",
		},
		{
			name:     "optional param with default",
			param:    ParamDef{Name: "suffix", Default: "ErrorCatching", Description: "后缀"},
			expected: "suffix, optional, default=ErrorCatching, 后缀",
		},
		{
			name:     "bare",
			param:    ParamDef{Name: "output"},
			expected: "output, optional",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatParamDef(tt.param))
		})
	}
}
