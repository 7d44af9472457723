package plugin

import (
	"fmt"
	"strings"
)

// FormatHelpText 为所有注册的生成器生成帮助文本
func FormatHelpText(registry *Registry) string {
	generators := registry.Generators()
	if len(generators) == 0 {
		return "  (暂无已注册的生成器)\n"
	}

	var sb strings.Builder

	for _, gen := range generators {
		annotations := gen.Annotations()
		if len(annotations) == 0 {
			continue
		}

		mainAnnotation := annotations[0]
		paramDefs := gen.ParamDefs()

		fmt.Fprintf(&sb, "  @%s - %s\n", mainAnnotation, gen.Name())
		if len(annotations) > 1 {
			fmt.Fprintf(&sb, "    关联注解: @%s\n", strings.Join(annotations[1:], ", @"))
		}

		sb.WriteString("    参数:\n")
		sb.WriteString("      output - 输出文件路径（支持 $FILE $PACKAGE $STRUCT 模板变量）\n")
		for _, param := range paramDefs {
			if param.Name == "output" {
				continue
			}
			fmt.Fprintf(&sb, "      %s\n", formatParamLine(param))
		}

		sb.WriteString("    示例:\n")
		fmt.Fprintf(&sb, "      @%s\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=$FILE_errcatch.go)\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=$STRUCT_errcatch.go)\n", mainAnnotation)

		// 只显示前 2 个带默认值参数的示例
		shown := 0
		for _, param := range paramDefs {
			if shown >= 2 {
				break
			}
			if param.Default != "" && param.Name != "output" {
				fmt.Fprintf(&sb, "      @%s(%s=%s)\n", mainAnnotation, param.Name, param.Default)
				shown++
			}
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func formatParamLine(param ParamDef) string {
	line := param.Name
	if param.Required {
		line += " (必填)"
	}
	if param.Default != "" {
		line += fmt.Sprintf(" [默认: %s]", param.Default)
	}
	return line + " - " + param.Description
}

// FormatParamDef 格式化单个参数定义
func FormatParamDef(param ParamDef) string {
	parts := []string{param.Name}

	if param.Required {
		parts = append(parts, "required")
	} else {
		parts = append(parts, "optional")
	}
	if param.Default != "" {
		parts = append(parts, "default="+param.Default)
	}
	if param.Description != "" {
		parts = append(parts, param.Description)
	}

	return strings.Join(parts, ", ")
}
