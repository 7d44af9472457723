package catchgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ExtractCatchers 提取方法指令中的 catchers 映射
//
// 返回 nil 表示"没有 catchers"，与空映射不同：
//   - 方法上没有指令
//   - 指令常量值无法解析（软失败，继续生成但不做类型分发）
//   - catchers 字段缺失或为 null
//
// catchers 存在但某一项的类型或函数无法解析时返回 ConfigError，该方法所在的单元整体中止。
func (e *Engine) ExtractCatchers(ctx context.Context, method *MethodDeclaration) (*OrderedMap[string, string], error) {
	ann := FindDirective(method, e.directive)
	if ann == nil {
		return nil, nil
	}

	obj, err := e.resolver.Resolve(ctx, ann)
	if err != nil {
		if errors.Is(err, ErrUnresolvable) {
			return nil, nil
		}
		return nil, fmt.Errorf("解析 %s 的 @%s 失败: %w", method.Name, DirectiveName, err)
	}

	value, ok := obj.Field(FieldCatchers)
	if !ok || value.IsNull() {
		return nil, nil
	}

	return DecodeCatchers(method.Name, value)
}

// DecodeCatchers 将 catchers 常量解码为 异常类型名 -> 处理函数名 的有序映射
func DecodeCatchers(method string, value *ConstValue) (*OrderedMap[string, string], error) {
	if value.Kind != ConstMap {
		return nil, configErrorf(method, FieldCatchers,
			"catchers 必须是 类型 -> 函数 的映射，实际为 %s", value.Kind)
	}

	catchers := NewOrderedMap[string, string]()
	for i, entry := range value.Entries {
		typeName, ok := displayName(entry.Key, ConstType)
		if !ok {
			return nil, configErrorf(method, FieldCatchers,
				"映射格式错误: 第 %d 项的键 %s 无法解析为类型", i+1, describe(entry.Key))
		}
		funcName, ok := displayName(entry.Value, ConstFunction)
		if !ok {
			return nil, configErrorf(method, FieldCatchers,
				"映射格式错误: 第 %d 项 (%s) 的值 %s 无法解析为函数", i+1, typeName, describe(entry.Value))
		}
		if catchers.Has(typeName) {
			return nil, configErrorf(method, FieldCatchers,
				"映射格式错误: 类型 %s 重复出现", typeName)
		}
		catchers.Set(typeName, funcName)
	}
	return catchers, nil
}

// ExtractUseLogging 提取方法指令中的 useLogging
//
// 方法已经被 FindAnnotatedMethods 选中，因此指令缺失或无法解析都是内部不一致，返回 ConfigError。
// 字段缺失或为 null 时回退为 false（与注解声明的默认值 true 不同）。
func (e *Engine) ExtractUseLogging(ctx context.Context, method *MethodDeclaration) (bool, error) {
	ann := FindDirective(method, e.directive)
	if ann == nil {
		return false, configErrorf(method.Name, FieldUseLogging,
			"方法上找不到 %s 指令", e.directive)
	}

	obj, err := e.resolver.Resolve(ctx, ann)
	if err != nil {
		if errors.Is(err, ErrUnresolvable) {
			return false, configErrorf(method.Name, FieldUseLogging,
				"指令常量值无法解析 (%s)", strings.TrimSpace(ann.Raw))
		}
		return false, fmt.Errorf("解析 %s 的 @%s 失败: %w", method.Name, DirectiveName, err)
	}

	value, ok := obj.Field(FieldUseLogging)
	if !ok || value.IsNull() {
		return false, nil
	}
	if value.Kind != ConstBool {
		return false, configErrorf(method.Name, FieldUseLogging,
			"必须是 bool，实际为 %s", value.Kind)
	}
	return value.Bool, nil
}

// displayName 返回指定种类常量的非空显示名
func displayName(v *ConstValue, kind ConstKind) (string, bool) {
	if v.IsNull() || v.Kind != kind {
		return "", false
	}
	name := strings.TrimSpace(v.Name)
	return name, name != ""
}

func describe(v *ConstValue) string {
	if v.IsNull() {
		return "null"
	}
	if v.Name != "" {
		return fmt.Sprintf("%s(%s)", v.Kind, v.Name)
	}
	return v.Kind.String()
}
