// Package manifest 读取描述 Dart 类声明的清单文件，并把它们转换为核心声明图
//
// 清单由外部的 Dart 分析工具导出，支持 YAML 与 JSON 两种格式：
//
//	source: lib/foo.dart
//	classes:
//	  - name: Foo
//	    annotations: [{library: "package:error_catching/error_catching.dart", name: GenerateErrorCatching}]
//	    methods:
//	      - name: bar
//	        parameters: [{name: x, type: int, kind: positional}]
//	        annotations:
//	          - library: "package:error_catching/error_catching.dart"
//	            name: ErrorCatching
//	            value: {useLogging: false, catchers: [{type: ArgumentError, function: logArg}]}
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

// Manifest 一个 Dart 源文件的声明清单
type Manifest struct {
	Source  string   `json:"source" yaml:"source"`
	Classes []*Class `json:"classes" yaml:"classes"`

	// Path 清单文件自身的路径，不参与解码
	Path string `json:"-" yaml:"-"`
}

// Class 类声明
type Class struct {
	Name        string        `json:"name" yaml:"name"`
	Annotations []*Annotation `json:"annotations" yaml:"annotations"`
	Methods     []*Method     `json:"methods" yaml:"methods"`
}

// Method 方法声明
type Method struct {
	Name        string        `json:"name" yaml:"name"`
	Parameters  []*Parameter  `json:"parameters" yaml:"parameters"`
	Annotations []*Annotation `json:"annotations" yaml:"annotations"`
}

// Parameter 方法参数，kind 取 positional / optional / named
type Parameter struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Kind      string `json:"kind" yaml:"kind"`
	Required  bool   `json:"required" yaml:"required"`
	Modifiers string `json:"modifiers" yaml:"modifiers"`
	Default   string `json:"default" yaml:"default"`
}

// Annotation 注解实例，value 缺失表示分析工具无法求值
type Annotation struct {
	Library string          `json:"library" yaml:"library"`
	Name    string          `json:"name" yaml:"name"`
	Value   *DirectiveValue `json:"value" yaml:"value"`
}

// DirectiveValue 指令常量值
// UseLogging 保留原始类型，非布尔值由提取阶段报告
type DirectiveValue struct {
	UseLogging any        `json:"useLogging" yaml:"useLogging"`
	Catchers   []*Catcher `json:"catchers" yaml:"catchers"`
}

// Catcher catchers 中的一项
type Catcher struct {
	Type     string `json:"type" yaml:"type"`
	Function string `json:"function" yaml:"function"`
}

// Format 清单格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf 根据扩展名判断清单格式
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("不支持的清单格式: %s", path)
	}
}

var jsonAPI = sonic.Config{DisallowUnknownFields: true}.Froze()

// Decode 解码清单内容，未知字段视为错误
func Decode(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(bytes.NewReader(data), yaml.DisallowUnknownField()).Decode(&m); err != nil {
			return nil, fmt.Errorf("解析 YAML 清单失败: %w", err)
		}
	case FormatJSON:
		if err := jsonAPI.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("解析 JSON 清单失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的清单格式: %q", format)
	}
	return &m, nil
}

// Load 读取并解码清单文件
// source 为相对路径时相对清单所在目录
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取清单失败: %w", err)
	}
	m, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Path = path
	if !filepath.IsAbs(m.Source) {
		m.Source = filepath.Join(filepath.Dir(path), filepath.FromSlash(m.Source))
	}
	return m, nil
}

func (m *Manifest) validate() error {
	if strings.TrimSpace(m.Source) == "" {
		return fmt.Errorf("清单缺少 source")
	}
	if !strings.HasSuffix(m.Source, ".dart") {
		return fmt.Errorf("source 必须是 .dart 文件: %s", m.Source)
	}
	for i, c := range m.Classes {
		if c == nil {
			return fmt.Errorf("第 %d 个类为空", i+1)
		}
	}
	return nil
}
