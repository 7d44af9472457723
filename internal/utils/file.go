package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"
)

// FormatSource 格式化 Go 源码并整理 imports（删除未使用的、补齐缺失的）
func FormatSource(filename string, src []byte) ([]byte, error) {
	return imports.Process(filename, src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
}

// WriteFormat 格式化后写入文件
// 格式化失败时仍然写入原始内容，便于排查生成结果，同时返回错误
func WriteFormat(path string, src []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	formatted, ferr := FormatSource(path, src)
	if ferr != nil {
		if err := os.WriteFile(path, src, 0644); err != nil {
			return err
		}
		return fmt.Errorf("格式化 %s 失败: %w", path, ferr)
	}
	return os.WriteFile(path, formatted, 0644)
}

// WriteIfChanged 内容不同时才写入，返回是否写入
// dev 模式下避免无意义的写入再次触发文件监听
func WriteIfChanged(path string, content []byte) (bool, error) {
	old, err := os.ReadFile(path)
	if err == nil && bytes.Equal(old, content) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, err
	}
	return true, nil
}
