package catchgen

import (
	"fmt"
	"strings"
)

// codeWriter 带缩进约定的文本构建器
// 每次 Line 写入一整行，缩进由 Indent/Dedent 控制
type codeWriter struct {
	sb     strings.Builder
	indent string
	depth  int
}

func newCodeWriter(indent string) *codeWriter {
	return &codeWriter{indent: indent}
}

// Line 按格式串写入一行，空格式串写入空行（不带缩进）
func (w *codeWriter) Line(format string, args ...any) {
	w.Raw(fmt.Sprintf(format, args...))
}

// Raw 原样写入一行，文本中的 % 不做格式化
func (w *codeWriter) Raw(text string) {
	if text == "" {
		w.sb.WriteByte('\n')
		return
	}
	w.sb.WriteString(strings.Repeat(w.indent, w.depth))
	w.sb.WriteString(text)
	w.sb.WriteByte('\n')
}

// Open 写入一行并增加缩进
func (w *codeWriter) Open(format string, args ...any) {
	w.Line(format, args...)
	w.depth++
}

// Close 减少缩进后写入一行
func (w *codeWriter) Close(format string, args ...any) {
	if w.depth > 0 {
		w.depth--
	}
	w.Line(format, args...)
}

// Block 写入一段已渲染的多行文本，每行按当前缩进对齐
func (w *codeWriter) Block(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line == "" {
			w.sb.WriteByte('\n')
			continue
		}
		w.Raw(line)
	}
}

func (w *codeWriter) String() string {
	return w.sb.String()
}
