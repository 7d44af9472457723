package logger

import (
	"bytes"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf

	l := New(cfg)
	l.Debug("不应该输出")
	l.Info("生成文件", "path", "a_errcatch.go")

	out := buf.String()
	assert.NotContains(t, out, "不应该输出")
	assert.Contains(t, out, "errcatch")
	assert.Contains(t, out, "生成文件")
	assert.Contains(t, out, "path=a_errcatch.go")
}

func TestVerbose(t *testing.T) {
	assert.Equal(t, charmlog.DebugLevel, Verbose(true).Level)
	assert.Equal(t, charmlog.InfoLevel, Verbose(false).Level)
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: charmlog.InfoLevel, Output: &buf, JSON: true})
	l.Warn("跳过", "struct", "Foo")
	assert.Contains(t, buf.String(), `"struct":"Foo"`)
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, Default(), OrDefault(nil))
	d := Discard()
	assert.Same(t, d, OrDefault(d))
}
