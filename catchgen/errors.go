package catchgen

import (
	"errors"
	"fmt"
)

// ErrHardConfig 硬配置错误，整个生成单元必须中止
var ErrHardConfig = errors.New("error catching configuration error")

// ConfigError 描述某个方法上的配置错误
type ConfigError struct {
	Class  string // 类名，由 GenerateUnit 补齐
	Method string
	Field  string // 出错的指令字段，可能为空
	Reason string
}

func (e *ConfigError) Error() string {
	target := e.Method
	if e.Class != "" {
		target = e.Class + "." + e.Method
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: @%s.%s: %s", target, DirectiveName, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: @%s: %s", target, DirectiveName, e.Reason)
}

// Is 让 errors.Is(err, ErrHardConfig) 成立
func (e *ConfigError) Is(target error) bool {
	return target == ErrHardConfig
}

func configErrorf(method, field, format string, args ...any) *ConfigError {
	return &ConfigError{
		Method: method,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// withClass 为配置错误补齐类名
func withClass(err error, class string) error {
	var ce *ConfigError
	if errors.As(err, &ce) && ce.Class == "" {
		ce.Class = class
	}
	return err
}
