package catchgen

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Engine 错误捕获包装方法生成引擎
// Engine 只持有不可变配置，可以被多个 goroutine 同时使用
type Engine struct {
	resolver    ConstantResolver
	dialect     Dialect
	directive   Symbol
	suffix      string
	concurrency int
}

// Option 引擎选项
type Option func(*Engine)

// WithDialect 设置目标方言，默认 DartDialect
func WithDialect(d Dialect) Option {
	return func(e *Engine) {
		if d != nil {
			e.dialect = d
		}
	}
}

// WithDirective 设置识别的方法级指令符号
func WithDirective(symbol Symbol) Option {
	return func(e *Engine) {
		e.directive = symbol
	}
}

// WithSuffix 设置包装方法名后缀，默认 ErrorCatching
func WithSuffix(suffix string) Option {
	return func(e *Engine) {
		if suffix != "" {
			e.suffix = suffix
		}
	}
}

// WithConcurrency 设置 GenerateUnits 的并发度
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New 创建引擎
func New(resolver ConstantResolver, opts ...Option) *Engine {
	e := &Engine{
		resolver:    resolver,
		dialect:     DartDialect{},
		directive:   DirectiveSymbol(DefaultLibrary),
		suffix:      DefaultSuffix,
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dialect 返回引擎使用的方言
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// Directive 返回引擎识别的指令符号
func (e *Engine) Directive() Symbol {
	return e.directive
}

// GenerateUnit 为一个类生成代码单元
// 类中没有带指令的方法时返回 (nil, nil)；任何硬错误都会中止整个单元，不会产生部分输出
func (e *Engine) GenerateUnit(ctx context.Context, class *ClassDeclaration) (*Unit, error) {
	if class == nil {
		return nil, nil
	}

	methods := FindAnnotatedMethods(class, e.directive)
	if len(methods) == 0 {
		return nil, nil
	}

	if err := e.dialect.ValidateClass(class.Name); err != nil {
		return nil, err
	}

	rendered := make([]RenderedMethod, 0, len(methods))
	for _, method := range methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.dialect.ValidateMethod(method); err != nil {
			return nil, withClass(err, class.Name)
		}

		catchers, err := e.ExtractCatchers(ctx, method)
		if err != nil {
			return nil, withClass(err, class.Name)
		}
		useLogging, err := e.ExtractUseLogging(ctx, method)
		if err != nil {
			return nil, withClass(err, class.Name)
		}

		req := e.request(method, catchers, class.Name, useLogging)
		if err := e.dialect.ValidateBindings(req); err != nil {
			return nil, withClass(err, class.Name)
		}
		rendered = append(rendered, e.render(req))
	}

	return e.Emit(class.Name, rendered), nil
}

// GenerateUnits 并行处理多个类，结果顺序与输入一致
// 没有生成单元的类对应位置为 nil；第一个错误会取消其余任务
func (e *Engine) GenerateUnits(ctx context.Context, classes []*ClassDeclaration) ([]*Unit, error) {
	units := make([]*Unit, len(classes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, class := range classes {
		g.Go(func() error {
			unit, err := e.GenerateUnit(gctx, class)
			if err != nil {
				name := "<nil>"
				if class != nil {
					name = class.Name
				}
				return fmt.Errorf("生成 %s 失败: %w", name, err)
			}
			units[i] = unit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}
