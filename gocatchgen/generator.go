package gocatchgen

import (
	"context"
	"fmt"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/donutnomad/errcatch/catchgen"
	"github.com/donutnomad/errcatch/internal/pkgresolver"
	"github.com/donutnomad/errcatch/plugin"
	"github.com/donutnomad/gg"
)

const generatorName = "errcatch"

// defaultFileName 未指定 output 时的输出文件名
const defaultFileName = "$FILE_errcatch.go"

// CatchParams @GenerateErrorCatching 支持的参数
type CatchParams struct {
	Output string `param:"name=output,required=false,default=,description=输出文件路径"`
	Suffix string `param:"name=suffix,required=false,default=ErrorCatching,description=包装方法名后缀"`
}

// Generator 为 @GenerateErrorCatching 结构体上带 @ErrorCatching 的方法生成包装方法
type Generator struct {
	plugin.BaseGenerator
}

func NewGenerator() *Generator {
	gen := &Generator{
		BaseGenerator: *plugin.NewBaseGeneratorWithParamsStruct(
			generatorName,
			[]string{catchgen.MarkerName, catchgen.DirectiveName},
			[]plugin.TargetKind{plugin.TargetStruct, plugin.TargetMethod},
			CatchParams{},
		),
	}
	gen.SetPriority(10)
	return gen
}

// classJob 一个待生成的结构体
type classJob struct {
	class    *classInfo
	params   CatchParams
	resolver *pkgresolver.Resolver
	types    *typeChecker
}

// Generate 执行代码生成
// 单个结构体失败只记录错误，不影响其它结构体的输出
func (g *Generator) Generate(ctx *plugin.GenerateContext) (*plugin.GenerateResult, error) {
	result := plugin.NewGenerateResult()
	log := ctx.Log()

	if len(ctx.Targets) == 0 {
		return result, nil
	}

	classes, skipped := collectClasses(ctx.Targets)
	for _, m := range skipped {
		log.Warn("方法所在类型没有 @GenerateErrorCatching 标记，已忽略",
			"method", m.Target.ReceiverType+"."+m.Target.Name, "file", m.Target.FilePath)
		result.Skipped++
	}

	// 按输出文件分组，同一文件的结构体共用一张导入表
	var outputs []string
	groups := make(map[string][]*classJob)
	resolvers := make(map[string]*pkgresolver.Resolver)
	checkers := make(map[string]*typeChecker)
	for _, c := range classes {
		params, err := structParams(c.marker)
		if err != nil {
			result.AddError(err)
			continue
		}
		if ctx.Verbose {
			log.Debug("结构体参数", "struct", c.marker.Target.Name, "params", spew.Sdump(params))
		}

		dir := filepath.Dir(c.marker.Target.FilePath)
		resolver, ok := resolvers[dir]
		if !ok {
			resolver = pkgresolver.ForDir(dir)
			resolvers[dir] = resolver
			checkers[dir] = newTypeChecker(resolver, dir)
		}

		ann := plugin.GetAnnotation(c.marker.Annotations, catchgen.MarkerName)
		outputPath := plugin.GetOutputPath(c.marker.Target, ann, defaultFileName,
			ctx.GetPackageConfig(dir), g.Name(), ctx.DefaultOutput)
		if _, ok := groups[outputPath]; !ok {
			outputs = append(outputs, outputPath)
		}
		groups[outputPath] = append(groups[outputPath], &classJob{
			class:    c,
			params:   params,
			resolver: resolver,
			types:    checkers[dir],
		})
	}

	for _, outputPath := range outputs {
		if def := generateFile(groups[outputPath], outputPath, result, log); def != nil {
			result.AddDefinition(outputPath, def)
		}
	}
	return result, nil
}

// generateFile 生成一个输出文件中的全部结构体，没有任何输出时返回 nil
func generateFile(jobs []*classJob, outputPath string, result *plugin.GenerateResult, log *charmlog.Logger) *gg.Generator {
	imports := newFileImports(catchgen.GoImports()...)
	var units []*catchgen.Unit
	for _, job := range jobs {
		c := job.class
		sourceImports := c.sourceImports(job.resolver)
		rename := imports.assign(sourceImports)
		if len(rename) > 0 {
			log.Debug("导入改名", "struct", c.marker.Target.Name, "rename", rename, "output", outputPath)
		}

		decl := c.declaration(job.resolver, rename, job.types)
		engine := catchgen.New(commentResolver{},
			catchgen.WithDialect(catchgen.GoDialect{}),
			catchgen.WithDirective(catchgen.DirectiveSymbol(catchgen.GoLibrary)),
			catchgen.WithSuffix(job.params.Suffix),
		)

		unit, err := engine.GenerateUnit(context.Background(), decl)
		if err != nil {
			result.AddError(fmt.Errorf("%s: %w", c.marker.Target.FilePath, err))
			continue
		}
		if unit == nil {
			log.Debug("结构体没有带 @ErrorCatching 的方法", "struct", decl.Name)
			result.Skipped++
			continue
		}

		imports.use(sourceImports)
		units = append(units, unit)
		log.Debug("生成包装方法", "struct", decl.Name, "methods", unit.Methods, "output", outputPath)
	}

	if len(units) == 0 {
		return nil
	}
	return buildDefinition(jobs[0].class.marker.Target.PackageName, units, imports.imports())
}

// structParams 读取 Run 阶段解析好的结构体参数
func structParams(target *plugin.AnnotatedTarget) (CatchParams, error) {
	params := CatchParams{Suffix: catchgen.DefaultSuffix}
	if target.ParsedParams == nil {
		return params, nil
	}
	parsed, ok := target.ParsedParams.(CatchParams)
	if !ok {
		return params, fmt.Errorf("ParsedParams 类型断言失败: %T", target.ParsedParams)
	}
	if parsed.Suffix == "" {
		parsed.Suffix = catchgen.DefaultSuffix
	}
	return parsed, nil
}

// buildDefinition 把同一输出文件的生成单元包装为 gg 定义
// 生成代码自身的标准库导入带固定别名，源文件导入使用导入表分配的名字
func buildDefinition(pkgName string, units []*catchgen.Unit, imports []pkgresolver.Import) *gg.Generator {
	gen := gg.New()
	gen.SetPackage(pkgName)
	for _, unit := range units {
		for _, imp := range unit.Imports {
			gen.PAlias(imp.Path, imp.Alias)
		}
	}
	// 总是显式指定导入名，gg 只在与路径最后一段不同时写出别名
	for _, imp := range imports {
		gen.PAlias(imp.Path, imp.Name)
	}
	for i, unit := range units {
		if i > 0 {
			gen.Body().AddLine()
		}
		gen.Body().AddString(unit.Text)
	}
	return gen
}
