package plugin

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/donutnomad/errcatch/internal/logger"
	"github.com/donutnomad/errcatch/internal/utils"
	"github.com/donutnomad/gg"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
)

// GeneratedHeader 生成文件的头部注释
const GeneratedHeader = "Code generated by errcatch. DO NOT EDIT."

// Run 运行代码生成
// 1. 扫描指定路径的注解
// 2. 将目标分发给对应的生成器
// 3. 执行生成器
// 4. 合并同一文件的 gg 定义并写入文件
func Run(ctx context.Context, registry *Registry, patterns ...string) error {
	_, err := RunWithOptions(ctx, &RunOptions{
		Registry: registry,
		Patterns: patterns,
	})
	return err
}

// RunOptions 运行选项
type RunOptions struct {
	Registry *Registry
	Patterns []string
	Verbose  bool
	Output   string // 命令行指定的默认输出路径（最低优先级）
	Async    bool   // 是否并行执行生成器
	DryRun   bool   // 只生成不写入
	Logger   *charmlog.Logger
}

// RunStats 运行统计信息
type RunStats struct {
	ScanDuration     time.Duration // 扫描耗时
	GenerateDuration time.Duration // 生成耗时
	TotalDuration    time.Duration // 总耗时
	TargetCount      int           // 目标数量
	FileCount        int           // 生成文件数量
	Files            []string      // 生成（或 DryRun 时将要生成）的文件，已排序
}

// RunWithOptions 带选项运行并返回统计信息
// 所有生成器与写入错误都会被收集，最终以 *multierror.Error 返回
func RunWithOptions(ctx context.Context, opts *RunOptions) (*RunStats, error) {
	totalStart := time.Now()
	stats := &RunStats{}
	log := logger.OrDefault(opts.Logger)

	registry := opts.Registry
	if registry == nil {
		registry = globalRegistry
	}

	annotations := registry.Annotations()
	if len(annotations) == 0 {
		return nil, fmt.Errorf("没有已注册的生成器")
	}

	// 扫描
	scanStart := time.Now()
	scanner := NewScanner(
		WithAnnotationFilter(annotations...),
		WithScannerLogger(log),
	)
	result, err := scanner.Scan(ctx, opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("扫描失败: %w", err)
	}
	stats.ScanDuration = time.Since(scanStart)

	stats.TargetCount = len(result.All())
	if stats.TargetCount == 0 {
		log.Debug("没有找到任何带注解的目标")
		stats.TotalDuration = time.Since(totalStart)
		return stats, nil
	}
	log.Debug("扫描完成", "targets", stats.TargetCount, "elapsed", stats.ScanDuration)

	generateStart := time.Now()
	dispatch := registry.DispatchTargets(result)

	// 按优先级排序生成器名称（优先级数字越小越靠前）
	genNames := lo.Keys(dispatch)
	slices.SortFunc(genNames, func(a, b string) int {
		genA, _ := registry.GetByName(a)
		genB, _ := registry.GetByName(b)
		if c := cmp.Compare(genA.Priority(), genB.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var errs *multierror.Error

	// 先串行解析所有目标的参数（避免并发修改共享数据）
	for _, genName := range genNames {
		gen, _ := registry.GetByName(genName)
		for _, target := range dispatch[genName] {
			if err := bindParams(gen, target); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", targetLabel(target.Target), err))
			}
		}
	}

	type genResultItem struct {
		genName string
		result  *GenerateResult
		err     error
	}

	executeGenerator := func(genName string) genResultItem {
		gen, _ := registry.GetByName(genName)
		targets := dispatch[genName]
		genLog := log.With("generator", genName)

		genLog.Debug("执行生成器", "targets", len(targets))
		start := time.Now()
		genResult, err := gen.Generate(&GenerateContext{
			Targets:        targets,
			PackageConfigs: result.PackageConfigs,
			DefaultOutput:  opts.Output,
			Verbose:        opts.Verbose,
			Logger:         genLog,
		})
		genLog.Debug("生成器完成", "elapsed", time.Since(start))

		return genResultItem{genName: genName, result: genResult, err: err}
	}

	genResults := make(map[string]*GenerateResult)
	collect := func(item genResultItem) {
		if item.err != nil {
			errs = multierror.Append(errs, fmt.Errorf("生成器 %s 执行失败: %w", item.genName, item.err))
			return
		}
		if item.result != nil {
			genResults[item.genName] = item.result
		}
	}

	if opts.Async {
		resultChan := make(chan genResultItem, len(genNames))
		var wg sync.WaitGroup
		for _, genName := range genNames {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resultChan <- executeGenerator(genName)
			}()
		}
		wg.Wait()
		close(resultChan)
		for item := range resultChan {
			collect(item)
		}
	} else {
		for _, genName := range genNames {
			collect(executeGenerator(genName))
		}
	}

	// 按优先级顺序收集 gg 定义，按输出文件分组
	fileDefinitions := make(map[string][]*gg.Generator)
	fileGenNames := make(map[string][]string)
	for _, genName := range genNames {
		genResult, ok := genResults[genName]
		if !ok {
			continue
		}

		for _, path := range sortedKeys(genResult.Definitions) {
			fileDefinitions[path] = append(fileDefinitions[path], genResult.Definitions[path])
			fileGenNames[path] = append(fileGenNames[path], genName)
		}

		for _, e := range genResult.Errors {
			errs = multierror.Append(errs, e)
		}
	}

	for _, path := range sortedKeys(fileDefinitions) {
		merged, err := mergeDefinitionsWithSeparator(fileDefinitions[path], fileGenNames[path])
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("合并文件 %s 的定义失败: %w", path, err))
			continue
		}

		if opts.DryRun {
			stats.Files = append(stats.Files, path)
			continue
		}
		if err := utils.WriteFormat(path, merged.Bytes()); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("写入文件 %s 失败: %w", path, err))
			continue
		}
		stats.FileCount++
		stats.Files = append(stats.Files, path)
		log.Info("生成文件", "path", path)
	}

	stats.GenerateDuration = time.Since(generateStart)
	stats.TotalDuration = time.Since(totalStart)

	return stats, errs.ErrorOrNil()
}

// bindParams 将目标上属于该生成器的第一个注解解析到参数结构体中
func bindParams(gen Generator, target *AnnotatedTarget) error {
	paramsProto := gen.NewParams()
	if paramsProto == nil {
		return nil
	}

	targetAnn, ok := lo.Find(target.Annotations, func(ann *Annotation) bool {
		return slices.Contains(gen.Annotations(), ann.Name)
	})
	if !ok {
		return nil
	}

	val := reflect.ValueOf(paramsProto)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("NewParams() 必须返回指针类型, 得到: %T", paramsProto)
	}
	if err := ParseAnnotationParams(targetAnn, paramsProto, gen.ParamDefs()); err != nil {
		return fmt.Errorf("解析参数失败: %w", err)
	}
	target.ParsedParams = val.Elem().Interface()
	return nil
}

func targetLabel(t *Target) string {
	if t.Kind == TargetMethod {
		return fmt.Sprintf("%s (%s).%s", filepath.Base(t.FilePath), t.ReceiverType, t.Name)
	}
	return fmt.Sprintf("%s %s", filepath.Base(t.FilePath), t.Name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

// mergeDefinitionsWithSeparator 合并多个 gg.Generator 定义到一个文件
// 多个生成器写入同一文件时，在各自内容前添加分隔注释
func mergeDefinitionsWithSeparator(definitions []*gg.Generator, genNames []string) (*gg.Generator, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("没有定义需要合并")
	}

	merged := gg.New()
	merged.SetHeader(GeneratedHeader)

	var pkgName string
	for _, def := range definitions {
		name := def.PackageName()
		if name == "" {
			continue
		}
		if pkgName == "" {
			pkgName = name
		} else if pkgName != name {
			return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, name)
		}
	}
	if pkgName != "" {
		merged.SetPackage(pkgName)
	}

	// 不要手动收集 imports，Merge 会正确处理 imports 和别名
	for i, def := range definitions {
		if len(definitions) > 1 {
			genName := "unknown"
			if i < len(genNames) {
				genName = genNames[i]
			}
			merged.Body().AddLine()
			merged.Body().AddString(fmt.Sprintf("// ================ %s ================", genName))
			merged.Body().AddLine()
		}
		merged.Merge(def)
	}

	return merged, nil
}

// GetOutputPath 根据注解参数和默认规则计算输出路径
// 优先级：注解参数 > 包级插件配置 > 包级默认配置 > 命令行参数 > 默认文件名
// 模板变量：
//   - $FILE: 源文件名（不含 .go 后缀）
//   - $PACKAGE: 包名
//   - $STRUCT: 目标名的蛇形形式
func GetOutputPath(target *Target, ann *Annotation, defaultFileName string, pkgConfig *PackageConfig, pluginName string, cmdOutput string) string {
	var output string
	if ann != nil {
		output = ann.GetParam("output")
	}
	if output == "" && pkgConfig != nil {
		output = pkgConfig.GetPluginOutput(strings.ToLower(pluginName))
	}
	if output == "" {
		output = cmdOutput
	}
	if output == "" {
		return GetDefaultOutputPath(target, defaultFileName)
	}

	output = replaceTemplateVars(output, target)
	if !strings.HasSuffix(output, ".go") {
		output += ".go"
	}
	if filepath.IsAbs(output) {
		return output
	}
	// 相对于源文件目录
	return filepath.Join(filepath.Dir(target.FilePath), output)
}

// replaceTemplateVars 替换模板变量
func replaceTemplateVars(template string, target *Target) string {
	fileName := strings.TrimSuffix(filepath.Base(target.FilePath), ".go")
	return strings.NewReplacer(
		"$FILE", fileName,
		"$PACKAGE", target.PackageName,
		"$STRUCT", utils.ToSnakeCase(target.Name),
	).Replace(template)
}

// GetDefaultOutputPath 获取默认输出路径，相对于源文件目录
func GetDefaultOutputPath(target *Target, defaultFileName string) string {
	if defaultFileName == "" {
		defaultFileName = "generate.go"
	}
	return filepath.Join(filepath.Dir(target.FilePath), replaceTemplateVars(defaultFileName, target))
}
