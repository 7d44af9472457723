// Package dartgen 根据 Dart 声明清单生成 ErrorCatching extension 的 part 文件
package dartgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	charmlog "github.com/charmbracelet/log"
	"github.com/donutnomad/errcatch/catchgen"
	"github.com/donutnomad/errcatch/internal/logger"
	"github.com/donutnomad/errcatch/internal/manifest"
	"github.com/donutnomad/errcatch/internal/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// GeneratedHeader Dart 生成文件的头部注释
const GeneratedHeader = "// GENERATED CODE - DO NOT MODIFY BY HAND"

// DefaultOutput 默认输出路径模板
const DefaultOutput = "{{.Dir}}/{{.Name}}.catch.g.dart"

// ErrOutdated -check 模式下存在需要重新生成的文件
var ErrOutdated = errors.New("生成文件已过期")

// Options 运行选项
type Options struct {
	Manifests []string
	Output    string // 输出路径模板，可使用 sprig 函数
	Check     bool   // 只比较不写入
	Workers   int    // 并发读取清单与生成的数量
	Logger    *charmlog.Logger
	Diff      io.Writer // -check 时输出 diff，默认 stdout
}

// Stats 运行统计信息
type Stats struct {
	Duration  time.Duration
	Manifests int
	Units     int
	Written   []string // 内容有变化并已写入的文件
	Unchanged []string
	Outdated  []string // -check 时与磁盘不一致的文件
}

// PathData 输出路径模板可用的字段
type PathData struct {
	Source string // Dart 源文件路径
	Dir    string // 源文件所在目录
	Name   string // 源文件名，不含 .dart
}

type loaded struct {
	manifest *manifest.Manifest
	err      error
}

// Run 读取清单、生成 part 文件并写入
// 单个清单失败不影响其它清单，所有错误以 *multierror.Error 返回
func Run(ctx context.Context, opts *Options) (*Stats, error) {
	start := time.Now()
	log := logger.OrDefault(opts.Logger)
	stats := &Stats{}

	outTmpl, err := parseOutput(opts.Output)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := loadManifests(ctx, opts.Manifests, workers)
	stats.Manifests = len(results)

	engine := catchgen.New(manifest.Resolver{},
		catchgen.WithDialect(catchgen.DartDialect{}),
		catchgen.WithConcurrency(workers),
	)

	var errs *multierror.Error
	for i, r := range results {
		path := opts.Manifests[i]
		if r.err != nil {
			errs = multierror.Append(errs, r.err)
			continue
		}

		content, units, err := render(ctx, engine, r.manifest, outTmpl)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if units == 0 {
			log.Debug("清单中没有需要生成的类", "manifest", path)
			continue
		}
		stats.Units += units

		out := content.path
		if opts.Check {
			diff, err := diffFile(out, content.text)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			if diff == "" {
				stats.Unchanged = append(stats.Unchanged, out)
				continue
			}
			stats.Outdated = append(stats.Outdated, out)
			w := opts.Diff
			if w == nil {
				w = os.Stdout
			}
			fmt.Fprint(w, diff)
			continue
		}

		written, err := utils.WriteIfChanged(out, []byte(content.text))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("写入文件 %s 失败: %w", out, err))
			continue
		}
		if written {
			stats.Written = append(stats.Written, out)
			log.Info("生成文件", "path", out)
		} else {
			stats.Unchanged = append(stats.Unchanged, out)
			log.Debug("文件内容未变化", "path", out)
		}
	}

	if len(stats.Outdated) > 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: %s", ErrOutdated, strings.Join(stats.Outdated, ", ")))
	}
	stats.Duration = time.Since(start)
	return stats, errs.ErrorOrNil()
}

// loadManifests 并发读取清单，结果顺序与输入一致
func loadManifests(ctx context.Context, paths []string, workers int) []loaded {
	results := make([]loaded, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = loaded{err: err}
				return nil
			}
			m, err := manifest.Load(path)
			results[i] = loaded{manifest: m, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func parseOutput(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultOutput
	}
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("解析输出路径模板失败: %w", err)
	}
	return tmpl, nil
}

// OutputPath 计算源文件对应的输出路径
func OutputPath(tmpl *template.Template, source string) (string, error) {
	data := PathData{
		Source: source,
		Dir:    filepath.Dir(source),
		Name:   strings.TrimSuffix(filepath.Base(source), ".dart"),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("执行输出路径模板失败: %w", err)
	}
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", fmt.Errorf("输出路径为空: %s", source)
	}
	return filepath.Clean(filepath.FromSlash(out)), nil
}

type partFile struct {
	path string
	text string
}

// render 生成一个清单对应的 part 文件内容，返回生成的单元数
func render(ctx context.Context, engine *catchgen.Engine, m *manifest.Manifest, tmpl *template.Template) (*partFile, int, error) {
	classes, err := m.Declarations()
	if err != nil {
		return nil, 0, err
	}
	// 只为带 @GenerateErrorCatching 的类生成
	marker := catchgen.MarkerSymbol(catchgen.DefaultLibrary)
	classes = lo.Filter(classes, func(c *catchgen.ClassDeclaration, _ int) bool {
		return catchgen.IsMarked(c, marker)
	})
	units, err := engine.GenerateUnits(ctx, classes)
	if err != nil {
		return nil, 0, err
	}

	var texts []string
	for _, u := range units {
		if u != nil {
			texts = append(texts, u.Text)
		}
	}
	if len(texts) == 0 {
		return nil, 0, nil
	}

	out, err := OutputPath(tmpl, m.Source)
	if err != nil {
		return nil, 0, err
	}
	partOf, err := filepath.Rel(filepath.Dir(out), m.Source)
	if err != nil {
		return nil, 0, fmt.Errorf("计算 part of 路径失败: %w", err)
	}

	var b strings.Builder
	b.WriteString(GeneratedHeader + "\n\n")
	fmt.Fprintf(&b, "part of '%s';\n\n", filepath.ToSlash(partOf))
	b.WriteString(strings.Join(texts, "\n"))
	return &partFile{path: out, text: b.String()}, len(texts), nil
}

// diffFile 返回磁盘内容到新内容的 unified diff，相同时返回空串
func diffFile(path, content string) (string, error) {
	old, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	if string(old) == content {
		return "", nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(content),
		FromFile: path,
		ToFile:   path + " (generated)",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("生成 %s 的 diff 失败: %w", path, err)
	}
	return diff, nil
}
