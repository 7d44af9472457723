package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/donutnomad/errcatch/dartgen"
	"github.com/donutnomad/errcatch/gocatchgen"
	"github.com/donutnomad/errcatch/internal/logger"
	"github.com/donutnomad/errcatch/plugin"
	"github.com/samber/lo"
)

func init() {
	plugin.MustRegister(gocatchgen.NewGenerator())
}

var (
	verbose  = flag.Bool("v", false, "详细输出")
	help     = flag.Bool("h", false, "显示帮助信息")
	output   = flag.String("output", "", "默认输出路径（支持模板变量 $FILE, $PACKAGE, $STRUCT）")
	noOutput = flag.Bool("no-output", false, "忽略 -output，使用每个生成器自己的默认文件名")
	async    = flag.Bool("async", true, "异步执行生成器（默认 true）")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	logger.Init(logger.Verbose(*verbose))

	args := flag.Args()

	// 默认命令是 gen
	if len(args) == 0 {
		runGen([]string{"./..."})
		return
	}

	switch args[0] {
	case "gen":
		runGen(args[1:])
	case "dart":
		runDart(args[1:])
	case "dev":
		runDev(args[1:])
	default:
		// 不是子命令，当作路径参数处理，执行 gen
		runGen(args)
	}
}

// defaultOutput -no-output 时传空字符串，否则使用 -output 的值
func defaultOutput() string {
	if *noOutput {
		return ""
	}
	return *output
}

func runGen(args []string) {
	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	log := logger.Default()
	registry := plugin.Global()
	if len(registry.Generators()) == 0 {
		log.Error("没有已注册的生成器")
		os.Exit(1)
	}

	if *verbose {
		for _, gen := range registry.Generators() {
			anns := lo.Map(gen.Annotations(), func(item string, _ int) string {
				return "@" + item
			})
			log.Debug("已注册生成器", "name", gen.Name(), "annotations", strings.Join(anns, ","))
		}
	}

	stats, err := plugin.RunWithOptions(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: patterns,
		Verbose:  *verbose,
		Output:   defaultOutput(),
		Async:    *async,
		Logger:   log,
	})
	if err != nil {
		log.Error("生成失败", "err", err)
		os.Exit(1)
	}

	if stats != nil && (stats.FileCount > 0 || *verbose) {
		log.Info("完成",
			"targets", stats.TargetCount,
			"files", stats.FileCount,
			"scan", stats.ScanDuration,
			"generate", stats.GenerateDuration,
			"total", stats.TotalDuration,
		)
	}
}

func runDart(args []string) {
	fs := flag.NewFlagSet("dart", flag.ExitOnError)
	out := fs.String("out", dartgen.DefaultOutput, "输出路径模板（text/template + sprig，字段 .Source .Dir .Name）")
	check := fs.Bool("check", false, "只检查生成文件是否最新，输出 diff，不写入")
	workers := fs.Int("workers", 0, "并发数（默认 CPU 核数）")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "用法:\n  errcatch dart [选项] 清单文件...\n\n选项:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	log := logger.Default()
	manifests, err := expandManifests(fs.Args())
	if err != nil {
		log.Error("查找清单失败", "err", err)
		os.Exit(1)
	}
	if len(manifests) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	stats, err := dartgen.Run(context.Background(), &dartgen.Options{
		Manifests: manifests,
		Output:    *out,
		Check:     *check,
		Workers:   *workers,
		Logger:    log,
	})
	if err != nil {
		if errors.Is(err, dartgen.ErrOutdated) {
			log.Error("生成文件不是最新的，请重新运行 errcatch dart", "outdated", len(stats.Outdated))
		} else {
			log.Error("生成失败", "err", err)
		}
		os.Exit(1)
	}

	log.Info("完成",
		"manifests", stats.Manifests,
		"units", stats.Units,
		"written", len(stats.Written),
		"unchanged", len(stats.Unchanged),
		"elapsed", stats.Duration,
	)
}

// expandManifests 展开 glob 模式，保持参数顺序并去重
func expandManifests(args []string) ([]string, error) {
	var result []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("无效的模式 %s: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		result = append(result, matches...)
	}
	return lo.Uniq(result), nil
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `errcatch - 错误捕获包装方法生成工具

用法:
  errcatch [选项] [路径...]
  errcatch gen [选项] [路径...]
  errcatch dart [-out 模板] [-check] [-workers n] 清单...
  errcatch dev [选项] [路径...]

命令:
  gen     扫描 Go 源码生成 <方法>ErrorCatching 包装方法（默认）
  dart    根据 Dart 声明清单生成 extension part 文件
  dev     启动开发模式，监听文件变动自动生成

路径:
  支持 Go 包路径模式，如:
    ./...          递归扫描当前目录及子目录（默认）
    ./pkg/...      递归扫描指定目录

选项:
`)
	flag.PrintDefaults()

	registry := plugin.Global()
	if len(registry.Generators()) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "\n支持的注解:\n")
		_, _ = fmt.Fprint(os.Stderr, plugin.FormatHelpText(registry))
	}

	_, _ = fmt.Fprintf(os.Stderr, `模板变量:
  $FILE     - 源文件名（不含 .go 后缀）
  $PACKAGE  - 包名
  $STRUCT   - 结构体名（snake_case）

示例:
  errcatch                                    扫描当前目录（默认 ./...）
  errcatch -v ./internal/...                  详细模式扫描 internal 目录
  errcatch -output $FILE_catch ./...          指定输出文件名
  errcatch dart lib/**/*.catch.yaml           生成 Dart part 文件
  errcatch dart -check manifests/*.json       检查 Dart 生成文件是否最新
  errcatch dev ./...                          开发模式，监听文件变动
`)
}
