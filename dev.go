package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/donutnomad/errcatch/internal/logger"
	"github.com/donutnomad/errcatch/plugin"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/tools/imports"
)

// DevOptions dev 命令选项
type DevOptions struct {
	Patterns []string      // 监听的路径模式
	Verbose  bool          // 详细输出
	Output   string        // 默认输出路径
	Async    bool          // 异步执行
	Debounce time.Duration // 防抖动时间
	Logger   *charmlog.Logger
}

// devRunner 处理文件变动的核心逻辑
type devRunner struct {
	opts     *DevOptions
	registry *plugin.Registry
	watcher  *fsnotify.Watcher
	scanner  *plugin.Scanner
	log      *charmlog.Logger
	ctx      context.Context // 用于响应退出信号

	// 防抖动相关
	mu          sync.Mutex
	pendingDirs map[string]*time.Timer // key: 包目录路径
	generate    func(pkgDir string)
}

// runDev 启动开发模式
func runDev(args []string) {
	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	log := logger.Default()
	if len(plugin.Global().Generators()) == 0 {
		log.Error("没有已注册的生成器")
		os.Exit(1)
	}

	opts := &DevOptions{
		Patterns: patterns,
		Verbose:  *verbose,
		Output:   defaultOutput(),
		Async:    *async,
		Debounce: 2 * time.Second,
		Logger:   log,
	}

	if err := dev(opts); err != nil {
		log.Error("开发模式退出", "err", err)
		os.Exit(1)
	}
}

// dev 启动开发模式
func dev(opts *DevOptions) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.OrDefault(opts.Logger)

	// 监听退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("正在退出...")
		cancel()
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	runner := newDevRunner(ctx, opts, plugin.Global(), watcher)
	defer runner.stop()

	dirs, err := collectWatchDirs(opts.Patterns)
	if err != nil {
		return fmt.Errorf("收集监听目录失败: %w", err)
	}
	if len(dirs) == 0 {
		return fmt.Errorf("没有找到需要监听的目录")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("添加监听目录失败 %s: %w", dir, err)
		}
		log.Debug("监听目录", "dir", dir)
	}

	log.Info("开发模式已启动，按 Ctrl+C 退出", "dirs", len(dirs))

	return runner.watchLoop(ctx)
}

func newDevRunner(ctx context.Context, opts *DevOptions, registry *plugin.Registry, watcher *fsnotify.Watcher) *devRunner {
	log := logger.OrDefault(opts.Logger)
	r := &devRunner{
		opts:     opts,
		registry: registry,
		watcher:  watcher,
		scanner: plugin.NewScanner(
			plugin.WithAnnotationFilter(registry.Annotations()...),
			plugin.WithScannerLogger(log),
		),
		log:         log,
		ctx:         ctx,
		pendingDirs: make(map[string]*time.Timer),
	}
	r.generate = r.runGenerate
	return r
}

// stop 退出时停止所有待处理的定时器
func (r *devRunner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, timer := range r.pendingDirs {
		timer.Stop()
	}
}

// watchLoop 事件处理循环
func (r *devRunner) watchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			r.handleEvent(event)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("监听错误", "err", err)
		}
	}
}

// handleEvent 处理文件事件，只关注手写 Go 文件的写入与创建
func (r *devRunner) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	filePath := event.Name
	if !plugin.IsSourceFile(filePath) {
		return
	}
	r.log.Debug("检测到文件变化", "file", filePath)

	hasAnnotation, err := r.scanner.QuickMatchFile(filePath)
	if err != nil {
		r.log.Debug("检查注解失败", "file", filePath, "err", err)
		return
	}
	if !hasAnnotation {
		r.log.Debug("跳过文件（无注解）", "file", filePath)
		return
	}

	if err := checkSyntax(filePath); err != nil {
		r.log.Warn("语法错误", "file", filePath, "err", err)
		return
	}

	r.scheduleGenerate(filepath.Dir(filePath))
}

// scheduleGenerate 同一包目录在防抖时间内的多次变化只触发一次生成
func (r *devRunner) scheduleGenerate(pkgDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timer, exists := r.pendingDirs[pkgDir]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(r.opts.Debounce, func() {
		// 先摘掉自己，生成期间到达的事件会重新计时
		r.mu.Lock()
		if r.pendingDirs[pkgDir] == timer {
			delete(r.pendingDirs, pkgDir)
		}
		r.mu.Unlock()

		if r.ctx.Err() != nil {
			return
		}
		r.generate(pkgDir)
	})
	r.pendingDirs[pkgDir] = timer
}

// runGenerate 只重新生成变动的包
func (r *devRunner) runGenerate(pkgDir string) {
	r.log.Debug("触发代码生成", "dir", pkgDir)

	stats, err := plugin.RunWithOptions(r.ctx, &plugin.RunOptions{
		Registry: r.registry,
		Patterns: []string{pkgDir},
		Verbose:  r.opts.Verbose,
		Output:   r.opts.Output,
		Async:    r.opts.Async,
		Logger:   r.log,
	})
	if err != nil {
		r.log.Error("生成失败", "dir", pkgDir, "err", err)
		return
	}

	if stats != nil && stats.FileCount > 0 {
		r.log.Info("生成完成", "files", stats.FileCount, "elapsed", stats.TotalDuration)
	} else {
		r.log.Debug("生成完成: 无文件生成", "dir", pkgDir)
	}
}

// checkSyntax 只检查语法，不修改 imports
func checkSyntax(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	_, err = imports.Process(filePath, content, &imports.Options{
		Fragment:   true,
		AllErrors:  true,
		Comments:   true,
		FormatOnly: true,
	})
	return err
}

// collectWatchDirs 收集所有需要监听的目录
func collectWatchDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		baseDir := strings.TrimSuffix(pattern, "/...")

		absDir, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absDir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			continue
		}

		if !recursive {
			add(absDir)
			continue
		}

		err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			// 与 go 工具一致：跳过隐藏目录、_ 开头的目录、vendor 和 testdata
			name := d.Name()
			if path != absDir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return dirs, nil
}
