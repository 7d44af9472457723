package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/donutnomad/errcatch/gocatchgen"
	"github.com/donutnomad/errcatch/internal/logger"
	"github.com/donutnomad/errcatch/plugin"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectWatchDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"a/b", ".git", "_examples/x", "vendor/y", "testdata", "c"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0755))
	}

	dirs, err := collectWatchDirs([]string{root + "/...", filepath.Join(root, "c")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "c"),
	}, dirs)

	_, err = collectWatchDirs([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

// newTestRunner 创建一个带注解源文件的目录与 devRunner
func newTestRunner(t *testing.T, debounce time.Duration) (*devRunner, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "repo.go")
	require.NoError(t, os.WriteFile(src, []byte(`package repo

// @GenerateErrorCatching
type Repo struct{}

// @ErrorCatching
func (r *Repo) Do() {}
`), 0644))

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(gocatchgen.NewGenerator()))

	runner := newDevRunner(context.Background(), &DevOptions{
		Debounce: debounce,
		Logger:   logger.Discard(),
	}, registry, nil)
	t.Cleanup(runner.stop)
	return runner, src
}

func pendingDirs(r *devRunner) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pendingDirs)
}

func TestDevRunnerDebounce(t *testing.T) {
	runner, src := newTestRunner(t, 20*time.Millisecond)
	dir := filepath.Dir(src)
	plain := filepath.Join(dir, "plain.go")
	require.NoError(t, os.WriteFile(plain, []byte("package repo\n"), 0644))

	var mu sync.Mutex
	var calls []string
	done := make(chan struct{}, 4)
	runner.generate = func(pkgDir string) {
		mu.Lock()
		calls = append(calls, pkgDir)
		mu.Unlock()
		done <- struct{}{}
	}

	for range 3 {
		runner.handleEvent(fsnotify.Event{Name: src, Op: fsnotify.Write})
	}
	// 没有注解、生成文件、删除事件都不触发
	runner.handleEvent(fsnotify.Event{Name: plain, Op: fsnotify.Write})
	runner.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "repo_errcatch.go"), Op: fsnotify.Create})
	runner.handleEvent(fsnotify.Event{Name: src, Op: fsnotify.Remove})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("防抖后没有触发生成")
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{dir}, calls)
	assert.Zero(t, pendingDirs(runner))
}

// TestDevRunnerEventDuringGenerate 生成期间到达的事件仍然受防抖控制
func TestDevRunnerEventDuringGenerate(t *testing.T) {
	runner, src := newTestRunner(t, 100*time.Millisecond)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{}, 4)
	runner.generate = func(string) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		done <- struct{}{}
	}

	event := fsnotify.Event{Name: src, Op: fsnotify.Write}
	runner.handleEvent(event)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("没有触发生成")
	}

	// 第一次生成还没结束时又有变化
	runner.handleEvent(event)
	require.Equal(t, 1, pendingDirs(runner))
	close(release)
	<-done
	time.Sleep(20 * time.Millisecond)

	// 新事件必须取消上一个尚未触发的定时器
	require.Equal(t, 1, pendingDirs(runner))
	runner.handleEvent(event)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("第二次生成没有触发")
	}
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, pendingDirs(runner))
}
