package pkgresolver

import "sync"

// nameCache 导入路径到包名的并发安全缓存
// 同一次运行中多个文件的方法签名会反复引用同一批包
type nameCache struct {
	mu    sync.RWMutex
	names map[string]string
}

func newNameCache() *nameCache {
	return &nameCache{names: make(map[string]string)}
}

func (c *nameCache) get(importPath string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[importPath]
	return name, ok
}

func (c *nameCache) set(importPath, pkgName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[importPath] = pkgName
}

func (c *nameCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
