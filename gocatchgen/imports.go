package gocatchgen

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/donutnomad/errcatch/catchgen"
	"github.com/donutnomad/errcatch/internal/pkgresolver"
)

// fileImports 一个输出文件的导入表，每个路径只有一个导入名
// 多个结构体共享输出文件时，同名不同路径的导入依次改名为 name2、name3
type fileImports struct {
	byName map[string]string // 导入名 → 路径
	byPath map[string]string // 路径 → 导入名
	used   map[string]bool
}

// newFileImports 生成代码自身的导入预先占位
func newFileImports(reserved ...catchgen.Import) *fileImports {
	f := &fileImports{
		byName: make(map[string]string),
		byPath: make(map[string]string),
		used:   make(map[string]bool),
	}
	for _, imp := range reserved {
		f.byName[imp.Alias] = imp.Path
		f.byPath[imp.Path] = imp.Alias
	}
	return f
}

// assign 为结构体引用的源文件导入分配文件内的名字
// 返回 源文件限定符 → 文件内导入名 的改写表，名字不变的不在表中
func (f *fileImports) assign(imports []pkgresolver.Import) map[string]string {
	rename := make(map[string]string)
	for _, imp := range imports {
		name, ok := f.byPath[imp.Path]
		if !ok {
			name = imp.Name
			for i := 2; f.taken(name); i++ {
				name = fmt.Sprintf("%s%d", imp.Name, i)
			}
			f.byName[name] = imp.Path
			f.byPath[imp.Path] = name
		}
		if name != imp.Name {
			rename[imp.Name] = name
		}
	}
	return rename
}

func (f *fileImports) taken(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// use 记录成功生成的结构体用到的导入
func (f *fileImports) use(imports []pkgresolver.Import) {
	for _, imp := range imports {
		f.used[imp.Path] = true
	}
}

// imports 返回被使用的导入，按路径排序
func (f *fileImports) imports() []pkgresolver.Import {
	result := make([]pkgresolver.Import, 0, len(f.used))
	for path := range f.used {
		result = append(result, pkgresolver.Import{Path: path, Name: f.byPath[path]})
	}
	slices.SortFunc(result, func(a, b pkgresolver.Import) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return result
}
