package gocatchgen

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/donutnomad/errcatch/internal/pkgresolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const errorTypesSource = `package errs

import "errors"

type ValueErr struct{}

func (ValueErr) Error() string { return "" }

type PtrErr struct{ msg string }

func (e *PtrErr) Error() string { return e.msg }

type Generic[T any] struct{ v T }

func (g *Generic[T]) Error() string { return "" }

type NotAnError struct{}

func (NotAnError) Error(code int) string { return "" }

type Temporary interface{ Temporary() bool }

type Embedded struct{ *PtrErr }

type Alias = PtrErr

type Defined PtrErr

var ErrSentinel = errors.New("sentinel")
`

func TestTypeIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errs.go"), []byte(errorTypesSource), 0644))
	// 测试文件与语法错误的文件不参与
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errs_test.go"), []byte("package errs\n\nfunc (Temporary) Error() string { return \"\" }\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package errs\n\ntype {"), 0644))

	idx := scanTypeIndex(dir)
	tests := []struct {
		name    string
		pointer bool
		want    bool
	}{
		{"ValueErr", false, true},
		{"ValueErr", true, true},
		{"PtrErr", false, false},
		{"PtrErr", true, true},
		{"Generic", true, true},
		{"Generic", false, false},
		{"NotAnError", false, false},
		{"Temporary", false, true},
		{"Temporary", true, false},
		{"Embedded", false, true},
		{"Alias", false, true},
		{"Defined", false, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, idx.errorTarget(tt.name, tt.pointer), "%s pointer=%v", tt.name, tt.pointer)
	}
	assert.False(t, idx.declared["ErrSentinel"])
}

func TestTypeChecker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n\ngo 1.24\n"), 0644))
	errsDir := filepath.Join(root, "errs")
	require.NoError(t, os.MkdirAll(errsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(errsDir, "errs.go"), []byte(errorTypesSource), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.go"), []byte(`package app

type LocalErr struct{}

func (*LocalErr) Error() string { return "" }
`), 0644))

	file, err := parser.ParseFile(token.NewFileSet(), "app.go", `package app

import (
	"io/fs"

	"example.com/app/errs"
	"example.com/vendor/unknown"
)
`, parser.ImportsOnly)
	require.NoError(t, err)
	resolver := pkgresolver.ForDir(root)
	imports := pkgresolver.FromFile(file, resolver)
	checker := newTypeChecker(resolver, root)

	tests := []struct {
		expr string
		want bool
	}{
		{"error", true},
		{"*error", false},
		{"any", true},
		{"int", false},
		{"[]byte", false},
		{"map[string]error", false},
		{"interface{ Timeout() bool }", true},
		{"*LocalErr", true},
		{"LocalErr", false},
		{"*errs.PtrErr", true},
		{"errs.PtrErr", false},
		{"errs.ValueErr", true},
		{"*errs.Generic[int]", true},
		{"*fs.PathError", true},
		{"fs.PathError", false},
		// 找不到源码或声明的类型放行
		{"unknown.Err", true},
		{"errs.Missing", true},
		{"Undeclared", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := parser.ParseExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, checker.errorTarget(expr, imports))
		})
	}
}
