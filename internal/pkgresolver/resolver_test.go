package pkgresolver

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newModule 在临时目录中创建一个模块
// files: 相对路径 → 内容
func newModule(t *testing.T, modulePath string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	files["go.mod"] = "module " + modulePath + "\n\ngo 1.24\n"
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func TestStdLib_IsStdLib(t *testing.T) {
	std := DefaultStdLib()

	tests := []struct {
		importPath string
		want       bool
	}{
		{"fmt", true},
		{"io/fs", true},
		{"net/http", true},
		{"encoding/json", true},
		{"github.com/samber/lo", false},
		{"gopkg.in/yaml.v3", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.importPath, func(t *testing.T) {
			assert.Equal(t, tt.want, std.IsStdLib(tt.importPath))
		})
	}
}

func TestResolver_StdLib(t *testing.T) {
	r := NewResolver("")

	assert.Equal(t, "fmt", r.GetPackageName("fmt"))
	assert.Equal(t, "fs", r.GetPackageName("io/fs"))
	assert.Equal(t, "json", r.GetPackageName("encoding/json"))
	assert.Equal(t, "", r.GetPackageName(""))
	assert.True(t, r.IsStdLib("errors"))
}

func TestResolver_ProjectInternal(t *testing.T) {
	root := newModule(t, "example.com/shop", map[string]string{
		"store/store.go":      "package store\n",
		"store/store_test.go": "package store_test\n",
		// 目录名与包名不一致
		"internal/gg/g.go": "package g2\n",
	})

	r := ForDir(filepath.Join(root, "store"))
	assert.Equal(t, "example.com/shop", r.ModulePath())
	assert.Equal(t, "store", r.GetPackageName("example.com/shop/store"))
	assert.Equal(t, "g2", r.GetPackageName("example.com/shop/internal/gg"))
	// 不存在的包按路径推断
	assert.Equal(t, "missing", r.GetPackageName("example.com/shop/missing"))

	dir, ok := r.PackageDir("example.com/shop/internal/gg")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "internal", "gg"), dir)

	dir, ok = r.PackageDir("io/fs")
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "fs.go"))
}

func TestResolver_Cache(t *testing.T) {
	root := newModule(t, "example.com/shop", map[string]string{
		"store/store.go": "package store\n",
	})

	r := NewResolver(root)
	assert.Equal(t, "store", r.GetPackageName("example.com/shop/store"))
	assert.Equal(t, 1, r.cache.len())

	// 缓存命中后不再读盘
	require.NoError(t, os.RemoveAll(filepath.Join(root, "store")))
	assert.Equal(t, "store", r.GetPackageName("example.com/shop/store"))
}

func TestAssumedPackageName(t *testing.T) {
	tests := []struct {
		importPath string
		want       string
	}{
		{"fmt", "fmt"},
		{"github.com/samber/lo", "lo"},
		{"gopkg.in/yaml.v3", "yaml"},
		{"github.com/goccy/go-yaml", "yaml"},
		{"github.com/mattn/go-runewidth", "runewidth"},
		{"github.com/hashicorp/go-multierror", "multierror"},
		{"github.com/Masterminds/sprig/v3", "sprig"},
		{"github.com/charmbracelet/log", "log"},
	}
	for _, tt := range tests {
		t.Run(tt.importPath, func(t *testing.T) {
			assert.Equal(t, tt.want, AssumedPackageName(tt.importPath))
		})
	}
}

func TestFindModuleRoot(t *testing.T) {
	root := newModule(t, "example.com/shop", map[string]string{
		"a/b/c.go": "package b\n",
	})

	found, err := FindModuleRoot(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, root, found)

	path, err := ReadModulePath(filepath.Join(root, "go.mod"))
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop", path)

	_, err = ReadModulePath(filepath.Join(root, "a", "b", "c.go"))
	assert.Error(t, err)
}

func TestReadPackageName(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadPackageName(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package other_test\n"), 0644))
	_, err = ReadPackageName(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.go"), []byte("package real\n"), 0644))
	name, err := ReadPackageName(dir)
	require.NoError(t, err)
	assert.Equal(t, "real", name)
}

func TestEscapeModulePath(t *testing.T) {
	assert.Equal(t, "github.com/!burnt!sushi/toml", escapeModulePath("github.com/BurntSushi/toml"))
	assert.Equal(t, "github.com/samber/lo", escapeModulePath("github.com/samber/lo"))
}

func TestImportMap(t *testing.T) {
	root := newModule(t, "example.com/shop", map[string]string{
		"internal/gg/g.go": "package g2\n",
	})
	src := `package store

import (
	"io/fs"
	stdjson "encoding/json"
	"example.com/shop/internal/gg"
	. "strings"
	_ "embed"
)
`
	file, err := parser.ParseFile(token.NewFileSet(), "store.go", src, parser.ImportsOnly)
	require.NoError(t, err)

	m := FromFile(file, NewResolver(root))
	assert.Equal(t, 3, m.Len())

	imp, ok := m.Lookup("stdjson")
	require.True(t, ok)
	assert.Equal(t, Import{Path: "encoding/json", Alias: "stdjson", Name: "stdjson"}, imp)

	imp, ok = m.Lookup("g2")
	require.True(t, ok)
	assert.Equal(t, "example.com/shop/internal/gg", imp.Path)
	assert.Equal(t, "g2", imp.Name)

	imp, ok = m.Lookup("fs")
	require.True(t, ok)
	assert.Equal(t, Import{Path: "io/fs", Name: "fs"}, imp)

	_, ok = m.Lookup("strings")
	assert.False(t, ok)

	imports, err := m.Resolve("*fs.PathError", "map[string]stdjson.RawMessage", "func(fs.FS) g2.Type", "int")
	require.NoError(t, err)
	assert.Equal(t, []string{"encoding/json", "example.com/shop/internal/gg", "io/fs"},
		[]string{imports[0].Path, imports[1].Path, imports[2].Path})

	_, err = m.Resolve("*os.PathError")
	assert.ErrorContains(t, err, "os")

	_, err = m.Resolve("map[")
	assert.Error(t, err)

	assert.Equal(t, 0, FromFile(nil, nil).Len())
}

func TestQualifiers(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"int", nil},
		{"*fs.PathError", []string{"fs"}},
		{"[]*json.SyntaxError", []string{"json"}},
		{"map[uuid.UUID]time.Time", []string{"uuid", "time"}},
		{"func(context.Context, ...fs.FS) error", []string{"context", "fs"}},
		{"Result[fs.FileInfo, fs.FileInfo]", []string{"fs"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Qualifiers(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
