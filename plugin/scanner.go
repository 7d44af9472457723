package plugin

import (
	"bufio"
	"cmp"
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
	"github.com/donutnomad/errcatch/internal/logger"
)

// Scanner 两阶段并行注解扫描器
// 第一阶段：快速文本匹配，找出可能包含注解的文件
// 第二阶段：对匹配的文件进行 AST 解析
type Scanner struct {
	workers int
	log     *charmlog.Logger

	// 注解过滤器（可选）
	annotationFilter []string
}

// ScannerOption 扫描器选项
type ScannerOption func(*Scanner)

func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithScannerLogger(l *charmlog.Logger) ScannerOption {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

func WithAnnotationFilter(annotations ...string) ScannerOption {
	return func(s *Scanner) {
		s.annotationFilter = annotations
	}
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		workers: runtime.NumCPU(),
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quickMatchRegex 快速匹配注解的正则
var quickMatchRegex = regexp.MustCompile(`@(\w+)`)

// Scan 扫描指定路径
// 支持: ./... ./pkg/... ./pkg /abs/path/... 以及单个 .go 文件
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	allFiles, err := CollectFiles(patterns)
	if err != nil {
		return nil, err
	}
	if len(allFiles) == 0 {
		return &ScanResult{}, nil
	}

	// 第一阶段：快速匹配
	matchedFiles := s.quickMatch(ctx, allFiles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(matchedFiles) == 0 {
		return &ScanResult{}, nil
	}
	s.log.Debug("快速匹配完成", "files", len(allFiles), "matched", len(matchedFiles))

	// 第二阶段：AST 解析
	result := s.parseFiles(ctx, matchedFiles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// fanOut 用固定数量的 worker 并行处理文件
func fanOut[R any](ctx context.Context, workers int, files []string, fn func(string) R) []R {
	fileCh := make(chan string)
	resultCh := make(chan R, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range fileCh {
				resultCh <- fn(file)
			}
		}()
	}

	go func() {
		defer close(fileCh)
		for _, file := range files {
			select {
			case <-ctx.Done():
				return
			case fileCh <- file:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, 0, len(files))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

// quickMatch 第一阶段：并行读取文件，检查是否包含 @xxx 模式
func (s *Scanner) quickMatch(ctx context.Context, files []string) []string {
	type matchResult struct {
		file    string
		matched bool
	}

	results := fanOut(ctx, s.workers, files, func(file string) matchResult {
		matched, err := s.QuickMatchFile(file)
		if err != nil {
			s.log.Debug("读取文件失败", "file", file, "err", err)
		}
		return matchResult{file: file, matched: matched}
	})

	var matched []string
	for _, r := range results {
		if r.matched {
			matched = append(matched, r.file)
		}
	}
	slices.Sort(matched)
	return matched
}

// QuickMatchFile 快速检查文件是否包含注解或 go:gogen 配置
// 用于 dev 模式判断文件是否需要触发代码生成
func (s *Scanner) QuickMatchFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		// 只检查注释行
		if !strings.HasPrefix(trimmed, "//") && !strings.HasPrefix(trimmed, "/*") {
			continue
		}

		if strings.Contains(trimmed, "go:gogen:") {
			return true, nil
		}

		for _, match := range quickMatchRegex.FindAllStringSubmatch(trimmed, -1) {
			if len(s.annotationFilter) == 0 || slices.Contains(s.annotationFilter, match[1]) {
				return true, nil
			}
		}
	}

	return false, scanner.Err()
}

// fileScan 单个文件的解析结果
type fileScan struct {
	file       string
	structs    []*AnnotatedTarget
	interfaces []*AnnotatedTarget
	funcs      []*AnnotatedTarget
	methods    []*AnnotatedTarget
	pkgConfig  *PackageConfig
	err        error
}

// parseFiles 第二阶段：AST 解析
// 结果按文件路径和声明位置排序，保证生成结果稳定
func (s *Scanner) parseFiles(ctx context.Context, files []string) *ScanResult {
	scans := fanOut(ctx, s.workers, files, s.parseFile)

	result := &ScanResult{
		PackageConfigs: make(map[string]*PackageConfig),
	}
	// 包配置合并依赖文件顺序
	slices.SortFunc(scans, func(a, b *fileScan) int {
		return cmp.Compare(a.file, b.file)
	})

	for _, r := range scans {
		if r.err != nil {
			s.log.Warn("解析文件失败，已跳过", "file", r.file, "err", r.err)
			continue
		}
		result.Structs = append(result.Structs, r.structs...)
		result.Interfaces = append(result.Interfaces, r.interfaces...)
		result.Funcs = append(result.Funcs, r.funcs...)
		result.Methods = append(result.Methods, r.methods...)
		if r.pkgConfig != nil {
			s.mergePackageConfig(result.PackageConfigs, r.pkgConfig)
		}
	}

	for _, list := range [][]*AnnotatedTarget{result.Structs, result.Interfaces, result.Funcs, result.Methods} {
		slices.SortStableFunc(list, compareTargets)
	}
	return result
}

func compareTargets(a, b *AnnotatedTarget) int {
	if c := cmp.Compare(a.Target.FilePath, b.Target.FilePath); c != 0 {
		return c
	}
	return cmp.Compare(a.Target.Position, b.Target.Position)
}

// mergePackageConfig 合并同一个包内多个文件的 go:gogen 配置，后发现的配置覆盖先前的
func (s *Scanner) mergePackageConfig(configs map[string]*PackageConfig, cfg *PackageConfig) {
	existing, ok := configs[cfg.PackageDir]
	if !ok {
		configs[cfg.PackageDir] = cfg
		return
	}
	if cfg.DefaultOutput != "" {
		if existing.DefaultOutput != "" && existing.DefaultOutput != cfg.DefaultOutput {
			s.log.Warn("包中存在多个不同的 go:gogen 默认输出配置，使用后发现的配置", "package", cfg.PackageDir)
		}
		existing.DefaultOutput = cfg.DefaultOutput
	}
	for k, v := range cfg.PluginOutputs {
		if old, ok := existing.PluginOutputs[k]; ok && old != v {
			s.log.Warn("插件存在多个不同的输出配置，使用后发现的配置", "package", cfg.PackageDir, "plugin", k)
		}
		existing.PluginOutputs[k] = v
	}
}

// parseFile AST 解析单个文件
func (s *Scanner) parseFile(filePath string) *fileScan {
	result := &fileScan{file: filePath}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		result.err = err
		return result
	}

	packageName := file.Name.Name
	result.pkgConfig = s.parsePackageConfig(file, filePath)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok == token.TYPE {
				s.parseTypeDecl(file, filePath, packageName, d, result)
			}
		case *ast.FuncDecl:
			s.parseFuncDecl(file, filePath, packageName, d, result)
		}
	}

	return result
}

// filter 应用注解过滤器
func (s *Scanner) filter(annotations []*Annotation) []*Annotation {
	if len(s.annotationFilter) == 0 {
		return annotations
	}
	return FilterByNames(annotations, s.annotationFilter...)
}

// parseTypeDecl 解析类型声明
// 注解既可以写在 type 关键字上方，也可以写在分组声明的单个类型上方
func (s *Scanner) parseTypeDecl(file *ast.File, filePath, packageName string, decl *ast.GenDecl, result *fileScan) {
	var declAnnotations []*Annotation
	if decl.Doc != nil {
		declAnnotations = s.filter(ParseAnnotations(decl.Doc.Text()))
	}

	for _, spec := range decl.Specs {
		typeSpec, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		annotations := declAnnotations
		if typeSpec.Doc != nil {
			annotations = append(slices.Clone(annotations), s.filter(ParseAnnotations(typeSpec.Doc.Text()))...)
		}

		target := &Target{
			Name:        typeSpec.Name.Name,
			PackageName: packageName,
			FilePath:    filePath,
			Position:    typeSpec.Pos(),
			Node:        typeSpec,
			File:        file,
		}

		switch t := typeSpec.Type.(type) {
		case *ast.StructType:
			if len(annotations) == 0 {
				continue
			}
			target.Kind = TargetStruct
			result.structs = append(result.structs, &AnnotatedTarget{
				Target:      target,
				Annotations: annotations,
			})

		case *ast.InterfaceType:
			// 接口级注解与方法级注解合并
			all := append(slices.Clone(annotations), s.parseInterfaceMethodAnnotations(t)...)
			if len(all) == 0 {
				continue
			}
			target.Kind = TargetInterface
			result.interfaces = append(result.interfaces, &AnnotatedTarget{
				Target:      target,
				Annotations: all,
			})
		}
	}
}

// parseInterfaceMethodAnnotations 解析接口方法的注解
func (s *Scanner) parseInterfaceMethodAnnotations(interfaceType *ast.InterfaceType) []*Annotation {
	var annotations []*Annotation
	if interfaceType.Methods == nil {
		return annotations
	}
	for _, method := range interfaceType.Methods.List {
		if method.Doc == nil {
			continue
		}
		annotations = append(annotations, s.filter(ParseAnnotations(method.Doc.Text()))...)
	}
	return annotations
}

// parseFuncDecl 解析函数和方法声明
func (s *Scanner) parseFuncDecl(file *ast.File, filePath, packageName string, decl *ast.FuncDecl, result *fileScan) {
	if decl.Doc == nil {
		return
	}
	annotations := s.filter(ParseAnnotations(decl.Doc.Text()))
	if len(annotations) == 0 {
		return
	}

	target := &Target{
		Name:        decl.Name.Name,
		PackageName: packageName,
		FilePath:    filePath,
		Position:    decl.Pos(),
		Node:        decl,
		File:        file,
	}

	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		target.Kind = TargetMethod
		recv := decl.Recv.List[0]
		if len(recv.Names) > 0 {
			target.ReceiverName = recv.Names[0].Name
		}
		target.ReceiverType = exprToString(recv.Type)
		result.methods = append(result.methods, &AnnotatedTarget{
			Target:      target,
			Annotations: annotations,
		})
		return
	}

	target.Kind = TargetFunc
	result.funcs = append(result.funcs, &AnnotatedTarget{
		Target:      target,
		Annotations: annotations,
	})
}

// CollectFiles 收集所有需要扫描的 Go 源文件
// 跳过隐藏目录、vendor、testdata、测试文件以及本工具生成的文件
func CollectFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		if recursive {
			pattern = strings.TrimSuffix(pattern, "/...")
		}

		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if strings.HasSuffix(absPath, ".go") {
				add(absPath)
			}
			continue
		}

		err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != absPath && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
					return filepath.SkipDir
				}
				if !recursive && path != absPath {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSourceFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// generatedSuffixes 生成文件的后缀，扫描时跳过
var generatedSuffixes = []string{"_test.go", "_errcatch.go", "_gen.go"}

// IsSourceFile 判断是否为需要扫描的手写 Go 源文件
func IsSourceFile(path string) bool {
	if !strings.HasSuffix(path, ".go") {
		return false
	}
	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	return true
}

func exprToString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprToString(e.X)
	case *ast.SelectorExpr:
		return exprToString(e.X) + "." + e.Sel.Name
	case *ast.IndexExpr:
		return exprToString(e.X) + "[" + exprToString(e.Index) + "]"
	case *ast.IndexListExpr:
		parts := make([]string, 0, len(e.Indices))
		for _, idx := range e.Indices {
			parts = append(parts, exprToString(idx))
		}
		return exprToString(e.X) + "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

// goGenRegex 匹配 go:gogen: 指令
// 支持两种格式：//go:gogen: 和 // go:gogen:
var goGenRegex = regexp.MustCompile(`go:gogen:\s*(.*)`)

// parsePackageConfig 解析包级 go:gogen: 配置
// 支持格式:
//
//	//go:gogen: -output `$FILE_errcatch`
//	// go:gogen: plugin:errcatch -output `zz_errcatch`
func (s *Scanner) parsePackageConfig(file *ast.File, filePath string) *PackageConfig {
	var lines []string
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimPrefix(c.Text, "//")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimSuffix(text, "*/")
			text = strings.TrimSpace(text)
			if matches := goGenRegex.FindStringSubmatch(text); len(matches) > 1 {
				lines = append(lines, matches[1])
			}
		}
	}

	switch len(lines) {
	case 0:
		return nil
	case 1:
		return parseGogenLine(lines[0], filePath)
	default:
		s.log.Warn("文件定义了多个 go:gogen: 指令，将被忽略", "file", filePath)
		return nil
	}
}

// parseGogenLine 解析单行 go:gogen: 配置
// 格式:
//
//	-output `xxx`                                          // 默认输出
//	plugin:errcatch -output `xxx` plugin:other -output `y` // 插件特定输出
func parseGogenLine(line string, filePath string) *PackageConfig {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	config := &PackageConfig{
		PackageDir:    filepath.Dir(filePath),
		PluginOutputs: make(map[string]string),
	}

	parts := splitGogenArgs(line)
	var currentPlugin string
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		switch {
		case strings.HasPrefix(part, "plugin:"):
			currentPlugin = strings.ToLower(strings.TrimPrefix(part, "plugin:"))
		case part == "-output" && i+1 < len(parts):
			i++
			output := trimQuotes(parts[i])
			if currentPlugin == "" {
				config.DefaultOutput = output
			} else {
				config.PluginOutputs[currentPlugin] = output
			}
		}
	}

	if config.DefaultOutput == "" && len(config.PluginOutputs) == 0 {
		return nil
	}
	return config
}

// splitGogenArgs 分割 go:gogen 参数，支持引号内的空格
func splitGogenArgs(line string) []string {
	var parts []string
	var current strings.Builder
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == 0 && (c == '`' || c == '"' || c == '\''):
			quote = c
			current.WriteByte(c)
		case quote != 0 && c == quote:
			quote = 0
			current.WriteByte(c)
		case quote == 0 && c == ' ':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// trimQuotes 去除引号
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '`' || first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
