package main

import (
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/analysis/singlechecker"
	"golang.org/x/tools/go/ast/inspector"
)

const doc = `no_setenv_in_tests: forbid os.Setenv and t.Setenv in test files

Tests configure code through config.LoadFromMap instead of mutating the
process environment. os.Setenv and t.Setenv touch global state and break
parallel test execution.
`

var analyzer = &analysis.Analyzer{
	Name:     "no_setenv_in_tests",
	Doc:      doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func main() {
	singlechecker.Main(analyzer)
}

func run(pass *analysis.Pass) (interface{}, error) {
	if !hasTestFile(pass.Fset, pass.Files) {
		return nil, nil
	}

	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
	}

	ins.Preorder(nodeFilter, func(n ast.Node) {
		call := n.(*ast.CallExpr)

		fun, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || fun.Sel.Name != "Setenv" {
			return
		}

		ident, ok := fun.X.(*ast.Ident)
		if !ok {
			return
		}

		switch {
		case ident.Name == "os":
			pass.Reportf(call.Pos(),
				"os.Setenv is forbidden in test files; build the config with config.LoadFromMap instead")
		case ident.Name == "t" || ident.Name == "tb":
			pass.Reportf(call.Pos(),
				"t.Setenv is forbidden in test files; build the config with config.LoadFromMap instead")
		}
	})

	return nil, nil
}

func hasTestFile(fset *token.FileSet, files []*ast.File) bool {
	for _, file := range files {
		filename := fset.Position(file.Package).Filename
		if strings.HasSuffix(filename, "_test.go") {
			return true
		}
	}
	return false
}
