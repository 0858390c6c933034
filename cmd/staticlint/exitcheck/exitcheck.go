// Package exitcheck reports process exits that skip deferred cleanup in main packages.
//
// main.main may end the process through log.Fatal, after run has returned and its
// deferred shutdown (loop stop, mirror close) is done. It must not call os.Exit directly.
// Every other function of a main package must return an error instead of exiting.
package exitcheck

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "exitcheck",
	Doc:  "reports os.Exit in main.main and any process exit outside of it",
	Run:  run,
}

// exits lists the calls that terminate the process, keyed by package path.
var exits = map[string][]string{
	"os":              {"Exit"},
	"log":             {"Fatal", "Fatalf", "Fatalln"},
	"go.uber.org/zap": {"Fatal", "Fatalf", "Fatalw", "Fatalln"},
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg == nil || pass.Pkg.Name() != "main" {
		return nil, nil
	}
	for _, f := range pass.Files {
		if strings.HasSuffix(pass.Fset.Position(f.Pos()).Filename, "_test.go") {
			continue
		}
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Body == nil {
				continue
			}
			if fd.Recv == nil && fd.Name.Name == "main" {
				checkMain(pass, fd.Body)
				continue
			}
			checkHelper(pass, fd)
		}
	}
	return nil, nil
}

// checkMain skips closures: a deferred func in main runs after cleanup anyway.
func checkMain(pass *analysis.Pass, body *ast.BlockStmt) {
	ast.Inspect(body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.CallExpr:
			if pkg, _ := exitCall(pass, x); pkg == "os" {
				pass.Reportf(x.Pos(), "os.Exit in main.main skips deferred calls; use log.Fatal after cleanup or return")
			}
		}
		return true
	})
}

func checkHelper(pass *analysis.Pass, fd *ast.FuncDecl) {
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if pkg, name := exitCall(pass, call); pkg != "" {
			pass.Reportf(call.Pos(), "%s.%s in %s exits the process; return an error to main instead", lastElem(pkg), name, fd.Name.Name)
		}
		return true
	})
}

// exitCall returns the package path and name of call when it is one of exits.
func exitCall(pass *analysis.Pass, call *ast.CallExpr) (pkg, name string) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", ""
	}
	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return "", ""
	}
	for _, n := range exits[fn.Pkg().Path()] {
		if fn.Name() == n {
			return fn.Pkg().Path(), n
		}
	}
	return "", ""
}

func lastElem(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
