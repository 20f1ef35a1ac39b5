package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
)

var checkCmd = &cobra.Command{
	Use:   "check [project]",
	Short: "Load a project and report unresolved references",
	Long: `Loads every module and type of a project, runs the systems until the
tree settles and reports calls and types that could not be resolved,
invalid pins and broken parent links. Exits non-zero on any issue.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

type issue struct {
	kind string
	node string
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background(), cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	a.settle()

	acc := a.tree.Access()
	printSection("Project")
	printStat("Modules", len(ecs.List[ast.CModule](acc)))
	printStat("Types", len(ecs.List[ast.CDeclType](acc)))
	printStat("Functions", len(ecs.List[ast.CDeclFunction](acc)))
	printStat("Calls", len(ecs.List[ast.CExprCall](acc)))

	issues := checkTree(a.tree)
	printSection("Check")
	if len(issues) == 0 {
		printOK("no issues")
		return nil
	}
	for _, is := range issues {
		printFail(fmt.Sprintf("%s: %s", is.kind, is.node))
	}
	return fmt.Errorf("%d issues found", len(issues))
}

// checkTree lists unresolved calls and types, invalid pins and inconsistent
// parent links, sorted by kind then node.
func checkTree(t *ast.Tree) []issue {
	acc := t.Access()
	var issues []issue

	for _, id := range ecs.List[ast.CExprCall](acc) {
		if c := ecs.Get[ast.CExprCallId](acc, id); c == nil || !acc.IsValid(c.FunctionId) {
			issues = append(issues, issue{"unresolved call", ecs.Get[ast.CExprCall](acc, id).Function.String()})
		}
	}
	for _, id := range ecs.List[ast.CExprType](acc) {
		typ := ecs.Get[ast.CExprType](acc, id).Type
		if typ.IsEmpty() {
			continue
		}
		if c := ecs.Get[ast.CExprTypeId](acc, id); c == nil || !acc.IsValid(c.Id) {
			issues = append(issues, issue{"unresolved type", fmt.Sprintf("%s (%s)", describe(acc, id), typ)})
		}
	}
	for _, id := range ecs.List[ast.CInvalid](acc) {
		issues = append(issues, issue{"invalid pin", describe(acc, id)})
	}
	if !ast.ValidateParentLinks(acc, ecs.List[ast.CParent](acc)) {
		issues = append(issues, issue{"parent links", "inconsistent"})
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].kind != issues[j].kind {
			return issues[i].kind < issues[j].kind
		}
		return issues[i].node < issues[j].node
	})
	return issues
}

// describe names a node by its namespace, falling back to the closest
// named ancestor for anonymous nodes.
func describe(acc *ecs.Access, id ast.Id) string {
	if name := ast.GetName(acc, id); name != "" {
		return ast.GetFullName(acc, id, false)
	}
	parent := ast.GetParent(acc, id)
	if parent.IsNone() {
		return id.String()
	}
	return describe(acc, parent) + "/" + id.String()
}
