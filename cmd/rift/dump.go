package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riftlang/rift/internal/ast"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [project]",
	Short: "Print pool sizes, or one type as indented JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("type", "", "namespace of a type to print, e.g. @Game.Player")
}

func runDump(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background(), cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	a.settle()

	name, _ := cmd.Flags().GetString("type")
	if name == "" {
		return ast.DumpPools(os.Stdout, a.tree)
	}
	id := ast.FindIdFromNamespace(a.tree.Access(), ast.ParseNamespace(name), nil)
	if id.IsNone() {
		return fmt.Errorf("type %s not found", name)
	}
	out, err := ast.SerializeType(a.tree, id, ast.JSONFormat{Indent: true})
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}
