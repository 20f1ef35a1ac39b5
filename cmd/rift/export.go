package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/persist"
	"github.com/riftlang/rift/internal/system"
)

var exportCmd = &cobra.Command{
	Use:   "export [project]",
	Short: "Copy a project into another format or storage backend",
	Long: `Loads a project and writes every module and type file again under
--out, encoded with --format and stored in --backend. Paths keep their
place relative to the project folder.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("out", "", "destination project folder (required)")
	exportCmd.Flags().String("format", "json", "destination format: json or msgpack")
	exportCmd.Flags().String("backend", "fs", "destination backend: fs, badger or postgres")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	out, _ := cmd.Flags().GetString("out")
	formatName, _ := cmd.Flags().GetString("format")
	backend, _ := cmd.Flags().GetString("backend")

	format, err := ast.FormatByName(formatName)
	if err != nil {
		return err
	}
	if out, err = filepath.Abs(out); err != nil {
		return err
	}

	dstCfg := *a.cfg
	dstCfg.Storage.Backend = backend
	dst := a.store
	if backend != a.cfg.Storage.Backend || backend == "fs" {
		// A badger directory can only be opened once.
		if dst, err = persist.Open(ctx, &dstCfg, a.log); err != nil {
			return err
		}
		defer dst.Close()
	}

	a.settle()

	n, err := exportTree(ctx, a.tree, dst, format, out)
	if err != nil {
		return err
	}
	printOK(fmt.Sprintf("exported %d files to %s (%s, %s)", n, out, format.Name(), backend))
	return nil
}

// exportTree writes every file of t under out, rebased from the project
// folder. Returns the number of files written.
func exportTree(ctx context.Context, t *ast.Tree, dst system.Saver, format ast.Format, out string) (int, error) {
	acc := t.Access()
	root := ast.GetProjectPath(acc)
	if root == "" {
		return 0, fmt.Errorf("export: no project open")
	}

	n := 0
	for _, id := range ecs.List[ast.CFileRef](acc) {
		path := ecs.Get[ast.CFileRef](acc, id).Path
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return n, fmt.Errorf("export %s: %w", path, err)
		}

		var data []byte
		if ecs.Has[ast.CModule](acc, id) {
			data, err = ast.SerializeModule(t, id, format)
		} else {
			data, err = ast.SerializeType(t, id, format)
		}
		if err != nil {
			return n, fmt.Errorf("export %s: %w", path, err)
		}
		if err := dst.Save(ctx, filepath.Join(out, rel), data); err != nil {
			return n, err
		}
		t.Log().Debug("exported", zap.String("path", path), zap.Int("bytes", len(data)))
		n++
	}
	return n, nil
}
