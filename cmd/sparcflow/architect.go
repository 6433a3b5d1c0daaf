package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sparcflow/internal/pipeline"
)

func newArchitectCmd(a *app) *cobra.Command {
	var req pipeline.ArchitectRequest
	cmd := &cobra.Command{
		Use:   "architect [description...]",
		Short: "Generate the SPARC documents and guidance.toml for a project description",
		Long: `Generate the SPARC documents and guidance.toml for a project description.
With --import-docs the description may be omitted; it is then taken from the
"## Objective" section (or first paragraph) of the imported Specification.md.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			req.Description = strings.Join(args, " ")
			ctx := context.Background()

			client, err := a.client(ctx, req.Model)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := a.controller(client).Architect(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Architecture written to %s\n", res.OutDir)
			fmt.Fprintf(a.out, "  stack: %s / %s\n", res.Stack.Language, res.Stack.Framework)
			fmt.Fprintf(a.out, "  written: %d, kept: %d\n", len(res.Written), len(res.Skipped))
			fmt.Fprintf(a.out, "  guidance: %s\n", res.GuidancePath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Model, "model", "", "completion model id (default from config)")
	f.StringVar(&req.GuidanceFile, "guidance-file", "", "guidance file name written into the output directory")
	f.StringVar(&req.OutDir, "out-dir", "", "write into this directory, reusing documents already there")
	f.StringVar(&req.BaseDir, "base-dir", "", "parent of the fresh architecture_<timestamp> directory")
	f.StringVar(&req.ImportDocs, "import-docs", "", "directory of existing *.md documents to import as context")
	f.BoolVar(&req.Force, "force", false, "overwrite documents that already exist when importing")
	return cmd
}
