package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sparcflow/internal/pipeline"
	"sparcflow/internal/report"
)

func newImplementCmd(a *app) *cobra.Command {
	var req pipeline.ImplementRequest
	cmd := &cobra.Command{
		Use:   "implement",
		Short: "Drive the coding agent through every component named in guidance.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.flushMetrics()
			rep, err := a.controller(nil).Implement(context.Background(), req)
			if err != nil {
				return err
			}
			// failed components are reported, not fatal
			fmt.Fprint(a.out, report.Render(rep))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Model, "model", "", "model passed to the coding agent (default from config)")
	f.StringVar(&req.GuidanceFile, "guidance-file", "", "guidance document to implement (default guidance.toml)")
	f.IntVar(&req.MaxAttempts, "max-attempts", 0, "attempts per component (default from guidance, then config)")
	f.StringVar(&req.Workdir, "workdir", "", "directory that receives src/ and tests/ (default from config)")
	f.BoolVar(&req.Fresh, "fresh", false, "create a new implementation_<timestamp> directory under the workdir")
	return cmd
}
