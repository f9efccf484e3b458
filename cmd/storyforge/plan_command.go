package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"storyforge/internal/mixplan"
	"storyforge/internal/pipeline"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var estimate bool
	var outPath string
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "plan [script]",
		Short: "Export the mix plan of a script as JSON",
		Args: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := cmd.OutOrStdout().Write(mixplan.Schema())
				return err
			}
			format, err := parseFormatFlag(formatFlag)
			if err != nil {
				return err
			}
			return ctx.withProducer(cmd, format, func(runCtx context.Context, producer *pipeline.Producer) error {
				preview, err := producer.Preview(runCtx, args[0], estimate)
				if err != nil {
					return err
				}
				data, err := preview.Plan.JSON()
				if err != nil {
					return err
				}
				if err := mixplan.ValidateJSON(data); err != nil {
					return err
				}
				if outPath == "" || outPath == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				if dir := filepath.Dir(outPath); dir != "" {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("create %s: %w", dir, err)
					}
				}
				if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write plan: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote mix plan (%s, %d beds, %d effects) to %s\n",
					formatClock(preview.Plan.Length), len(preview.Plan.Beds), len(preview.Plan.Sfx), outPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "auto", "Script grammar: auto, v1 or legacy")
	cmd.Flags().BoolVar(&estimate, "estimate", false, "Estimate speech lengths instead of synthesizing")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the plan to a file instead of stdout")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the mix plan JSON schema and exit")
	return cmd
}
