package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storyforge/internal/config"
	"storyforge/internal/fileutil"
	"storyforge/internal/pipeline"
)

type renderView struct {
	JobID     string  `json:"job_id"`
	Title     string  `json:"title"`
	State     string  `json:"state"`
	Output    string  `json:"output"`
	Published string  `json:"published,omitempty"`
	LengthS   float64 `json:"length_s"`
	Bytes     int64   `json:"bytes"`
	Segments  int     `json:"segments"`
	ElapsedS  float64 `json:"elapsed_s"`
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var copyTo string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "render <script>",
		Short: "Synthesize, mix and encode a script into one audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormatFlag(formatFlag)
			if err != nil {
				return err
			}
			return ctx.withProducer(cmd, format, func(runCtx context.Context, producer *pipeline.Producer) error {
				outcome, err := producer.Render(runCtx, args[0])
				if err != nil {
					if outcome != nil && outcome.Job != nil {
						return fmt.Errorf("job %s %s: %w", shortID(outcome.Job.ID), outcome.Job.State, err)
					}
					return err
				}

				view := renderView{
					JobID:    outcome.Job.ID,
					Title:    outcome.Job.Title,
					State:    string(outcome.Job.State),
					Output:   outcome.Output,
					LengthS:  seconds(outcome.Length),
					Bytes:    outcome.Bytes,
					Segments: outcome.Segments,
					ElapsedS: seconds(outcome.Elapsed),
				}
				if copyTo != "" {
					dir, err := config.ExpandPath(copyTo)
					if err != nil {
						return err
					}
					if view.Published, err = fileutil.Publish(outcome.Output, dir); err != nil {
						return err
					}
				}

				if jsonOutput {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Rendered %q (job %s)\n", view.Title, shortID(view.JobID))
				fmt.Fprintf(out, "  Output:   %s\n", view.Output)
				if view.Published != "" {
					fmt.Fprintf(out, "  Copied:   %s\n", view.Published)
				}
				fmt.Fprintf(out, "  Length:   %s\n", formatClock(outcome.Length))
				fmt.Fprintf(out, "  Size:     %s\n", formatBytes(view.Bytes))
				fmt.Fprintf(out, "  Segments: %d\n", view.Segments)
				fmt.Fprintf(out, "  Elapsed:  %s\n", outcome.Elapsed.Round(100*time.Millisecond))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "auto", "Script grammar: auto, v1 or legacy")
	cmd.Flags().StringVar(&copyTo, "copy-to", "", "Also copy the finished file into this directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
