package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyforge/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage render jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsRecoverCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var stateFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List render jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := parseStates(stateFlags)
			if err != nil {
				return err
			}
			return ctx.withJobs(cmd, func(runCtx context.Context, store *jobs.Store) error {
				list, err := store.List(runCtx, states...)
				if err != nil {
					return err
				}
				if jsonOutput {
					if list == nil {
						list = []*jobs.Job{}
					}
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(list))
				for _, job := range list {
					rows = append(rows, []string{
						shortID(job.ID),
						truncate(valueOr(job.Title, "(untitled)"), 32),
						string(job.State),
						jobProgress(job),
						formatElapsed(job.Elapsed(now)),
						formatTime(job.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "State", "Progress", "Elapsed", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&stateFlags, "state", "s", nil, "Filter by state (repeatable): "+stateNames())
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job; a unique id prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(cmd, func(runCtx context.Context, store *jobs.Store) error {
				job, err := store.Find(runCtx, args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				printJob(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "rm [id...]",
		Aliases: []string{"remove"},
		Short:   "Delete finished jobs (output files are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("specify job ids or --all")
			}
			if len(args) > 0 && all {
				return errors.New("--all cannot be combined with job ids")
			}
			return ctx.withJobs(cmd, func(runCtx context.Context, store *jobs.Store) error {
				ids := make([]string, 0, len(args))
				for _, arg := range args {
					job, err := store.Find(runCtx, arg)
					if err != nil {
						return err
					}
					if job == nil {
						return fmt.Errorf("job %s not found", arg)
					}
					if !job.State.Terminal() {
						return fmt.Errorf("job %s is %s; only finished jobs can be removed", shortID(job.ID), job.State)
					}
					ids = append(ids, job.ID)
				}
				removed, err := store.Remove(runCtx, ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job%s\n", removed, plural(removed))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every finished job")
	return cmd
}

func newJobsRecoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Mark jobs left running by a crashed render as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(cmd, func(runCtx context.Context, store *jobs.Store) error {
				count, err := store.ResetInterrupted(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d interrupted job%s\n", count, plural(count))
				return nil
			})
		},
	}
}

func printJob(cmd *cobra.Command, job *jobs.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s\n", job.ID)
	fmt.Fprintf(out, "  Title:    %s\n", valueOr(job.Title, "(untitled)"))
	fmt.Fprintf(out, "  Source:   %s\n", job.SourcePath)
	fmt.Fprintf(out, "  State:    %s\n", job.State)
	fmt.Fprintf(out, "  Progress: %s\n", jobProgress(job))
	if job.OutputPath != "" {
		fmt.Fprintf(out, "  Output:   %s\n", job.OutputPath)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:    [%s] %s\n", valueOr(job.ErrorKind, "unknown"), job.ErrorMessage)
	}
	fmt.Fprintf(out, "  Created:  %s\n", formatTime(job.CreatedAt))
	fmt.Fprintf(out, "  Started:  %s\n", formatTime(job.StartedAt))
	fmt.Fprintf(out, "  Finished: %s\n", formatTime(job.FinishedAt))
	if elapsed := job.Elapsed(time.Now()); elapsed > 0 {
		fmt.Fprintf(out, "  Elapsed:  %s\n", formatElapsed(elapsed))
	}
}

func parseStates(values []string) ([]jobs.State, error) {
	states := make([]jobs.State, 0, len(values))
	for _, value := range values {
		state, ok := jobs.ParseState(value)
		if !ok {
			return nil, fmt.Errorf("unknown state %q (want %s)", value, stateNames())
		}
		states = append(states, state)
	}
	return states, nil
}

func stateNames() string {
	names := make([]string, 0, 6)
	for _, state := range jobs.AllStates() {
		names = append(names, string(state))
	}
	return strings.Join(names, ", ")
}

func jobProgress(job *jobs.Job) string {
	if job.TotalSegments <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d (%.0f%%)", job.SegmentsDone, job.TotalSegments, job.Percent())
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
