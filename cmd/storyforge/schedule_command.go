package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/pipeline"
	"storyforge/internal/timeline"
)

type eventView struct {
	Kind    string  `json:"kind"`
	Scene   string  `json:"scene"`
	Line    int     `json:"line"`
	StartS  float64 `json:"start_s"`
	EndS    float64 `json:"end_s"`
	Ref     string  `json:"ref,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
	Voice   string  `json:"voice,omitempty"`
	Text    string  `json:"text,omitempty"`
	Asset   string  `json:"asset,omitempty"`
	Loop    bool    `json:"loop,omitempty"`
}

type scheduleView struct {
	Script  string      `json:"script"`
	LengthS float64     `json:"length_s"`
	Events  []eventView `json:"events"`
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var estimate bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "schedule <script>",
		Short: "Show the time-stamped event list of a script",
		Long: "Schedule a script and print every placed event. Speech is synthesized\n" +
			"(and cached) unless --estimate predicts clip lengths from word counts.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormatFlag(formatFlag)
			if err != nil {
				return err
			}
			return ctx.withProducer(cmd, format, func(runCtx context.Context, producer *pipeline.Producer) error {
				preview, err := producer.Preview(runCtx, args[0], estimate)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, scheduleView{
						Script:  args[0],
						LengthS: seconds(preview.Timeline.Length),
						Events:  eventViews(preview.Timeline),
					})
				}
				printSchedule(cmd, preview.Timeline, estimate)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "auto", "Script grammar: auto, v1 or legacy")
	cmd.Flags().BoolVar(&estimate, "estimate", false, "Estimate speech lengths instead of synthesizing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func eventViews(tl *timeline.Timeline) []eventView {
	views := make([]eventView, 0, len(tl.Events))
	for _, ev := range tl.Events {
		view := eventView{
			Kind:   string(ev.Kind),
			Scene:  ev.Scene,
			Line:   ev.Line,
			StartS: seconds(ev.Start),
			EndS:   seconds(ev.End),
		}
		switch ev.Kind {
		case timeline.KindNarration:
			view.Ref = string(ev.Ref)
			view.Speaker = string(ev.Speaker)
			view.Voice = string(ev.Voice)
			view.Text = ev.Text
		case timeline.KindBed:
			if ev.Bed != nil {
				view.Asset = string(ev.Bed.Kind) + "/" + ev.Bed.ID
				view.Loop = ev.Bed.Loop
			}
		case timeline.KindSfx:
			if ev.Sfx != nil {
				view.Asset = ev.Sfx.ID
			}
		}
		views = append(views, view)
	}
	return views
}

func printSchedule(cmd *cobra.Command, tl *timeline.Timeline, estimated bool) {
	rows := make([][]string, 0, len(tl.Events))
	for _, ev := range tl.Events {
		end := formatClock(ev.End)
		if ev.Kind == timeline.KindSfx {
			end = ""
		}
		rows = append(rows, []string{formatClock(ev.Start), end, string(ev.Kind), ev.Scene, eventDetail(ev)})
	}
	length := formatClock(tl.Length)
	if estimated {
		length += " (estimated)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Start", "End", "Kind", "Scene", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
		"Length", length,
	))
}

func eventDetail(ev timeline.TimedEvent) string {
	switch ev.Kind {
	case timeline.KindNarration:
		return fmt.Sprintf("%s: %s", ev.Speaker, truncate(ev.Text, 48))
	case timeline.KindBed:
		if ev.Bed == nil {
			return ""
		}
		parts := []string{string(ev.Bed.Kind), ev.Bed.ID}
		if ev.Bed.Loop {
			parts = append(parts, "(loop)")
		}
		return strings.Join(parts, " ")
	case timeline.KindSfx:
		if ev.Sfx == nil {
			return ""
		}
		return fmt.Sprintf("%s @ %s", ev.Sfx.ID, ev.Sfx.Anchor)
	default:
		return ""
	}
}
