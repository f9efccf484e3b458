package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/assets"
	"storyforge/internal/pipeline"
	"storyforge/internal/services"
	"storyforge/internal/sfml"
)

type checkSummary struct {
	Script     string            `json:"script"`
	Title      string            `json:"title,omitempty"`
	Format     string            `json:"format"`
	Scenes     []string          `json:"scenes"`
	Speakers   []string          `json:"speakers"`
	Casting    map[string]string `json:"casting"`
	Segments   int               `json:"segments"`
	Units      int               `json:"synthesis_units"`
	Directives map[string]string `json:"directives,omitempty"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check <script>",
		Short: "Parse a script and report its structure without synthesizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, err := parseFormatFlag(formatFlag)
			if err != nil {
				return err
			}
			voices, err := assets.LoadVoices(cfg.Paths.VoicesFile)
			if err != nil {
				return err
			}
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return services.Wrap(services.ErrNotFound, "check", "read script", path, err)
			}
			doc, err := sfml.Parse(string(data), sfml.Options{Format: format, Voices: voices})
			if err != nil {
				return err
			}

			summary := summarizeDocument(path, doc, cfg.Schedule.MergeAdjacent)
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			printCheckSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "auto", "Script grammar: auto, v1 or legacy")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func summarizeDocument(path string, doc *sfml.Document, merge bool) checkSummary {
	summary := checkSummary{
		Script:   path,
		Title:    strings.TrimSpace(doc.Title),
		Format:   string(doc.Format),
		Casting:  make(map[string]string, len(doc.Casting)),
		Segments: doc.SegmentCount(),
	}
	for _, scene := range doc.Scenes {
		summary.Scenes = append(summary.Scenes, scene.ID)
	}
	for _, speaker := range doc.Speakers() {
		summary.Speakers = append(summary.Speakers, string(speaker))
	}
	for speaker, voice := range doc.Casting {
		summary.Casting[string(speaker)] = string(voice)
	}
	summary.Units = pipeline.SynthesisUnits(doc, merge)
	if len(doc.Directives) > 0 {
		summary.Directives = make(map[string]string, len(doc.Directives))
		for key, value := range doc.Directives {
			summary.Directives[key] = value.String()
		}
	}
	return summary
}

func printCheckSummary(cmd *cobra.Command, s checkSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Script:    %s\n", s.Script)
	fmt.Fprintf(out, "Title:     %s\n", valueOr(s.Title, "(untitled)"))
	fmt.Fprintf(out, "Format:    %s\n", s.Format)
	fmt.Fprintf(out, "Scenes:    %d (%s)\n", len(s.Scenes), strings.Join(s.Scenes, ", "))
	fmt.Fprintf(out, "Segments:  %d spoken, %d synthesis units\n", s.Segments, s.Units)

	speakers := make([]string, 0, len(s.Casting))
	for speaker := range s.Casting {
		speakers = append(speakers, speaker)
	}
	sort.Strings(speakers)
	rows := make([][]string, 0, len(speakers))
	for _, speaker := range speakers {
		rows = append(rows, []string{speaker, s.Casting[speaker]})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Speaker", "Voice"}, rows, nil))
	}
	fmt.Fprintln(out, "Script OK")
}
