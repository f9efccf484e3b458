package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyforge/internal/assets"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "List sound assets and catalog voices",
	}
	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsVoicesCommand(ctx))
	return assetsCmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List audio files under paths.assets_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var files []string
			if _, statErr := os.Stat(cfg.Paths.AssetsDir); statErr == nil {
				if files, err = assets.NewIndex(cfg.Paths.AssetsDir, nil).List(); err != nil {
					return err
				}
			}
			if jsonOutput {
				if files == nil {
					files = []string{}
				}
				return writeJSON(cmd, files)
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No assets under %s\n", cfg.Paths.AssetsDir)
				return nil
			}
			for _, file := range files {
				fmt.Fprintln(out, file)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type voiceView struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	Engine      string `json:"engine,omitempty"`
	Description string `json:"description,omitempty"`
}

func newAssetsVoicesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the voice catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := assets.LoadVoices(cfg.Paths.VoicesFile)
			if err != nil {
				return err
			}
			views := make([]voiceView, 0)
			for _, id := range catalog.IDs() {
				entry, _ := catalog.Entry(id)
				views = append(views, voiceView{
					ID:          string(id),
					Reference:   entry.Reference,
					Engine:      entry.Engine,
					Description: entry.Description,
				})
			}
			if jsonOutput {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if catalog.Empty() {
				fmt.Fprintln(out, "No voice catalog configured; voice ids are passed to the engine unchanged")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{view.ID, view.Reference, valueOr(view.Engine, "-"), view.Description})
			}
			fmt.Fprintln(out, renderTable([]string{"Voice", "Reference", "Engine", "Description"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
