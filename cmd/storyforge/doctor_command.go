package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/config"
	"storyforge/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, tools and the TTS engine before rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines, renderStatusLine("Config file", statusInfo, valueOr(ctx.configPath, "(defaults)"), colorize))
			engine := cfg.TTS.Engine
			if engine == config.EngineHTTP {
				engine += " " + cfg.TTS.BaseURL
			}
			lines = append(lines, renderStatusLine("TTS engine", statusInfo, engine, colorize))
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Paths", colorize)...)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Tools", colorize)...)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				switch {
				case status.Available:
					lines = append(lines, renderStatusLine(status.Name, statusOK, status.Path, colorize))
				case status.Optional:
					lines = append(lines, renderStatusLine(status.Name, statusWarn, status.Detail+" (optional)", colorize))
				default:
					problems++
					lines = append(lines, renderStatusLine(status.Name, statusError, status.Detail+"; "+strings.ToLower(status.Description), colorize))
				}
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if problems > 0 {
				return fmt.Errorf("doctor found %d problem%s", problems, plural(int64(problems)))
			}
			fmt.Fprintln(out, "\nReady to render")
			return nil
		},
	}
}
