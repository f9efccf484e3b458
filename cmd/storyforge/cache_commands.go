package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"storyforge/internal/clipcache"
	"storyforge/internal/logging"
)

var errCacheDisabled = errors.New("clip cache is disabled (cache.enabled = false)")

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the synthesized clip cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func (c *commandContext) withCache(cmd *cobra.Command, fn func(context.Context, *clipcache.Cache) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return errCacheDisabled
	}
	logger, err := c.logger(cmd)
	if err != nil {
		return err
	}
	runCtx := cmd.Context()
	cache, err := clipcache.Open(runCtx, cfg.Paths.CacheDir, cfg.Cache.MaxMiB, logging.NewComponentLogger(logger, "cache"))
	if err != nil {
		return err
	}
	defer cache.Close()
	return fn(runCtx, cache)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show clip cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(runCtx context.Context, cache *clipcache.Cache) error {
				stats, err := cache.Stats(runCtx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				limit := "unlimited"
				if stats.MaxBytes > 0 {
					limit = formatBytes(stats.MaxBytes)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Directory: %s\n", stats.Dir)
				fmt.Fprintf(out, "Entries:   %d\n", stats.Entries)
				fmt.Fprintf(out, "Size:      %s of %s\n", formatBytes(stats.TotalBytes), limit)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cached clips, most recently used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(runCtx context.Context, cache *clipcache.Cache) error {
				entries, err := cache.Entries(runCtx)
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []clipcache.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.Key[:min(12, len(entry.Key))],
						entry.Engine,
						entry.Voice,
						formatClock(entry.Duration),
						formatBytes(entry.Bytes),
						formatTime(entry.LastUsedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Key", "Engine", "Voice", "Length", "Size", "Last used"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Evict least recently used clips until the cache fits cache.max_mib",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(runCtx context.Context, cache *clipcache.Cache) error {
				result, err := cache.Prune(runCtx)
				if err != nil {
					return err
				}
				printPruneResult(cmd, "Pruned", result)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(runCtx context.Context, cache *clipcache.Cache) error {
				result, err := cache.Clear(runCtx)
				if err != nil {
					return err
				}
				printPruneResult(cmd, "Cleared", result)
				return nil
			})
		},
	}
}

func printPruneResult(cmd *cobra.Command, verb string, result clipcache.PruneResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d clip%s (%s freed)\n",
		verb, result.Removed, plural(int64(result.Removed)), formatBytes(result.FreedBytes))
}
