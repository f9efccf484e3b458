// Package main hosts the storyforge CLI entrypoint and command graph.
//
// The Cobra command tree checks, schedules, plans and renders SFML scripts,
// and inspects the job store, clip cache and toolchain. It centralizes
// configuration resolution and logger setup so subcommands can focus on
// presenting results.
//
// Keep this package lean: new behavior belongs in the internal packages
// first and is surfaced here through a command or flag.
package main
