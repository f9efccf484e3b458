// Package config loads and validates storyforge configuration.
//
// Configuration is TOML. Load resolves the file (explicit path, then
// ~/.config/storyforge/config.toml, then ./storyforge.toml), overlays it on
// Default, expands paths, applies environment fallbacks and validates ranges.
// `storyforge config init` writes the embedded sample_config.toml.
package config
