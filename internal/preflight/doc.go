// Package preflight provides readiness checks for the filesystem paths,
// executables and compute node a render depends on.
//
// The CLI "storyforge doctor" command runs RunAll and CheckSystemDeps and
// prints one row per check. Checks for features the config leaves off (the
// clip cache, the HTTP engine, a voice catalog) are skipped.
package preflight
