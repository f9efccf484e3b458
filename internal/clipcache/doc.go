// Package clipcache stores synthesized speech clips by content.
//
// A clip's key is the sha256 of the engine name, voice, controls and text, so
// re-rendering an unchanged segment never calls the engine again. Files live
// under <dir>/<key[:2]>/<key>.wav and a SQLite index records duration, size and
// last use for LRU pruning. A per-key file lock keeps concurrent renders from
// synthesizing the same clip twice.
package clipcache
