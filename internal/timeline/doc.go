// Package timeline places parsed SFML events on one absolute timeline.
//
// The scheduler walks scenes and events in document order with an explicit
// cursor (now, last start, last end). Speech segments are synthesized through
// a Voicer to learn their duration before the cursor advances, so anchors for
// spot effects always see the true end of the preceding segment. Beds open
// and close at the cursor; spot effects never move it.
package timeline
