// Package jobs persists render jobs in SQLite.
//
// A job moves queued -> running -> completed, or ends failed, rejected or
// cancelled. Rejected marks input problems (syntax, validation, scheduling)
// that a retry cannot fix; failed marks everything else. Progress is counted
// in synthesized segments.
package jobs
