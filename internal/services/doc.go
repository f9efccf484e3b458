// Package services defines shared utilities consumed by the render pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and ErrorKind, which
//     translates failures into job states (failed vs rejected).
//   - CommandRunner, the seam that makes external tool execution testable.
package services
