// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio clips.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties (codec, sample rate, channels)
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Result.Duration prefers the first audio stream's duration and falls back to
// the container duration; timeline math downstream needs exact nanoseconds.
package ffprobe
