// Package pipeline turns an SFML script into a finished audio file.
//
// A Producer owns the long-lived collaborators (synthesis engine, clip cache,
// asset index, voice catalog, job store and renderer) and runs each render as
// a sequence of stages: parse, synthesize (scheduling the timeline while
// voicing segments), plan and render. Every render is recorded in the job
// store; failures leave the job failed, rejected or cancelled according to
// the error's kind.
package pipeline
