// Package tts wraps the external speech synthesis engines.
//
// Two engines are provided: CommandEngine runs a voicegen-style script
// (`--text --ref --out --device`), and HTTPEngine posts to a compute node's
// `/v1/tts` endpoint. Both write a WAV file to the requested path and report
// its length by probing the result. Every failure is a *SynthesisError, which
// is fatal to the enclosing render.
package tts
