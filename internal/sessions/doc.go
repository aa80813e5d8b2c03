// Package sessions discovers per-language speech synthesis sessions inside a
// project and inspects them for resumability.
//
// A session directory holds a manifest plus one WAV per sentence. Synthesis
// is resumable: a partially filled session reports how many sentences remain
// so the TTS executor can pick up where it left off instead of
// re-synthesizing from scratch.
package sessions
