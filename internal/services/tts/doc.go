// Package tts is the HTTP client for the speech synthesis server. The server
// renders one sentence per request and returns raw WAV audio; the stage
// handler drives it sentence by sentence so interrupted sessions resume at
// the first missing file.
package tts
