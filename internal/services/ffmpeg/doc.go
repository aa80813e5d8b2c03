// Package ffmpeg wraps the ffmpeg binary for the two media operations:
// interleaving two synthesis sessions into a bilingual audiobook, and
// rendering the audiobook over a still image into a video.
package ffmpeg
