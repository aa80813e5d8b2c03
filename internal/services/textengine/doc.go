// Package textengine wraps the bookwright command-line tool, which performs
// the EPUB text transformations: cleanup, simplification, and translation
// with sentence alignment. Progress is streamed as JSON lines on stdout.
package textengine
