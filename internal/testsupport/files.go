package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile drops size bytes of filler at path so handlers see a non-empty
// artifact. Parent directories are created as needed; a size <= 0 still
// produces one byte. Fixture sizes in tests stay small, so the payload is
// built in one allocation.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// epubStub carries the zip magic and the uncompressed mimetype entry every
// EPUB container starts with, enough for classification and presence checks.
var epubStub = []byte("PK\x03\x04mimetypeapplication/epub+zip")

// WriteEPUB drops an EPUB-shaped fixture at path.
func WriteEPUB(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, epubStub, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
