package payload

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// testEntry is one member of a synthetic payload.
type testEntry struct {
	Name   string
	Body   string
	Mode   fs.FileMode // zero means no stored mode
	Method uint16
}

// buildZip assembles a zip archive from entries, in order.
func buildZip(t *testing.T, entries []testEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: e.Method}
		if hdr.Method == 0 {
			hdr.Method = zip.Deflate
		}
		if e.Mode != 0 {
			hdr.SetMode(e.Mode)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("creating entry %s: %v", e.Name, err)
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			t.Fatalf("writing entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// writePayload writes data to dir/name and returns the path.
func writePayload(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0755); err != nil {
		t.Fatalf("writing payload: %v", err)
	}
	return path
}

// recorder is an Observer that keeps every callback.
type recorder struct {
	begun   int
	total   int
	entries []Entry
	ended   int
}

func (r *recorder) Begin(total int) { r.begun++; r.total = total }
func (r *recorder) Extracted(e Entry, _ int) {
	r.entries = append(r.entries, e)
}
func (r *recorder) End() { r.ended++ }
