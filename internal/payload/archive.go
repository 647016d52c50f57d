package payload

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"

	"github.com/feet-runtime/feet/internal/failure"
)

// Archive is an open payload.
type Archive struct {
	Path string
	file *os.File
	zr   *zip.Reader
}

// Open opens the zip payload at path. The zip may be prefixed by arbitrary
// data (the launcher executable itself); its central directory is located
// from the end of the file. Deflate entries use klauspost's faster inflater
// and zstd entries (method 93) are supported.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failure.Wrap(failure.KindArchive, "open payload", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, failure.Wrap(failure.KindArchive, "stat payload", path, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, failure.Wrap(failure.KindArchive, "read payload", path, err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	return &Archive{Path: path, file: f, zr: zr}, nil
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int { return len(a.zr.File) }

// Entries describes every archive entry in stored order.
func (a *Archive) Entries() []Entry {
	entries := make([]Entry, len(a.zr.File))
	for i, f := range a.zr.File {
		entries[i] = describe(i, f)
	}
	return entries
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.file.Close()
}

// Select picks the payload for an executable: override when set, otherwise
// "<stem>.zip" beside the executable when present, otherwise the executable
// itself.
func Select(exePath, stem, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", failure.Wrap(failure.KindArchive, "locate payload", override, err)
		}
		return override, nil
	}

	adjacent := filepath.Join(filepath.Dir(exePath), stem+".zip")
	if info, err := os.Stat(adjacent); err == nil && !info.IsDir() {
		return adjacent, nil
	}
	return exePath, nil
}

// recordingReader remembers the first non-EOF read error so a failed copy can
// be attributed to the archive rather than the destination file.
type recordingReader struct {
	r   io.Reader
	err error
}

func (r *recordingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF && r.err == nil {
		r.err = err
	}
	return n, err
}

// errTooLarge is returned when an entry exceeds the configured ceiling.
type errTooLarge struct {
	limit int64
}

func (e errTooLarge) Error() string {
	return fmt.Sprintf("entry exceeds the %d byte limit", e.limit)
}
