package payload

import (
	"archive/zip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/feet-runtime/feet/internal/failure"
	"github.com/feet-runtime/feet/internal/platform"
)

func TestExtractCompleteness(t *testing.T) {
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "feet.zip", buildZip(t, []testEntry{
		{Name: "feet/", Mode: fs.ModeDir | 0755},
		{Name: "feet/a/", Mode: fs.ModeDir | 0755},
		{Name: "feet/a/b.txt", Body: "hello", Mode: 0644},
		{Name: "feet/crlf.txt", Body: "line1\r\nline2\n"},
	}))

	rec := &recorder{}
	x := &Extractor{StagingName: "feet", Observer: rec}
	res, err := x.Extract(payloadPath, tmp, "feet_data")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Reused {
		t.Error("Reused should be false for a fresh extraction")
	}
	if res.Entries != 4 {
		t.Errorf("Entries = %d, want 4", res.Entries)
	}

	root := filepath.Join(tmp, "feet_data")
	if res.Path != root {
		t.Errorf("Path = %q, want %q", res.Path, root)
	}

	info, err := os.Stat(filepath.Join(root, "a"))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory a/: %v", err)
	}

	b := filepath.Join(root, "a", "b.txt")
	data, err := os.ReadFile(b)
	if err != nil {
		t.Fatalf("reading a/b.txt: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("a/b.txt = %q, want %q", data, "hello")
	}
	if platform.SupportsPermissions() {
		info, err := os.Stat(b)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0644 {
			t.Errorf("a/b.txt permissions = %o, want %o", perm, 0644)
		}
	}

	crlf, err := os.ReadFile(filepath.Join(root, "crlf.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(crlf) != "line1\r\nline2\n" {
		t.Errorf("bytes were transformed: %q", crlf)
	}

	if rec.begun != 1 || rec.ended != 1 || rec.total != 4 {
		t.Errorf("observer begin/end/total = %d/%d/%d, want 1/1/4", rec.begun, rec.ended, rec.total)
	}
	for i, e := range rec.entries {
		if e.Index != i {
			t.Errorf("entry %d reported with index %d", i, e.Index)
		}
	}
	if len(rec.entries) != 4 || rec.entries[2].Name != "feet/a/b.txt" {
		t.Errorf("entries not reported in archive order: %+v", rec.entries)
	}

	assertNoStaging(t, tmp, "feet_data")
}

func TestExtractAppendedToExecutable(t *testing.T) {
	tmp := t.TempDir()
	archive := buildZip(t, []testEntry{
		{Name: "feet/feet.py", Body: "print('hi')\n"},
	})
	exe := append([]byte("\x7fELF pretend launcher bytes"), archive...)
	exePath := writePayload(t, tmp, "feet", exe)

	x := &Extractor{StagingName: "feet"}
	if _, err := x.Extract(exePath, tmp, "feet_data"); err != nil {
		t.Fatalf("Extract from prefixed payload failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmp, "feet_data", "feet.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "print('hi')\n" {
		t.Errorf("feet.py = %q", data)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	names := []string{
		"feet/../../evil.txt",
		"../evil.txt",
		"/tmp/evil.txt",
		`feet\..\..\evil.txt`,
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			tmp := t.TempDir()
			parent := filepath.Join(tmp, "work")
			if err := os.MkdirAll(parent, 0755); err != nil {
				t.Fatal(err)
			}
			payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
				{Name: "feet/ok.txt", Body: "ok"},
				{Name: name, Body: "pwned"},
			}))

			x := &Extractor{StagingName: "feet"}
			_, err := x.Extract(payloadPath, parent, "feet_data")
			if err == nil {
				t.Fatal("expected traversal entry to be rejected")
			}
			if !errors.Is(err, ErrUnsafeName) {
				t.Errorf("error %v does not wrap ErrUnsafeName", err)
			}
			if failure.KindOf(err) != failure.KindArchive {
				t.Errorf("kind = %v, want archive", failure.KindOf(err))
			}

			for _, p := range []string{
				filepath.Join(tmp, "evil.txt"),
				filepath.Join(parent, "evil.txt"),
				filepath.Join(parent, "feet_data"),
			} {
				if _, err := os.Stat(p); err == nil {
					t.Errorf("%s should not exist", p)
				}
			}
			assertNoStaging(t, parent, "feet_data")
		})
	}
}

func TestExtractDetectsStagingName(t *testing.T) {
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "runtime/bin/tool", Body: "x"},
		{Name: "runtime/main.py", Body: "y"},
	}))

	x := &Extractor{}
	if _, err := x.Extract(payloadPath, tmp, "app_data"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "app_data", "bin", "tool")); err != nil {
		t.Errorf("expected bin/tool below the runtime directory: %v", err)
	}
}

func TestExtractRejectsEntryOutsideStaging(t *testing.T) {
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/feet.py", Body: "x"},
		{Name: "stray.txt", Body: "y"},
	}))

	x := &Extractor{StagingName: "feet"}
	_, err := x.Extract(payloadPath, tmp, "feet_data")
	if failure.KindOf(err) != failure.KindArchive {
		t.Fatalf("want archive error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "feet_data")); err == nil {
		t.Error("runtime directory should not exist")
	}
}

func TestExtractNotAnArchive(t *testing.T) {
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "feet", []byte("just an executable, no payload"))

	x := &Extractor{StagingName: "feet"}
	_, err := x.Extract(payloadPath, tmp, "feet_data")
	if failure.KindOf(err) != failure.KindArchive {
		t.Fatalf("want archive error, got %v", err)
	}
	if !errors.Is(err, zip.ErrFormat) {
		t.Errorf("error %v does not wrap zip.ErrFormat", err)
	}
}

func TestExtractMissingPayload(t *testing.T) {
	x := &Extractor{}
	_, err := x.Extract(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir(), "feet_data")
	if failure.KindOf(err) != failure.KindArchive {
		t.Fatalf("want archive error, got %v", err)
	}
}

func TestExtractZstdEntries(t *testing.T) {
	tmp := t.TempDir()
	body := strings.Repeat("zstd compressed runtime file\n", 200)
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/lib/big.py", Body: body, Method: zstd.ZipMethodWinZip},
	}))

	x := &Extractor{StagingName: "feet"}
	if _, err := x.Extract(payloadPath, tmp, "feet_data"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tmp, "feet_data", "lib", "big.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != body {
		t.Error("zstd entry content mismatch")
	}
}

func TestExtractEntryTooLarge(t *testing.T) {
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/bomb.bin", Body: strings.Repeat("0", 1024)},
	}))

	x := &Extractor{StagingName: "feet", MaxEntryBytes: 512}
	_, err := x.Extract(payloadPath, tmp, "feet_data")
	if failure.KindOf(err) != failure.KindArchive {
		t.Fatalf("want archive error, got %v", err)
	}
	if !strings.Contains(err.Error(), "512 byte limit") {
		t.Errorf("unexpected message: %v", err)
	}
	assertNoStaging(t, tmp, "feet_data")
}

func TestExtractSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink entries require developer mode on Windows")
	}
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/bin/python3.8", Body: "#!interp", Mode: 0755},
		{Name: "feet/bin/python3", Body: "python3.8", Mode: fs.ModeSymlink | 0777},
	}))

	x := &Extractor{StagingName: "feet"}
	if _, err := x.Extract(payloadPath, tmp, "feet_data"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	link := filepath.Join(tmp, "feet_data", "bin", "python3")
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("Readlink failed: %v", err)
	}
	if target != "python3.8" {
		t.Errorf("link target = %q, want %q", target, "python3.8")
	}
}

func TestExtractRejectsEscapingSymlink(t *testing.T) {
	targets := []string{"../../../etc/passwd", "/etc/passwd", "../.."}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			tmp := t.TempDir()
			payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
				{Name: "feet/bin/escape", Body: target, Mode: fs.ModeSymlink | 0777},
			}))

			x := &Extractor{StagingName: "feet"}
			_, err := x.Extract(payloadPath, tmp, "feet_data")
			if !errors.Is(err, ErrUnsafeName) {
				t.Fatalf("want ErrUnsafeName, got %v", err)
			}
		})
	}
}

func TestExtractRejectsChainedSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink entries require developer mode on Windows")
	}
	tests := []struct {
		name    string
		entries []testEntry
	}{
		{
			name: "file below a symlink",
			entries: []testEntry{
				{Name: "feet/x/y/", Mode: fs.ModeDir | 0755},
				{Name: "feet/x/y/d", Body: "../..", Mode: fs.ModeSymlink | 0777},
				{Name: "feet/x/y/d/e", Body: "../..", Mode: fs.ModeSymlink | 0777},
				{Name: "feet/x/y/d/e/pwned.txt", Body: "escaped"},
			},
		},
		{
			name: "target through an earlier symlink",
			entries: []testEntry{
				{Name: "feet/up", Body: ".", Mode: fs.ModeSymlink | 0777},
				{Name: "feet/esc", Body: "up/..", Mode: fs.ModeSymlink | 0777},
				{Name: "feet/pwned.txt", Body: "escaped"},
			},
		},
		{
			name: "symlink placed where an earlier target expects a directory",
			entries: []testEntry{
				{Name: "feet/q/", Mode: fs.ModeDir | 0755},
				{Name: "feet/q/a", Body: "b/../..", Mode: fs.ModeSymlink | 0777},
				{Name: "feet/q/b", Body: ".", Mode: fs.ModeSymlink | 0777},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, tt.entries))

			x := &Extractor{StagingName: "feet"}
			_, err := x.Extract(payloadPath, tmp, "feet_data")
			if !errors.Is(err, ErrUnsafeName) {
				t.Fatalf("want ErrUnsafeName, got %v", err)
			}
			if _, err := os.Lstat(filepath.Join(tmp, "pwned.txt")); err == nil {
				t.Error("file written outside the runtime directory")
			}
			if _, err := os.Lstat(filepath.Join(tmp, "feet_data")); err == nil {
				t.Error("runtime directory created for a rejected payload")
			}
			assertNoStaging(t, tmp, "feet_data")
		})
	}
}

func TestExtractAllowsLinksBetweenEntries(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink entries require developer mode on Windows")
	}
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/lib/os.py", Body: "os"},
		{Name: "feet/lib64", Body: "lib", Mode: fs.ModeSymlink | 0777},
		{Name: "feet/bin/python3.8", Body: "#!interp", Mode: 0755},
		{Name: "feet/bin/python3", Body: "python3.8", Mode: fs.ModeSymlink | 0777},
		{Name: "feet/bin/python", Body: "python3", Mode: fs.ModeSymlink | 0777},
		{Name: "feet/bin/stdlib", Body: "../lib64", Mode: fs.ModeSymlink | 0777},
	}))

	x := &Extractor{StagingName: "feet"}
	if _, err := x.Extract(payloadPath, tmp, "feet_data"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tmp, "feet_data", "bin", "stdlib", "os.py"))
	if err != nil || string(data) != "os" {
		t.Errorf("bin/stdlib/os.py = %q, %v", data, err)
	}
	data, err = os.ReadFile(filepath.Join(tmp, "feet_data", "bin", "python"))
	if err != nil || string(data) != "#!interp" {
		t.Errorf("bin/python = %q, %v", data, err)
	}
}

func TestExtractReadOnlyDirectory(t *testing.T) {
	if !platform.SupportsPermissions() {
		t.Skip("POSIX permissions are not applied on Windows")
	}
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/ro/", Mode: fs.ModeDir | 0555},
		{Name: "feet/ro/file.txt", Body: "inside", Mode: 0444},
	}))

	x := &Extractor{StagingName: "feet"}
	if _, err := x.Extract(payloadPath, tmp, "feet_data"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	ro := filepath.Join(tmp, "feet_data", "ro")
	t.Cleanup(func() { os.Chmod(ro, 0755) })

	info, err := os.Stat(ro)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0555 {
		t.Errorf("ro/ permissions = %o, want %o", perm, 0555)
	}
	if _, err := os.Stat(filepath.Join(ro, "file.txt")); err != nil {
		t.Errorf("file below read-only directory missing: %v", err)
	}
}

func TestExtractReusesConcurrentWinner(t *testing.T) {
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/feet.py", Body: "ours"},
	}))

	// Another launcher already renamed its complete copy into place.
	winner := filepath.Join(tmp, "feet_data")
	if err := os.MkdirAll(winner, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(winner, "feet.py"), []byte("theirs"), 0644); err != nil {
		t.Fatal(err)
	}

	x := &Extractor{StagingName: "feet"}
	res, err := x.Extract(payloadPath, tmp, "feet_data")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !res.Reused {
		t.Error("expected Reused to be true")
	}
	data, _ := os.ReadFile(filepath.Join(winner, "feet.py"))
	if string(data) != "theirs" {
		t.Errorf("winner's copy was replaced: %q", data)
	}
	assertNoStaging(t, tmp, "feet_data")
}

func TestOpenEntries(t *testing.T) {
	tmp := t.TempDir()
	payloadPath := writePayload(t, tmp, "p.zip", buildZip(t, []testEntry{
		{Name: "feet/", Mode: fs.ModeDir | 0755},
		{Name: "feet/tool", Body: "x", Mode: 0755},
		{Name: "feet/plain.txt", Body: "y"},
	}))

	a, err := Open(payloadPath)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	entries := a.Entries()
	if len(entries) != 3 || a.Len() != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	if !entries[0].IsDir {
		t.Error("feet/ should be a directory")
	}
	if !entries[1].HasMode || entries[1].Mode != 0755 {
		t.Errorf("feet/tool mode = %v (has=%v), want 0755", entries[1].Mode, entries[1].HasMode)
	}
	if entries[2].HasMode {
		t.Error("feet/plain.txt has no stored mode")
	}
}

func TestSelect(t *testing.T) {
	tmp := t.TempDir()
	exe := writePayload(t, tmp, "game", []byte("exe"))

	got, err := Select(exe, "game", "")
	if err != nil || got != exe {
		t.Errorf("Select without adjacent zip = %q, %v; want the executable", got, err)
	}

	adjacent := writePayload(t, tmp, "game.zip", []byte("zip"))
	got, err = Select(exe, "game", "")
	if err != nil || got != adjacent {
		t.Errorf("Select with adjacent zip = %q, %v; want %q", got, err, adjacent)
	}

	override := writePayload(t, tmp, "custom.zip", []byte("zip"))
	got, err = Select(exe, "game", override)
	if err != nil || got != override {
		t.Errorf("Select with override = %q, %v; want %q", got, err, override)
	}

	_, err = Select(exe, "game", filepath.Join(tmp, "missing.zip"))
	if failure.KindOf(err) != failure.KindArchive {
		t.Errorf("missing override: want archive error, got %v", err)
	}
}

// assertNoStaging fails if temporary staging directories remain in parent.
func assertNoStaging(t *testing.T, parent, name string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(parent, StagingPattern(name)))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("leftover staging directories: %v", matches)
	}
}

