package payload

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// summaryEvery is how many entries pass between percentage summaries.
const summaryEvery = 100

// Observer receives extraction progress. Calls arrive in archive order from
// the extracting goroutine.
type Observer interface {
	// Begin is called once before the first entry with the entry count.
	Begin(total int)
	// Extracted is called after each entry has been written.
	Extracted(e Entry, total int)
	// End is called once after the runtime directory is in place.
	End()
}

// Discard is an Observer that reports nothing.
var Discard Observer = discard{}

type discard struct{}

func (discard) Begin(int)            {}
func (discard) Extracted(Entry, int) {}
func (discard) End()                 {}

// Progress prints a one-line banner, a dot per entry, and a percentage with
// running count every hundred entries.
type Progress struct {
	w       io.Writer
	title   string
	printer *message.Printer
}

// NewProgress returns a Progress writing to w. title is printed by Begin.
func NewProgress(w io.Writer, title string) *Progress {
	return &Progress{
		w:       w,
		title:   title,
		printer: message.NewPrinter(language.English),
	}
}

// Begin prints the banner.
func (p *Progress) Begin(total int) {
	p.printer.Fprintf(p.w, "%s (%d files, one-time operation)\n", p.title, total)
}

// Extracted prints the per-entry mark and, periodically, a summary.
func (p *Progress) Extracted(e Entry, total int) {
	done := e.Index + 1
	if done%summaryEvery == 0 {
		p.printer.Fprintf(p.w, " %d%% (%d/%d)\n", done*100/total, done, total)
		return
	}
	io.WriteString(p.w, ".")
}

// End terminates the progress line.
func (p *Progress) End() {
	io.WriteString(p.w, " done!\n")
}
