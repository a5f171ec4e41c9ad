package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress is a spinner shown while a network call is in flight.
// A quiet Progress prints nothing.
type Progress struct {
	s *spinner.Spinner
}

// StartProgress starts a spinner with msg on w.
func StartProgress(w io.Writer, quiet bool, msg string) *Progress {
	if quiet {
		return &Progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + msg
	s.Start()
	return &Progress{s: s}
}

// Stop removes the spinner.
func (p *Progress) Stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

// Fail replaces the spinner with a red failure line.
func (p *Progress) Fail(msg string) {
	if p.s != nil {
		p.s.FinalMSG = text.FgRed.Sprint(msg) + "\n"
		p.s.Stop()
	}
}
