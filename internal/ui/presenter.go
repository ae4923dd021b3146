// Package ui renders pipeline progress and the end-of-run summary.
package ui

import (
	"fmt"
	"io"

	"subtrans/internal/event"
	"subtrans/internal/stats"
)

// Config controls presenter output.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Quiet     bool
	Verbose   bool
	Stats     *stats.Collector
}

// Presenter consumes pipeline events and prints one line per outcome.
// It runs until the event channel closes.
type Presenter struct {
	cfg Config
}

// NewPresenter creates a presenter.
func NewPresenter(cfg Config) *Presenter {
	return &Presenter{cfg: cfg}
}

// Run drains events and prints them. Returns when the channel closes.
func (p *Presenter) Run(events <-chan event.Event) {
	for ev := range events {
		p.handleEvent(ev)
	}
}

func (p *Presenter) handleEvent(ev event.Event) {
	if p.cfg.Quiet && ev.Type != event.FileFailed && ev.Type != event.RolledBack {
		return
	}

	switch ev.Type {
	case event.ScanStarted:
		if p.cfg.Verbose {
			fmt.Fprintln(p.cfg.ErrWriter, "scanning...")
		}
	case event.ScanComplete:
		fmt.Fprintf(p.cfg.ErrWriter, "found %d file(s) to translate\n", ev.Total)
	case event.FileSkipped:
		if p.cfg.Verbose {
			fmt.Fprintf(p.cfg.Writer, "%s  unchanged\n", ev.Path)
		}
	case event.FileStarted:
		if p.cfg.Verbose {
			fmt.Fprintf(p.cfg.Writer, "%s  translating\n", ev.Path)
		}
	case event.FileCompleted:
		fmt.Fprintf(p.cfg.Writer, "%s  done (%d/%d)\n", ev.Path, ev.Completed, ev.Total)
	case event.FileFailed:
		errMsg := "error"
		if ev.Err != nil {
			errMsg = ev.Err.Error()
		}
		fmt.Fprintf(p.cfg.ErrWriter, "%s  FAILED: %s\n", ev.Path, errMsg)
	case event.Committed:
		fmt.Fprintln(p.cfg.ErrWriter, "committed")
	case event.RolledBack:
		fmt.Fprintln(p.cfg.ErrWriter, "rolled back, no files were changed")
	}
}

// Summary renders the end-of-run counters as a table.
func (p *Presenter) Summary() string {
	if p.cfg.Stats == nil {
		return ""
	}
	return RenderSummary(p.cfg.Stats.Snapshot())
}
