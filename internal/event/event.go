// Package event carries progress notifications from the pipeline to
// the frontend without ever blocking a worker.
package event

import (
	"sync"
	"time"
)

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileSkipped
	FileStarted
	FileCompleted
	FileFailed
	Committed
	RolledBack
)

var typeNames = [...]string{
	ScanStarted:   "ScanStarted",
	ScanComplete:  "ScanComplete",
	FileSkipped:   "FileSkipped",
	FileStarted:   "FileStarted",
	FileCompleted: "FileCompleted",
	FileFailed:    "FileFailed",
	Committed:     "Committed",
	RolledBack:    "RolledBack",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single progress notification.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // relative path
	Completed int    // tasks finished so far (completion events)
	Total     int    // total tasks in scope
	Err       error
}

// ProgressFunc receives (completed, total) after each task completes.
// It may be called from multiple goroutines.
type ProgressFunc func(completed, total int)

// Notifier fans events out to an optional channel and progress
// callback. Channel sends are non-blocking: a slow consumer drops
// events rather than stalling a worker.
type Notifier struct {
	ch       chan<- Event
	progress ProgressFunc

	mu        sync.Mutex
	completed int
	total     int
}

// NewNotifier creates a notifier. Either sink may be nil.
func NewNotifier(ch chan<- Event, progress ProgressFunc) *Notifier {
	return &Notifier{ch: ch, progress: progress}
}

// SetTotal records the number of tasks in scope for progress reporting.
func (n *Notifier) SetTotal(total int) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.total = total
	n.mu.Unlock()
}

// Publish emits an event. Completion-type events advance the progress
// counter and invoke the progress callback.
func (n *Notifier) Publish(ev Event) {
	if n == nil {
		return
	}
	ev.Timestamp = time.Now()

	// Skips happen during discovery, before the task total is known,
	// so only worker completions advance the progress counter.
	switch ev.Type {
	case FileCompleted, FileFailed:
		n.mu.Lock()
		n.completed++
		ev.Completed = n.completed
		ev.Total = n.total
		progress, completed, total := n.progress, n.completed, n.total
		n.mu.Unlock()
		if progress != nil {
			progress(completed, total)
		}
	}

	if n.ch != nil {
		select {
		case n.ch <- ev:
		default:
		}
	}
}

// Completed returns the number of completion events published so far.
func (n *Notifier) Completed() int {
	if n == nil {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.completed
}
