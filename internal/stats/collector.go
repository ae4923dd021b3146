// Package stats tracks run counters with lock-free atomics.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector accumulates pipeline counters. Safe for concurrent use.
type Collector struct {
	filesScanned    atomic.Int64
	filesSkipped    atomic.Int64
	filesTranslated atomic.Int64
	filesFailed     atomic.Int64
	cuesTranslated  atomic.Int64
	retries         atomic.Int64
	startTime       time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddFilesScanned(n int64)    { c.filesScanned.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)    { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesTranslated(n int64) { c.filesTranslated.Add(n) }
func (c *Collector) AddFilesFailed(n int64)     { c.filesFailed.Add(n) }
func (c *Collector) AddCuesTranslated(n int64)  { c.cuesTranslated.Add(n) }
func (c *Collector) AddRetries(n int64)         { c.retries.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned    int64
	FilesSkipped    int64
	FilesTranslated int64
	FilesFailed     int64
	CuesTranslated  int64
	Retries         int64
	Elapsed         time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned:    c.filesScanned.Load(),
		FilesSkipped:    c.filesSkipped.Load(),
		FilesTranslated: c.filesTranslated.Load(),
		FilesFailed:     c.filesFailed.Load(),
		CuesTranslated:  c.cuesTranslated.Load(),
		Retries:         c.retries.Load(),
		Elapsed:         c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d skipped=%d translated=%d failed=%d cues=%d retries=%d",
		s.FilesScanned, s.FilesSkipped, s.FilesTranslated, s.FilesFailed,
		s.CuesTranslated, s.Retries,
	)
}
