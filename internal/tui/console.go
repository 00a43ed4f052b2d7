package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// ConsoleReporter prints one line per event. Safe for concurrent use.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// EntityStarted implements erpsync.ProgressReporter.
func (c *ConsoleReporter) EntityStarted(entity string, index, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%d/%d] %s\n", index+1, total, entity)
}

// EntityFinished implements erpsync.ProgressReporter.
func (c *ConsoleReporter) EntityFinished(outcome erpsync.EntityOutcome, percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if outcome.Err != nil {
		fmt.Fprintf(c.out, "%s %s rolled back: %v (%d%%)\n", SymbolCross, outcome.Result.Entity, outcome.Err, percent)
		return
	}
	fmt.Fprintf(c.out, "%s %s (%d%%)\n", SymbolCheck, outcome.Result.String(), percent)
}

// Finished implements erpsync.ProgressReporter.
func (c *ConsoleReporter) Finished(report *erpsync.SyncReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Task %d: %s\n", report.TaskID, report.Status)
}

var _ erpsync.ProgressReporter = (*ConsoleReporter)(nil)
