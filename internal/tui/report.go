package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

var reportHeaders = []string{"entity", "read", "inserted", "updated", "unchanged", "skipped", "errors", "time"}

// RenderReport formats a finished pass as a table followed by the task status.
func RenderReport(report *erpsync.SyncReport) string {
	rows := make([][]string, 0, len(report.Entities)+1)
	failed := make(map[int]bool)
	for i, e := range report.Entities {
		rows = append(rows, resultRow(e.Result))
		if e.Err != nil {
			failed[i] = true
		}
	}
	if len(report.Entities) > 1 {
		rows = append(rows, resultRow(report.Totals()))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle).
		Headers(reportHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle
			case failed[row]:
				return CellStyle.Foreground(ColorError)
			case col > 0:
				return CellStyle.Align(lipgloss.Right)
			}
			return CellStyle
		})

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")

	status := fmt.Sprintf("Task %d %s", report.TaskID, report.Status)
	if report.Message != "" {
		status += ": " + report.Message
	}
	switch report.Status {
	case erpsync.TaskDone:
		if len(report.Failed()) > 0 {
			b.WriteString(WarningStyle.Render(SymbolWarning + " " + status))
		} else {
			b.WriteString(SuccessStyle.Render(SymbolCheck + " " + status))
		}
	case erpsync.TaskFailed:
		b.WriteString(ErrorStyle.Render(SymbolCross + " " + status))
	default:
		b.WriteString(status)
	}
	b.WriteString("\n")

	for _, e := range report.Entities {
		for _, re := range e.Result.RowErrors {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("  %s %s %s", SymbolBullet, e.Result.Entity, re.Error())))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func resultRow(r erpsync.SyncResult) []string {
	return []string{
		r.Entity,
		strconv.Itoa(r.Read),
		strconv.Itoa(r.Inserted),
		strconv.Itoa(r.Updated),
		strconv.Itoa(r.Unchanged),
		strconv.Itoa(r.Skipped),
		strconv.Itoa(r.Errors),
		r.Duration.Round(time.Millisecond).String(),
	}
}
