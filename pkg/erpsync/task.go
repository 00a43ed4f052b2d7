package erpsync

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the status column of a frePPLe task: a fixed state or a percentage.
type TaskStatus string

const (
	TaskWaiting TaskStatus = "Waiting"
	TaskDone    TaskStatus = "Done"
	TaskFailed  TaskStatus = "Failed"
)

// TaskProgress returns the Running status for a completion percentage.
func TaskProgress(percent int) TaskStatus {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return TaskStatus(fmt.Sprintf("%d%%", percent))
}

// IsRunning reports whether the status is a percentage.
func (s TaskStatus) IsRunning() bool {
	return strings.HasSuffix(string(s), "%")
}

// IsFinal reports whether the task reached Done or Failed.
func (s TaskStatus) IsFinal() bool {
	return s == TaskDone || s == TaskFailed
}

// Task is the job-control record consumed by the task monitoring screen.
type Task struct {
	ID        int64
	Name      string
	Submitted time.Time
	Started   *time.Time
	Finished  *time.Time
	Arguments string
	Status    TaskStatus
	Message   string
	ProcessID *int
	UserID    *int64
}

// Claimable reports whether a pass may take over this task.
func (t *Task) Claimable(name string) bool {
	return t.Started == nil && t.Finished == nil && t.Status == TaskWaiting && t.Name == name
}

// TaskStore persists task records.
type TaskStore interface {
	// Create inserts a new task and returns it with its identifier set.
	Create(ctx context.Context, task *Task) error

	// Get loads a task by identifier. Returns ErrTaskNotFound when absent.
	Get(ctx context.Context, id int64) (*Task, error)

	// Save writes the mutable fields of an existing task.
	Save(ctx context.Context, task *Task) error

	// ResolveUser returns the identifier of a frePPLe user. Returns ErrInvalidConfig when absent.
	ResolveUser(ctx context.Context, username string) (int64, error)
}

// ProgressReporter observes a pass. Calls happen on the goroutine running the pass.
type ProgressReporter interface {
	// EntityStarted is called before an entity type is extracted.
	EntityStarted(entity string, index, total int)

	// EntityFinished is called after an entity type committed or was rolled back.
	EntityFinished(outcome EntityOutcome, percent int)

	// Finished is called once with the final report.
	Finished(report *SyncReport)
}
