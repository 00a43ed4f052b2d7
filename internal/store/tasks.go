package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

const (
	taskColumns = "id, name, submitted, started, finished, arguments, status, message, processid, user_id"

	queryTaskInsert = `
		INSERT INTO execute_log (name, submitted, started, finished, arguments, status, message, processid, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	queryTaskGet    = "SELECT " + taskColumns + " FROM execute_log WHERE id = $1"
	queryTaskUpdate = `
		UPDATE execute_log
		SET started = $2, finished = $3, arguments = $4, status = $5, message = $6, processid = $7
		WHERE id = $1`
	queryUserID = "SELECT id FROM common_user WHERE username = $1"
)

// TaskStore implements erpsync.TaskStore on frePPLe's execute_log table.
type TaskStore struct {
	conn erpsync.DBConnection
}

// NewTaskStore creates a TaskStore. Panics if conn is nil.
func NewTaskStore(conn erpsync.DBConnection) *TaskStore {
	if conn == nil {
		panic("conn cannot be nil")
	}
	return &TaskStore{conn: conn}
}

// Create inserts task and sets its ID.
func (s *TaskStore) Create(ctx context.Context, task *erpsync.Task) error {
	err := s.conn.QueryRow(ctx, queryTaskInsert,
		task.Name, task.Submitted, task.Started, task.Finished, task.Arguments,
		string(task.Status), task.Message, task.ProcessID, task.UserID,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Get loads a task by ID.
func (s *TaskStore) Get(ctx context.Context, id int64) (*erpsync.Task, error) {
	var (
		t         erpsync.Task
		status    string
		arguments *string
		message   *string
	)
	err := s.conn.QueryRow(ctx, queryTaskGet, id).Scan(
		&t.ID, &t.Name, &t.Submitted, &t.Started, &t.Finished,
		&arguments, &status, &message, &t.ProcessID, &t.UserID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, erpsync.ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %d: %w", id, err)
	}
	t.Status = erpsync.TaskStatus(status)
	if arguments != nil {
		t.Arguments = *arguments
	}
	if message != nil {
		t.Message = *message
	}
	return &t, nil
}

// Save writes the mutable fields of task.
func (s *TaskStore) Save(ctx context.Context, task *erpsync.Task) error {
	tag, err := s.conn.Exec(ctx, queryTaskUpdate,
		task.ID, task.Started, task.Finished, task.Arguments,
		string(task.Status), task.Message, task.ProcessID,
	)
	if err != nil {
		return fmt.Errorf("failed to save task %d: %w", task.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %d: %w", task.ID, erpsync.ErrTaskNotFound)
	}
	return nil
}

// ResolveUser returns the ID of the frePPLe user with the given username.
func (s *TaskStore) ResolveUser(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, queryUserID, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("unknown user %q: %w", username, erpsync.ErrInvalidConfig)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user %q: %w", username, err)
	}
	return id, nil
}

var _ erpsync.TaskStore = (*TaskStore)(nil)
