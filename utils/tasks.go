package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskr/models"

	"github.com/jackc/pgx/v5"
)

// TaskOrder selects how task lists are sorted. Only the values in
// orderClauses ever reach SQL.
type TaskOrder string

const (
	OrderByID       TaskOrder = "task_id"
	OrderByDueDate  TaskOrder = "due_date"
	OrderByPriority TaskOrder = "priority"
)

var orderClauses = map[TaskOrder]string{
	OrderByID:       "task_id ASC",
	OrderByDueDate:  "due_date ASC, task_id ASC",
	OrderByPriority: "priority DESC, task_id ASC",
}

func ParseTaskOrder(s string) (TaskOrder, error) {
	o := TaskOrder(s)
	if _, ok := orderClauses[o]; !ok {
		return "", fmt.Errorf("unknown task order %q", s)
	}
	return o, nil
}

func (o TaskOrder) clause() string {
	if c, ok := orderClauses[o]; ok {
		return c
	}
	return orderClauses[OrderByID]
}

type TaskStore interface {
	InsertTask(ctx context.Context, t models.Task) (int64, error)
	GetTasks(ctx context.Context, userID int64, status int, order TaskOrder) ([]models.Task, error)
	GetTask(ctx context.Context, taskID int64) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID, userID int64, status int) error
	DeleteTask(ctx context.Context, taskID, userID int64) error
}

func (db *DB) InsertTask(ctx context.Context, t models.Task) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stmt := `INSERT INTO tasks (name, due_date, priority, status, posted_date, user_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING task_id;`

	var id int64
	err := db.pool.QueryRow(ctx, stmt, t.Name, t.DueDate, t.Priority, t.Status, t.PostedDate, t.UserID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save task: %w", err)
	}
	return id, nil
}

func (db *DB) GetTasks(ctx context.Context, userID int64, status int, order TaskOrder) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stmt := `SELECT task_id, name, due_date, priority, status, posted_date, user_id
		FROM tasks WHERE user_id = $1 AND status = $2 ORDER BY ` + order.clause()

	rows, err := db.pool.Query(ctx, stmt, userID, status)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t := models.Task{}
		err := rows.Scan(&t.ID, &t.Name, &t.DueDate, &t.Priority, &t.Status, &t.PostedDate, &t.UserID)
		if err != nil {
			return nil, fmt.Errorf("error scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error processing tasks: %w", err)
	}
	return tasks, nil
}

func (db *DB) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stmt := `SELECT task_id, name, due_date, priority, status, posted_date, user_id
		FROM tasks WHERE task_id = $1;`

	t := &models.Task{}
	err := db.pool.QueryRow(ctx, stmt, taskID).
		Scan(&t.ID, &t.Name, &t.DueDate, &t.Priority, &t.Status, &t.PostedDate, &t.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("looking up task: %w", err)
	}
	return t, nil
}

func (db *DB) UpdateTaskStatus(ctx context.Context, taskID, userID int64, status int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := db.pool.Exec(ctx, "UPDATE tasks SET status = $1 WHERE task_id = $2 AND user_id = $3", status, taskID, userID)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (db *DB) DeleteTask(ctx context.Context, taskID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := db.pool.Exec(ctx, "DELETE FROM tasks WHERE task_id = $1 AND user_id = $2;", taskID, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListTasks returns the user's open and closed tasks.
func ListTasks(ctx context.Context, store TaskStore, userID int64, order TaskOrder) (open, closed []models.Task, err error) {
	open, err = store.GetTasks(ctx, userID, models.StatusOpen, order)
	if err != nil {
		return nil, nil, err
	}
	closed, err = store.GetTasks(ctx, userID, models.StatusClosed, order)
	if err != nil {
		return nil, nil, err
	}
	return open, closed, nil
}

// AddTask validates the raw form values and stores a new open task owned by
// userID.
func AddTask(ctx context.Context, store TaskStore, userID int64, name, dueDate, priority string) (*models.Task, error) {
	input, err := ValidateTaskInput(name, dueDate, priority)
	if err != nil {
		return nil, err
	}

	t := models.Task{
		Name:       input.Name,
		DueDate:    input.DueDate,
		Priority:   input.Priority,
		Status:     models.StatusOpen,
		PostedDate: time.Now().UTC(),
		UserID:     userID,
	}
	t.ID, err = store.InsertTask(ctx, t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask closes a task the user owns.
func CompleteTask(ctx context.Context, store TaskStore, userID, taskID int64) error {
	if err := checkOwner(ctx, store, userID, taskID); err != nil {
		return err
	}
	return store.UpdateTaskStatus(ctx, taskID, userID, models.StatusClosed)
}

// DeleteTask removes a task the user owns.
func DeleteTask(ctx context.Context, store TaskStore, userID, taskID int64) error {
	if err := checkOwner(ctx, store, userID, taskID); err != nil {
		return err
	}
	return store.DeleteTask(ctx, taskID, userID)
}

func checkOwner(ctx context.Context, store TaskStore, userID, taskID int64) error {
	t, err := store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		log.Printf("user %d tried to modify task %d owned by user %d", userID, taskID, t.UserID)
		return ErrNotAuthorized
	}
	return nil
}
