package models

import "time"

const (
	StatusClosed = 0
	StatusOpen   = 1
)

type Task struct {
	ID         int64     `db:"task_id"`
	Name       string    `db:"name"`
	DueDate    time.Time `db:"due_date"`
	Priority   int       `db:"priority"`
	Status     int       `db:"status"`
	PostedDate time.Time `db:"posted_date"`
	UserID     int64     `db:"user_id"`
}

// IsOpen reports whether the task has not been completed yet.
func (t Task) IsOpen() bool {
	return t.Status == StatusOpen
}
