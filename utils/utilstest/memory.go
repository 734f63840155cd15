// Package utilstest provides an in-memory stand-in for the PostgreSQL stores
// in package utils. It follows the same contracts: unique names and emails,
// ascending ids, ownership-scoped updates.
package utilstest

import (
	"context"
	"sort"
	"sync"

	"taskr/models"
	"taskr/utils"
)

type MemoryStore struct {
	mu         sync.Mutex
	users      []models.User
	tasks      map[int64]models.Task
	nextUserID int64
	nextTaskID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: map[int64]models.Task{}}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) UserExists(_ context.Context, name, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Name == name || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) InsertUser(_ context.Context, u models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Name == u.Name || existing.Email == u.Email {
			return 0, utils.ErrDuplicateUser
		}
	}
	m.nextUserID++
	u.ID = m.nextUserID
	m.users = append(m.users, u)
	return u.ID, nil
}

func (m *MemoryStore) GetUserByName(_ context.Context, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Name == name {
			return &u, nil
		}
	}
	return nil, utils.ErrUserNotFound
}

func (m *MemoryStore) InsertTask(_ context.Context, t models.Task) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTaskID++
	t.ID = m.nextTaskID
	m.tasks[t.ID] = t
	return t.ID, nil
}

func (m *MemoryStore) GetTasks(_ context.Context, userID int64, status int, order utils.TaskOrder) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := []models.Task{}
	for _, t := range m.tasks {
		if t.UserID == userID && t.Status == status {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch order {
		case utils.OrderByDueDate:
			if !a.DueDate.Equal(b.DueDate) {
				return a.DueDate.Before(b.DueDate)
			}
		case utils.OrderByPriority:
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
		}
		return a.ID < b.ID
	})
	return tasks, nil
}

func (m *MemoryStore) GetTask(_ context.Context, taskID int64) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, utils.ErrTaskNotFound
	}
	return &t, nil
}

func (m *MemoryStore) UpdateTaskStatus(_ context.Context, taskID, userID int64, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return utils.ErrTaskNotFound
	}
	t.Status = status
	m.tasks[taskID] = t
	return nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, taskID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return utils.ErrTaskNotFound
	}
	delete(m.tasks, taskID)
	return nil
}

// TaskCount returns the number of stored tasks of any status and owner.
func (m *MemoryStore) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Task returns a copy of the stored task and whether it exists.
func (m *MemoryStore) Task(taskID int64) (models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	return t, ok
}
