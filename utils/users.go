package utils

import (
	"context"
	"errors"
	"fmt"

	"taskr/models"

	"github.com/jackc/pgx/v5"
)

type UserStore interface {
	UserExists(ctx context.Context, name, email string) (bool, error)
	InsertUser(ctx context.Context, u models.User) (int64, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
}

// UserExists reports whether the name or the email is already taken.
func (db *DB) UserExists(ctx context.Context, name, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stmt := "SELECT EXISTS(SELECT 1 FROM users WHERE name = $1 OR email = $2)"

	var exists bool
	if err := db.pool.QueryRow(ctx, stmt, name, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("database error checking user: %w", err)
	}
	return exists, nil
}

func (db *DB) InsertUser(ctx context.Context, u models.User) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stmt := "INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id;"

	var id int64
	err := db.pool.QueryRow(ctx, stmt, u.Name, u.Email, u.PasswordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}
	return id, nil
}

func (db *DB) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stmt := "SELECT id, name, email, password FROM users WHERE name = $1;"

	u := &models.User{}
	err := db.pool.QueryRow(ctx, stmt, name).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return u, nil
}
