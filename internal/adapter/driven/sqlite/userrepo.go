package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user. Returns driven.ErrUserExists when the username is taken.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string) (model.User, error) {
	const query = `INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`

	user := model.User{Username: username, PasswordHash: passwordHash}
	err := r.db.Writer.QueryRowContext(ctx, query, username, passwordHash).Scan(&user.ID)
	if isUniqueViolation(err) {
		return model.User{}, fmt.Errorf("create user %s: %w", username, driven.ErrUserExists)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user %s: %w", username, err)
	}
	return user, nil
}

// GetByID returns the user with id, or nil, nil.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT id, username, password_hash FROM users WHERE id = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// GetByUsername returns the user named username, or nil, nil.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT id, username, password_hash FROM users WHERE username = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return user, nil
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}
