// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// ErrUserExists indicates a user with the same username already exists.
var ErrUserExists = errors.New("user already exists")

// UserStore defines the driven port for admin credential persistence.
// Get methods return nil, nil when no matching user exists.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
