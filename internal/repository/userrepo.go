// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/calorie-tracker/internal/model"
)

// UserRepository provides access to accounts.
type UserRepository interface {
	// Create inserts a new user and returns its ID.
	Create(ctx context.Context, u *model.User) (int64, error)
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
