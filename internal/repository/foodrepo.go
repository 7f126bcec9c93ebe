package repository

import (
	"context"

	"github.com/and161185/calorie-tracker/internal/model"
)

// FoodRepository provides access to the food catalog.
type FoodRepository interface {
	// Create inserts a food owned by f.UserID and returns its ID.
	Create(ctx context.Context, f *model.Food) (int64, error)
	// ListVisible returns the user's own foods together with system-shared ones.
	ListVisible(ctx context.Context, userID int64) ([]model.Food, error)
	// UpsertBatch inserts or updates foods owned by ownerID, keyed by name,
	// and returns the number written. Foods referenced by statistics are not updated.
	UpsertBatch(ctx context.Context, ownerID int64, foods []model.Food) (int, error)
}
