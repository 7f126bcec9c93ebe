package service

import (
	"context"
	"math"
	"strings"

	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/model"
	"github.com/and161185/calorie-tracker/internal/repository"
)

// FoodService defines operations over the food catalog.
type FoodService interface {
	// Visible lists the user's own foods and the shared system foods.
	Visible(ctx context.Context, userID int64) ([]model.Food, error)
	// Add stores a new food owned by the user.
	Add(ctx context.Context, userID int64, f model.Food) (model.Food, error)
}

type FoodServiceImpl struct {
	repo repository.FoodRepository
}

// NewFoodService constructs FoodService.
func NewFoodService(repo repository.FoodRepository) *FoodServiceImpl {
	return &FoodServiceImpl{repo: repo}
}

// Visible returns foods ordered by name.
func (s *FoodServiceImpl) Visible(ctx context.Context, userID int64) ([]model.Food, error) {
	if userID <= 0 {
		return nil, errs.Invalid("empty user")
	}
	return s.repo.ListVisible(ctx, userID)
}

// Add validates and stores f under userID.
// Validation rules:
// - trimmed name not empty
// - base weight > 0
// - nutrients >= 0 and finite
func (s *FoodServiceImpl) Add(ctx context.Context, userID int64, f model.Food) (model.Food, error) {
	if userID <= 0 {
		return model.Food{}, errs.Invalid("empty user")
	}
	if err := ValidateFood(&f); err != nil {
		return model.Food{}, err
	}
	f.UserID = userID
	id, err := s.repo.Create(ctx, &f)
	if err != nil {
		return model.Food{}, err
	}
	f.ID = id
	return f, nil
}

// ValidateFood normalizes the name and checks weight and nutrient ranges.
func ValidateFood(f *model.Food) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return errs.Invalid("name must not be empty")
	}
	if !positive(f.BaseWeight) {
		return errs.Invalid("base weight must be positive")
	}
	for name, v := range map[string]float64{
		"calories":      f.Calories,
		"proteins":      f.Proteins,
		"fats":          f.Fats,
		"carbohydrates": f.Carbohydrates,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errs.Invalid(name + " must be non-negative")
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
