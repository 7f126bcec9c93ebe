// Package nutrition implements the weight scaling and daily aggregation math.
package nutrition

import (
	"fmt"
	"math"
	"sort"

	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/model"
)

// Scale converts a nutrient value defined per baseWeight into the value for weight.
func Scale(value, weight, baseWeight float64) float64 {
	return value * weight / baseWeight
}

// Round2 rounds v to 2 decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScaleNutrients applies Scale to every component of n.
func ScaleNutrients(n model.Nutrients, weight, baseWeight float64) model.Nutrients {
	return model.Nutrients{
		Calories:      Scale(n.Calories, weight, baseWeight),
		Proteins:      Scale(n.Proteins, weight, baseWeight),
		Fats:          Scale(n.Fats, weight, baseWeight),
		Carbohydrates: Scale(n.Carbohydrates, weight, baseWeight),
	}
}

// RoundNutrients applies Round2 to every component of n.
func RoundNutrients(n model.Nutrients) model.Nutrients {
	return model.Nutrients{
		Calories:      Round2(n.Calories),
		Proteins:      Round2(n.Proteins),
		Fats:          Round2(n.Fats),
		Carbohydrates: Round2(n.Carbohydrates),
	}
}

// Aggregate scales every selected food by its consumed weight and sums the result.
//
// Totals are accumulated from unrounded values; the returned items carry values
// rounded to 2 decimals and are ordered by food id. Every selected id must be
// present in foods.
func Aggregate(foods []model.Food, selections map[int64]float64) (model.Nutrients, []model.StatisticsItem, error) {
	if len(selections) == 0 {
		return model.Nutrients{}, nil, errs.Invalid("select at least one food")
	}
	byID := make(map[int64]model.Food, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}

	ids := make([]int64, 0, len(selections))
	for id := range selections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var total model.Nutrients
	items := make([]model.StatisticsItem, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			return model.Nutrients{}, nil, fmt.Errorf("food %d: %w", id, errs.ErrNotFound)
		}
		w := selections[id]
		if f.BaseWeight <= 0 {
			return model.Nutrients{}, nil, errs.Invalid(fmt.Sprintf("food %d has no base weight", id))
		}
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return model.Nutrients{}, nil, errs.Invalid(fmt.Sprintf("weight of food %d must be positive", id))
		}
		scaled := ScaleNutrients(f.Nutrients, w, f.BaseWeight)
		total = total.Add(scaled)
		items = append(items, model.StatisticsItem{
			FoodID:    id,
			Name:      f.Name,
			Weight:    w,
			Nutrients: RoundNutrients(scaled),
		})
	}
	return total, items, nil
}
