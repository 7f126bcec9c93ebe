package convert

import (
	"github.com/and161185/calorie-tracker/internal/model"
	"github.com/and161185/calorie-tracker/internal/nutrition"
)

// NutrientsView is the JSON form of a nutrient quadruple, rounded to 2 decimals.
type NutrientsView struct {
	Calories      float64 `json:"calories"`
	Proteins      float64 `json:"proteins"`
	Fats          float64 `json:"fats"`
	Carbohydrates float64 `json:"carbohydrates"`
}

// FoodView is a catalog entry as listed to the user.
type FoodView struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	BaseWeight float64 `json:"base_weight"`
	Shared     bool    `json:"shared"`
	NutrientsView
}

// StatisticsView is one stored day in the history list.
type StatisticsView struct {
	Date string `json:"date"`
	NutrientsView
}

// ItemView is one consumed food of a day.
type ItemView struct {
	FoodID int64   `json:"food_id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	NutrientsView
}

// DailyView is a day's totals with its per-food breakdown.
type DailyView struct {
	Date   string        `json:"date"`
	Totals NutrientsView `json:"totals"`
	Items  []ItemView    `json:"items"`
}

// UserView is the publicly visible part of an account.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ToNutrientsView rounds n for display.
func ToNutrientsView(n model.Nutrients) NutrientsView {
	r := nutrition.RoundNutrients(n)
	return NutrientsView{
		Calories:      r.Calories,
		Proteins:      r.Proteins,
		Fats:          r.Fats,
		Carbohydrates: r.Carbohydrates,
	}
}

// ToFoodViews marks foods owned by systemID as shared.
func ToFoodViews(in []model.Food, systemID int64) []FoodView {
	out := make([]FoodView, 0, len(in))
	for _, f := range in {
		out = append(out, FoodView{
			ID:            f.ID,
			Name:          f.Name,
			BaseWeight:    f.BaseWeight,
			Shared:        f.UserID == systemID,
			NutrientsView: ToNutrientsView(f.Nutrients),
		})
	}
	return out
}

// ToStatisticsViews converts the history list, preserving order.
func ToStatisticsViews(in []model.Statistics) []StatisticsView {
	out := make([]StatisticsView, 0, len(in))
	for _, s := range in {
		out = append(out, StatisticsView{
			Date:          s.Date.Format(model.DateLayout),
			NutrientsView: ToNutrientsView(s.Nutrients),
		})
	}
	return out
}

// ToDailyView converts a day's totals and items.
func ToDailyView(ds *model.DailyStatistics) DailyView {
	if ds == nil {
		return DailyView{Items: []ItemView{}}
	}
	items := make([]ItemView, 0, len(ds.Items))
	for _, it := range ds.Items {
		items = append(items, ItemView{
			FoodID:        it.FoodID,
			Name:          it.Name,
			Weight:        it.Weight,
			NutrientsView: ToNutrientsView(it.Nutrients),
		})
	}
	return DailyView{
		Date:   ds.Date.Format(model.DateLayout),
		Totals: ToNutrientsView(ds.Nutrients),
		Items:  items,
	}
}

// ToUserView hides the password hash.
func ToUserView(u model.User) UserView {
	return UserView{ID: u.ID, Username: u.Username}
}
