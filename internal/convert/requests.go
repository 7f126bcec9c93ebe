// Package convert maps HTTP payloads (JSON or urlencoded forms) to domain
// types and domain types to JSON views.
package convert

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/calorie-tracker/internal/errs"
	model "github.com/and161185/calorie-tracker/internal/model"
)

// DailyInputRequest is the JSON body of a statistics submission:
// {"date": "2024-01-01", "selections": {"12": 150}}.
type DailyInputRequest struct {
	Date       string             `json:"date"`
	Selections map[string]float64 `json:"selections"`
}

// FoodRequest is the JSON body of a new catalog entry.
type FoodRequest struct {
	Name          string  `json:"name"`
	BaseWeight    float64 `json:"base_weight"`
	Calories      float64 `json:"calories"`
	Proteins      float64 `json:"proteins"`
	Fats          float64 `json:"fats"`
	Carbohydrates float64 `json:"carbohydrates"`
}

// CredentialsRequest carries login and registration fields.
// Confirmation is only used on registration.
type CredentialsRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation,omitempty"`
}

// FromDailyInputRequest parses the date and the food id keys.
func FromDailyInputRequest(in DailyInputRequest) (model.DailyInput, error) {
	date, err := Date(in.Date)
	if err != nil {
		return model.DailyInput{}, err
	}
	sel := make(map[int64]float64, len(in.Selections))
	for k, w := range in.Selections {
		id, err := parseFoodID(k)
		if err != nil {
			return model.DailyInput{}, err
		}
		if _, dup := sel[id]; dup {
			return model.DailyInput{}, duplicateFood(id)
		}
		sel[id] = w
	}
	return model.DailyInput{Date: date, Selections: sel}, nil
}

// DailyInputFromForm reads the legacy selection form: a "date" field plus one
// "<food_id>=<weight>" field per food. Fields with empty values are skipped.
func DailyInputFromForm(form url.Values) (model.DailyInput, error) {
	var date string
	sel := map[int64]float64{}
	for key, vals := range form {
		v := firstNonEmpty(vals)
		if v == "" {
			continue
		}
		if key == "date" {
			date = v
			continue
		}
		id, err := parseFoodID(key)
		if err != nil {
			return model.DailyInput{}, err
		}
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.DailyInput{}, errs.Invalid(fmt.Sprintf("weight of food %d must be a number", id))
		}
		if _, dup := sel[id]; dup {
			return model.DailyInput{}, duplicateFood(id)
		}
		sel[id] = w
	}
	d, err := Date(date)
	if err != nil {
		return model.DailyInput{}, err
	}
	return model.DailyInput{Date: d, Selections: sel}, nil
}

// FromFoodRequest converts a JSON food body. Range checks live in the service.
func FromFoodRequest(in FoodRequest) model.Food {
	return model.Food{
		Name:       in.Name,
		BaseWeight: in.BaseWeight,
		Nutrients: model.Nutrients{
			Calories:      in.Calories,
			Proteins:      in.Proteins,
			Fats:          in.Fats,
			Carbohydrates: in.Carbohydrates,
		},
	}
}

// FoodFromForm reads the food form fields; every numeric field is required.
func FoodFromForm(form url.Values) (model.Food, error) {
	var req FoodRequest
	req.Name = form.Get("name")
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"base_weight", &req.BaseWeight},
		{"calories", &req.Calories},
		{"proteins", &req.Proteins},
		{"fats", &req.Fats},
		{"carbohydrates", &req.Carbohydrates},
	} {
		raw := strings.TrimSpace(form.Get(f.key))
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Food{}, errs.Invalid(f.key + " must be a number")
		}
		*f.dst = v
	}
	return FromFoodRequest(req), nil
}

// CredentialsFromForm reads username and password fields. The registration
// form names them password_1 and password_2.
func CredentialsFromForm(form url.Values) CredentialsRequest {
	c := CredentialsRequest{
		Username:     form.Get("username"),
		Password:     form.Get("password"),
		Confirmation: form.Get("password_2"),
	}
	if c.Password == "" {
		c.Password = form.Get("password_1")
	}
	return c
}

// Date parses a path or body date, classifying failures as invalid input.
func Date(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errs.Invalid("date is required")
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%v: %w", err, errs.Invalid("date must be YYYY-MM-DD"))
	}
	return d, nil
}

func parseFoodID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Invalid(fmt.Sprintf("bad food id %q", s))
	}
	return id, nil
}

func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func duplicateFood(id int64) error {
	return errs.Invalid(fmt.Sprintf("food %d selected more than once", id))
}
