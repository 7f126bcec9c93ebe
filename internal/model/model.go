// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire and in URLs.
const DateLayout = "2006-01-02"

// Tokens collects an issued session token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // token expiry, mirrored into the cookie
}

// User represents an account. The password is never stored in plaintext.
type User struct {
	ID       int64  // PK
	Username string // unique
	PwdHash  string // encoded Argon2id hash, see crypto.HashPassword
}

// Nutrients is a calories/macros quadruple. Its meaning (per base weight,
// scaled, or summed) depends on the owning entity.
type Nutrients struct {
	Calories      float64
	Proteins      float64
	Fats          float64
	Carbohydrates float64
}

// Add returns the component-wise sum of n and o.
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		Calories:      n.Calories + o.Calories,
		Proteins:      n.Proteins + o.Proteins,
		Fats:          n.Fats + o.Fats,
		Carbohydrates: n.Carbohydrates + o.Carbohydrates,
	}
}

// Food is a catalog entry. Nutrients are defined per BaseWeight.
type Food struct {
	ID         int64
	UserID     int64 // owner; the system owner id marks shared foods
	Name       string
	BaseWeight float64
	Nutrients
}

// DailyInput is a validated intake submission for a single date:
// food id -> consumed weight in the food's base unit.
type DailyInput struct {
	Date       time.Time
	Selections map[int64]float64
}

// Statistics is the stored aggregate for one user and date.
type Statistics struct {
	ID     int64
	UserID int64
	Date   time.Time
	Nutrients
}

// StatisticsItem is one consumed food within a day, nutrients scaled by weight.
type StatisticsItem struct {
	FoodID int64
	Name   string
	Weight float64
	Nutrients
}

// DailyStatistics is a day's totals together with its per-food breakdown.
type DailyStatistics struct {
	Statistics
	Items []StatisticsItem
}

// ParseDate parses a calendar date in DateLayout, returning a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return d, nil
}
