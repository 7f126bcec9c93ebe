package repository

import (
	"context"
	"time"

	"github.com/and161185/calorie-tracker/internal/model"
)

// StatisticsRepository stores daily nutrition aggregates.
type StatisticsRepository interface {
	// Record aggregates the selection and stores the statistics row and its
	// per-food rows atomically. A second record for the same date fails.
	Record(ctx context.Context, userID int64, in model.DailyInput) (*model.DailyStatistics, error)

	// Detail returns the stored totals and the per-food breakdown for a date.
	Detail(ctx context.Context, userID int64, date time.Time) (*model.DailyStatistics, error)

	// Delete removes the statistics for a date; reports whether a row existed.
	Delete(ctx context.Context, userID int64, date time.Time) (bool, error)

	// History returns all statistics of the user, most recent first.
	History(ctx context.Context, userID int64) ([]model.Statistics, error)
}
