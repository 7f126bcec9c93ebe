package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/model"
	"github.com/and161185/calorie-tracker/internal/repository"
)

// StatisticsService defines the daily aggregation workflow.
type StatisticsService interface {
	// Record aggregates the selection for a date and stores it once.
	Record(ctx context.Context, userID int64, in model.DailyInput) (*model.DailyStatistics, error)
	// Detail returns totals and per-food breakdown for a date.
	Detail(ctx context.Context, userID int64, date time.Time) (*model.DailyStatistics, error)
	// Delete removes a date's statistics; deleting a missing date is not an error.
	Delete(ctx context.Context, userID int64, date time.Time) error
	// History lists stored days, most recent first.
	History(ctx context.Context, userID int64) ([]model.Statistics, error)
}

// Outcome labels for recorded submissions.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// RecordObserver receives the outcome of every Record call.
type RecordObserver interface {
	ObserveRecord(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveRecord(string) {}

type StatisticsServiceImpl struct {
	repo repository.StatisticsRepository
	obs  RecordObserver
	log  *zap.Logger
}

// NewStatisticsService constructs StatisticsService. obs and log may be nil.
func NewStatisticsService(repo repository.StatisticsRepository, obs RecordObserver, log *zap.Logger) *StatisticsServiceImpl {
	if obs == nil {
		obs = nopObserver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StatisticsServiceImpl{repo: repo, obs: obs, log: log}
}

// Record validates the input before it reaches the store.
// Validation rules:
// - userID > 0
// - date set
// - at least one selection
// - every weight > 0
func (s *StatisticsServiceImpl) Record(ctx context.Context, userID int64, in model.DailyInput) (*model.DailyStatistics, error) {
	ds, err := s.record(ctx, userID, in)
	s.obs.ObserveRecord(outcomeOf(err))
	return ds, err
}

func (s *StatisticsServiceImpl) record(ctx context.Context, userID int64, in model.DailyInput) (*model.DailyStatistics, error) {
	if err := validateOwner(userID, in.Date); err != nil {
		return nil, err
	}
	if len(in.Selections) == 0 {
		return nil, errs.Invalid("select at least one food")
	}
	for id, w := range in.Selections {
		if id <= 0 {
			return nil, errs.Invalid(fmt.Sprintf("bad food id %d", id))
		}
		if !positive(w) {
			return nil, errs.Invalid(fmt.Sprintf("weight of food %d must be positive", id))
		}
	}
	ds, err := s.repo.Record(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("statistics recorded",
		zap.Int64("user", userID),
		zap.String("date", in.Date.Format(model.DateLayout)),
		zap.Int("items", len(ds.Items)),
	)
	return ds, nil
}

// Detail returns the breakdown for a stored date.
func (s *StatisticsServiceImpl) Detail(ctx context.Context, userID int64, date time.Time) (*model.DailyStatistics, error) {
	if err := validateOwner(userID, date); err != nil {
		return nil, err
	}
	return s.repo.Detail(ctx, userID, date)
}

// Delete is idempotent.
func (s *StatisticsServiceImpl) Delete(ctx context.Context, userID int64, date time.Time) error {
	if err := validateOwner(userID, date); err != nil {
		return err
	}
	existed, err := s.repo.Delete(ctx, userID, date)
	if err != nil {
		return err
	}
	s.log.Info("statistics deleted",
		zap.Int64("user", userID),
		zap.String("date", date.Format(model.DateLayout)),
		zap.Bool("existed", existed),
	)
	return nil
}

// History returns all stored days of the user.
func (s *StatisticsServiceImpl) History(ctx context.Context, userID int64) ([]model.Statistics, error) {
	if userID <= 0 {
		return nil, errs.Invalid("empty user")
	}
	return s.repo.History(ctx, userID)
}

func validateOwner(userID int64, date time.Time) error {
	if userID <= 0 {
		return errs.Invalid("empty user")
	}
	if date.IsZero() {
		return errs.Invalid("date is required")
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errs.ErrAlreadyExists):
		return OutcomeDuplicate
	case errors.Is(err, errs.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, errs.ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
