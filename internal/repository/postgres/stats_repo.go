package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/model"
	"github.com/and161185/calorie-tracker/internal/nutrition"
)

// Catalog resolves food ids visible to a user on the given querier.
type Catalog interface {
	Lookup(ctx context.Context, q Querier, userID int64, ids []int64) ([]model.Food, error)
}

// StatisticsRepo implements StatisticsRepository using PostgreSQL.
type StatisticsRepo struct {
	db      *DB
	catalog Catalog
}

// NewStatisticsRepo constructs a statistics repository.
func NewStatisticsRepo(db *DB, catalog Catalog) *StatisticsRepo {
	return &StatisticsRepo{db: db, catalog: catalog}
}

// Record looks up the selected foods, aggregates them and stores the
// statistics row plus one food_statistics row per food, all in one transaction.
func (r *StatisticsRepo) Record(
	ctx context.Context, userID int64, in model.DailyInput,
) (out *model.DailyStatistics, err error) {
	const insStats = `
INSERT INTO statistics (user_id, date, calories, proteins, fats, carbohydrates)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	const insItem = `INSERT INTO food_statistics (food_id, statistics_id, weight) VALUES ($1, $2, $3)`

	ids := make([]int64, 0, len(in.Selections))
	for id := range in.Selections {
		ids = append(ids, id)
	}

	err = r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		foods, err := r.catalog.Lookup(ctx, tx, userID, ids)
		if err != nil {
			return fmt.Errorf("lookup foods: %w", err)
		}
		total, items, err := nutrition.Aggregate(foods, in.Selections)
		if err != nil {
			return err
		}

		var statsID int64
		if err := tx.QueryRow(ctx, insStats, userID, in.Date,
			total.Calories, total.Proteins, total.Fats, total.Carbohydrates,
		).Scan(&statsID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("statistics for %s: %w", in.Date.Format(model.DateLayout), errs.ErrAlreadyExists)
			}
			return fmt.Errorf("insert statistics: %w", err)
		}

		for _, it := range items {
			if _, err := tx.Exec(ctx, insItem, it.FoodID, statsID, it.Weight); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("food %d: %w", it.FoodID, errs.ErrNotFound)
				}
				return fmt.Errorf("insert food statistics: %w", err)
			}
		}

		out = &model.DailyStatistics{
			Statistics: model.Statistics{ID: statsID, UserID: userID, Date: in.Date, Nutrients: total},
			Items:      items,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Detail reads totals and items for a date from one consistent snapshot.
func (r *StatisticsRepo) Detail(ctx context.Context, userID int64, date time.Time) (out *model.DailyStatistics, err error) {
	const selStats = `
SELECT id, calories, proteins, fats, carbohydrates
FROM statistics
WHERE user_id=$1 AND date=$2`
	const selItems = `
SELECT f.id, f.name, fs.weight, f.base_weight, f.calories, f.proteins, f.fats, f.carbohydrates
FROM food_statistics AS fs
JOIN food AS f ON f.id = fs.food_id
WHERE fs.statistics_id=$1
ORDER BY fs.id ASC`

	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err = r.db.WithTx(ctx, opts, func(tx pgx.Tx) error {
		ds := model.DailyStatistics{Statistics: model.Statistics{UserID: userID, Date: date}}
		if err := tx.QueryRow(ctx, selStats, userID, date).Scan(
			&ds.ID, &ds.Calories, &ds.Proteins, &ds.Fats, &ds.Carbohydrates,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("statistics for %s: %w", date.Format(model.DateLayout), errs.ErrNotFound)
			}
			return err
		}

		rows, err := tx.Query(ctx, selItems, ds.ID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				it         model.StatisticsItem
				baseWeight float64
				perBase    model.Nutrients
			)
			if err := rows.Scan(&it.FoodID, &it.Name, &it.Weight, &baseWeight,
				&perBase.Calories, &perBase.Proteins, &perBase.Fats, &perBase.Carbohydrates); err != nil {
				return err
			}
			if baseWeight <= 0 {
				return errs.Invalid(fmt.Sprintf("food %d has no base weight", it.FoodID))
			}
			it.Nutrients = nutrition.RoundNutrients(nutrition.ScaleNutrients(perBase, it.Weight, baseWeight))
			ds.Items = append(ds.Items, it)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = &ds
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the statistics row for a date; food_statistics rows cascade.
func (r *StatisticsRepo) Delete(ctx context.Context, userID int64, date time.Time) (bool, error) {
	const q = `DELETE FROM statistics WHERE user_id=$1 AND date=$2`
	tag, err := r.db.Pool.Exec(ctx, q, userID, date)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// History returns all statistics of a user ordered by date, newest first.
func (r *StatisticsRepo) History(ctx context.Context, userID int64) ([]model.Statistics, error) {
	const q = `
SELECT id, date, calories, proteins, fats, carbohydrates
FROM statistics
WHERE user_id=$1
ORDER BY date DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Statistics
	for rows.Next() {
		s := model.Statistics{UserID: userID}
		if err := rows.Scan(&s.ID, &s.Date, &s.Calories, &s.Proteins, &s.Fats, &s.Carbohydrates); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
