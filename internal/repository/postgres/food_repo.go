package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/model"
)

const foodColumns = `id, user_id, name, base_weight, calories, proteins, fats, carbohydrates`

// FoodRepo implements FoodRepository using PostgreSQL.
// Foods owned by systemID are visible to every user.
type FoodRepo struct {
	db       *DB
	systemID int64
}

// NewFoodRepo constructs a food repository with the shared catalog owner id.
func NewFoodRepo(db *DB, systemID int64) *FoodRepo { return &FoodRepo{db: db, systemID: systemID} }

// SystemID returns the owner id of shared foods.
func (r *FoodRepo) SystemID() int64 { return r.systemID }

// Create inserts a food row.
func (r *FoodRepo) Create(ctx context.Context, f *model.Food) (int64, error) {
	const q = `
INSERT INTO food (user_id, name, base_weight, calories, proteins, fats, carbohydrates)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	var id int64
	err := r.db.Pool.QueryRow(ctx, q,
		f.UserID, f.Name, f.BaseWeight, f.Calories, f.Proteins, f.Fats, f.Carbohydrates,
	).Scan(&id)
	switch {
	case isUniqueViolation(err):
		return 0, errs.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return 0, fmt.Errorf("owner %d: %w", f.UserID, errs.ErrNotFound)
	case err != nil:
		return 0, err
	}
	return id, nil
}

// ListVisible returns own and system foods ordered by name.
func (r *FoodRepo) ListVisible(ctx context.Context, userID int64) ([]model.Food, error) {
	const q = `
SELECT ` + foodColumns + `
FROM food
WHERE user_id IN ($1, $2)
ORDER BY name ASC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID, r.systemID)
	if err != nil {
		return nil, err
	}
	return collectFoods(rows)
}

// Lookup resolves food ids visible to userID using q, which may be an open transaction.
// Missing ids are not an error here; the caller decides.
func (r *FoodRepo) Lookup(ctx context.Context, q Querier, userID int64, ids []int64) ([]model.Food, error) {
	const sel = `
SELECT ` + foodColumns + `
FROM food
WHERE id = ANY($1) AND user_id IN ($2, $3)`
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rows, err := q.Query(ctx, sel, sorted, userID, r.systemID)
	if err != nil {
		return nil, err
	}
	return collectFoods(rows)
}

// UpsertBatch inserts or updates foods of ownerID in one transaction and
// returns how many rows were written. A food already referenced by
// food_statistics is left unchanged, since detail rows are recomputed from
// the catalog and must keep matching the stored totals.
func (r *FoodRepo) UpsertBatch(ctx context.Context, ownerID int64, foods []model.Food) (int, error) {
	const ups = `
INSERT INTO food (user_id, name, base_weight, calories, proteins, fats, carbohydrates)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, name) DO UPDATE
SET base_weight = EXCLUDED.base_weight,
    calories = EXCLUDED.calories,
    proteins = EXCLUDED.proteins,
    fats = EXCLUDED.fats,
    carbohydrates = EXCLUDED.carbohydrates
WHERE NOT EXISTS (SELECT 1 FROM food_statistics AS fs WHERE fs.food_id = food.id)`

	n := 0
	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for i, f := range foods {
			tag, err := tx.Exec(ctx, ups, ownerID, f.Name, f.BaseWeight, f.Calories, f.Proteins, f.Fats, f.Carbohydrates)
			if err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("owner %d: %w", ownerID, errs.ErrNotFound)
				}
				return fmt.Errorf("food[%d] %q: %w", i, f.Name, err)
			}
			n += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func collectFoods(rows pgx.Rows) ([]model.Food, error) {
	defer rows.Close()

	var out []model.Food
	for rows.Next() {
		var f model.Food
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.BaseWeight,
			&f.Calories, &f.Proteins, &f.Fats, &f.Carbohydrates); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
