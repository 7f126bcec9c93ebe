package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/model"
)

const systemID = int64(1)

var foodCols = []string{"id", "user_id", "name", "base_weight", "calories", "proteins", "fats", "carbohydrates"}

func TestFoodRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFoodRepo(db, systemID)
	ctx := context.Background()

	f := &model.Food{UserID: 7, Name: "oats", BaseWeight: 100,
		Nutrients: model.Nutrients{Calories: 389, Proteins: 16.9, Fats: 6.9, Carbohydrates: 66.3}}

	mock.ExpectQuery(`INSERT INTO food \(user_id, name, base_weight, calories, proteins, fats, carbohydrates\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\) RETURNING id`).
		WithArgs(int64(7), "oats", 100.0, 389.0, 16.9, 6.9, 66.3).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	id, err := r.Create(ctx, f)
	require.NoError(t, err)
	require.Equal(t, int64(11), id)

	mock.ExpectQuery(`INSERT INTO food`).
		WithArgs(int64(7), "oats", 100.0, 389.0, 16.9, 6.9, 66.3).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Create(ctx, f)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	mock.ExpectQuery(`INSERT INTO food`).
		WithArgs(int64(7), "oats", 100.0, 389.0, 16.9, 6.9, 66.3).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	_, err = r.Create(ctx, f)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFoodRepo_ListVisible(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFoodRepo(db, systemID)

	rows := pgxmock.NewRows(foodCols).
		AddRow(int64(3), systemID, "apple", 100.0, 52.0, 0.3, 0.2, 14.0).
		AddRow(int64(8), int64(7), "oats", 100.0, 389.0, 16.9, 6.9, 66.3)
	mock.ExpectQuery(`SELECT id, user_id, name, base_weight, calories, proteins, fats, carbohydrates FROM food WHERE user_id IN \(\$1, \$2\) ORDER BY name ASC, id ASC`).
		WithArgs(int64(7), systemID).
		WillReturnRows(rows)

	out, err := r.ListVisible(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "apple", out[0].Name)
	require.Equal(t, systemID, out[0].UserID)
	require.Equal(t, 389.0, out[1].Calories)
}

func TestFoodRepo_Lookup_SortsIDs(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFoodRepo(db, systemID)

	mock.ExpectQuery(`FROM food WHERE id = ANY\(\$1\) AND user_id IN \(\$2, \$3\)`).
		WithArgs([]int64{2, 5, 9}, int64(7), systemID).
		WillReturnRows(pgxmock.NewRows(foodCols).
			AddRow(int64(2), int64(7), "b", 100.0, 1.0, 1.0, 1.0, 1.0))

	out, err := r.Lookup(context.Background(), mock, 7, []int64{9, 2, 5})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFoodRepo_UpsertBatch(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFoodRepo(db, systemID)

	foods := []model.Food{
		{Name: "apple", BaseWeight: 100, Nutrients: model.Nutrients{Calories: 52}},
		{Name: "rice", BaseWeight: 100, Nutrients: model.Nutrients{Calories: 130}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`ON CONFLICT \(user_id, name\) DO UPDATE`).
		WithArgs(systemID, "apple", 100.0, 52.0, 0.0, 0.0, 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT \(user_id, name\) DO UPDATE`).
		WithArgs(systemID, "rice", 100.0, 130.0, 0.0, 0.0, 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := r.UpsertBatch(context.Background(), systemID, foods)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFoodRepo_UpsertBatch_KeepsReferencedFoods(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFoodRepo(db, systemID)

	mock.ExpectBegin()
	// apple is used by a recorded day: the conditional update touches no row
	mock.ExpectExec(`DO UPDATE .* WHERE NOT EXISTS \(SELECT 1 FROM food_statistics AS fs WHERE fs.food_id = food.id\)`).
		WithArgs(systemID, "apple", 100.0, 100.0, 0.0, 0.0, 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`WHERE NOT EXISTS`).
		WithArgs(systemID, "rice", 100.0, 130.0, 0.0, 0.0, 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := r.UpsertBatch(context.Background(), systemID, []model.Food{
		{Name: "apple", BaseWeight: 100, Nutrients: model.Nutrients{Calories: 100}},
		{Name: "rice", BaseWeight: 100, Nutrients: model.Nutrients{Calories: 130}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFoodRepo_UpsertBatch_RollsBackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFoodRepo(db, systemID)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO food`).
		WithArgs(systemID, "apple", 100.0, 52.0, 0.0, 0.0, 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO food`).
		WithArgs(systemID, "bad", 0.0, 1.0, 0.0, 0.0, 0.0).
		WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	_, err := r.UpsertBatch(context.Background(), systemID, []model.Food{
		{Name: "apple", BaseWeight: 100, Nutrients: model.Nutrients{Calories: 52}},
		{Name: "bad", BaseWeight: 0, Nutrients: model.Nutrients{Calories: 1}},
	})
	require.ErrorContains(t, err, `food[1] "bad"`)
	require.NoError(t, mock.ExpectationsWereMet())
}
