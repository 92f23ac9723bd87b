package catalog

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestListIngredients(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		pattern string
	}{
		{"no prefix lists all", "", "%"},
		{"prefix is lowered and trimmed", "  Sa ", "sa%"},
		{"like wildcards are escaped", "50%_", `50\%\_%`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectQuery(`FROM ingredients`).
				WithArgs(tc.pattern).
				WillReturnRows(pgxmock.NewRows([]string{"id", "name", "measurement_unit"}).
					AddRow(int64(1), "salt", "g").
					AddRow(int64(2), "sage", "g"))

			got, err := repo.ListIngredients(context.Background(), tc.prefix)
			require.NoError(t, err)
			require.Equal(t, []Ingredient{
				{ID: 1, Name: "salt", MeasurementUnit: "g"},
				{ID: 2, Name: "sage", MeasurementUnit: "g"},
			}, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListIngredients_EmptyIsNotNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM ingredients`).
		WithArgs("zz%").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "measurement_unit"}))

	got, err := repo.ListIngredients(context.Background(), "zz")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestGetIngredient(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM ingredients WHERE id`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "measurement_unit"}).AddRow(int64(5), "beef", "g"))
	mock.ExpectQuery(`FROM ingredients WHERE id`).
		WithArgs(int64(6)).
		WillReturnError(pgx.ErrNoRows)

	ing, err := repo.GetIngredient(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, Ingredient{ID: 5, Name: "beef", MeasurementUnit: "g"}, ing)

	_, err = repo.GetIngredient(context.Background(), 6)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTags(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM tags ORDER BY name`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "color", "slug"}).
			AddRow(int64(1), "Breakfast", "#E26C2D", "breakfast"))
	mock.ExpectQuery(`FROM tags WHERE id`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("Lunch", "#49B64E", "lunch").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("Lunch", "#49B64E", "lunch").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	require.Equal(t, "breakfast", tags[0].Slug)

	_, err = repo.GetTag(ctx, 9)
	require.ErrorIs(t, err, ErrNotFound)

	tag, err := repo.CreateTag(ctx, NewTag{Name: "Lunch", Color: "#49b64e", Slug: "lunch"})
	require.NoError(t, err)
	require.Equal(t, Tag{ID: 2, Name: "Lunch", Color: "#49B64E", Slug: "lunch"}, tag)

	_, err = repo.CreateTag(ctx, NewTag{Name: "Lunch", Color: "#49B64E", Slug: "lunch"})
	require.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, mock.ExpectationsWereMet())
}
