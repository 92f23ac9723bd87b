package user

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "username", "first_name", "last_name", "role", "password_hash"}

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("ann@example.com", "ann", "Ann", "Lee", "hash", "user").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	u, err := repo.Create(context.Background(), User{
		Email: "ann@example.com", Username: "ann", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), u.ID)
	require.Equal(t, "user", u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("ann@example.com", "ann", "Ann", "Lee", "hash", "user").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), User{
		Email: "ann@example.com", Username: "ann", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash",
	})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users u\s+WHERE u.id=\$1`).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(pgxmock.NewRows(append(userCols, "is_subscribed")).
			AddRow(int64(2), "bob@example.com", "bob", "Bob", "Ray", "user", "hash", true))
	mock.ExpectQuery(`FROM users u\s+WHERE u.id=\$1`).
		WithArgs(int64(3), int64(1)).
		WillReturnError(pgx.ErrNoRows)

	u, err := repo.GetByID(context.Background(), 2, 1)
	require.NoError(t, err)
	require.True(t, u.IsSubscribed)
	require.Equal(t, "bob", u.Username)

	_, err = repo.GetByID(context.Background(), 3, 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribe(t *testing.T) {
	tests := []struct {
		name string
		tag  pgconn.CommandTag
		err  error
		want error
	}{
		{"created", pgconn.NewCommandTag("INSERT 0 1"), nil, nil},
		{"already subscribed", pgconn.NewCommandTag("INSERT 0 0"), nil, ErrAlreadySubscribed},
		{"unknown author", pgconn.CommandTag{}, &pgconn.PgError{Code: "23503"}, ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			exp := mock.ExpectExec(`INSERT INTO subscriptions`).WithArgs(int64(1), int64(2))
			if tc.err != nil {
				exp.WillReturnError(tc.err)
			} else {
				exp.WillReturnResult(tc.tag)
			}

			err := repo.Subscribe(context.Background(), 1, 2)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUnsubscribe_NotSubscribed(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM subscriptions`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Unsubscribe(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrNotSubscribed)
}

func TestSubscriptions_LimitsRecipes(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM subscriptions s`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(append(userCols, "recipes_count")).
			AddRow(int64(2), "bob@example.com", "bob", "Bob", "Ray", "user", "hash", int64(3)).
			AddRow(int64(3), "cat@example.com", "cat", "Cat", "Fox", "user", "hash", int64(0)))
	mock.ExpectQuery(`FROM recipes\s+WHERE author_id = ANY`).
		WithArgs([]int64{2, 3}).
		WillReturnRows(pgxmock.NewRows([]string{"author_id", "id", "name", "image", "cooking_time"}).
			AddRow(int64(2), int64(30), "Soup", "soup.png", 20).
			AddRow(int64(2), int64(20), "Pie", "pie.png", 60).
			AddRow(int64(2), int64(10), "Tea", "tea.png", 5))

	subs, err := repo.Subscriptions(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	require.True(t, subs[0].IsSubscribed)
	require.Equal(t, 3, subs[0].RecipesCount)
	require.Equal(t, []RecipeSummary{
		{ID: 30, Name: "Soup", Image: "soup.png", CookingTime: 20},
		{ID: 20, Name: "Pie", Image: "pie.png", CookingTime: 60},
	}, subs[0].Recipes)

	require.NotNil(t, subs[1].Recipes)
	require.Empty(t, subs[1].Recipes)
	require.NoError(t, mock.ExpectationsWereMet())
}
