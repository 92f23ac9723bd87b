package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/db"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("a user with that email or username already exists")
	ErrAlreadySubscribed = errors.New("double subscription is not allowed")
	ErrNotSubscribed     = errors.New("cannot unsubscribe, you were not subscribed")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id, viewerID int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, viewerID int64) ([]User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Subscribe(ctx context.Context, followerID, authorID int64) error
	Unsubscribe(ctx context.Context, followerID, authorID int64) error
	Subscriptions(ctx context.Context, followerID int64, recipesLimit int) ([]Subscription, error)
	Subscription(ctx context.Context, authorID int64, recipesLimit int) (Subscription, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `u.id, u.email, u.username, u.first_name, u.last_name, u.role, u.password_hash`

func scanUser(row pgx.Row, extra ...any) (User, error) {
	var u User
	dest := append([]any{&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.PasswordHash}, extra...)
	err := row.Scan(dest...)
	return u, err
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	if u.Role == "" {
		u.Role = "user"
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, first_name, last_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.Role).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id, viewerID int64) (User, error) {
	var subscribed bool
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`,
		       EXISTS(SELECT 1 FROM subscriptions s WHERE s.follower_id=$2 AND s.author_id=u.id)
		FROM users u
		WHERE u.id=$1
	`, id, viewerID)
	u, err := scanUser(row, &subscribed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.IsSubscribed = subscribed
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.email)=lower($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepository) List(ctx context.Context, viewerID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`,
		       EXISTS(SELECT 1 FROM subscriptions s WHERE s.follower_id=$1 AND s.author_id=u.id)
		FROM users u
		ORDER BY u.username
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var subscribed bool
		u, err := scanUser(rows, &subscribed)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.IsSubscribed = subscribed
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Subscribe(ctx context.Context, followerID, authorID int64) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO subscriptions (follower_id, author_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, author_id) DO NOTHING
	`, followerID, authorID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySubscribed
	}
	return nil
}

func (r *PostgresRepository) Unsubscribe(ctx context.Context, followerID, authorID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE follower_id=$1 AND author_id=$2`, followerID, authorID)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// Subscriptions lists the authors followerID follows, ordered by username,
// each with its newest recipes (at most recipesLimit when positive).
func (r *PostgresRepository) Subscriptions(ctx context.Context, followerID int64, recipesLimit int) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`,
		       (SELECT count(*) FROM recipes rc WHERE rc.author_id=u.id)
		FROM subscriptions s
		JOIN users u ON u.id = s.author_id
		WHERE s.follower_id=$1
		ORDER BY u.username
	`, followerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	out := []Subscription{}
	var authorIDs []int64
	for rows.Next() {
		var count int64
		u, err := scanUser(rows, &count)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		u.IsSubscribed = true
		out = append(out, Subscription{User: u, RecipesCount: int(count), Recipes: []RecipeSummary{}})
		authorIDs = append(authorIDs, u.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(authorIDs) == 0 {
		return out, nil
	}

	byAuthor, err := r.recipeSummaries(ctx, authorIDs, recipesLimit)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if recipes, ok := byAuthor[out[i].ID]; ok {
			out[i].Recipes = recipes
		}
	}
	return out, nil
}

// Subscription returns the subscription view of a single author.
func (r *PostgresRepository) Subscription(ctx context.Context, authorID int64, recipesLimit int) (Subscription, error) {
	var count int64
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`,
		       (SELECT count(*) FROM recipes rc WHERE rc.author_id=u.id)
		FROM users u
		WHERE u.id=$1
	`, authorID)
	u, err := scanUser(row, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}
	u.IsSubscribed = true

	byAuthor, err := r.recipeSummaries(ctx, []int64{authorID}, recipesLimit)
	if err != nil {
		return Subscription{}, err
	}
	sub := Subscription{User: u, RecipesCount: int(count), Recipes: byAuthor[authorID]}
	if sub.Recipes == nil {
		sub.Recipes = []RecipeSummary{}
	}
	return sub, nil
}

func (r *PostgresRepository) recipeSummaries(ctx context.Context, authorIDs []int64, limit int) (map[int64][]RecipeSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT author_id, id, name, image, cooking_time
		FROM recipes
		WHERE author_id = ANY($1)
		ORDER BY pub_date DESC, id DESC
	`, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("list author recipes: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]RecipeSummary, len(authorIDs))
	for rows.Next() {
		var authorID int64
		var s RecipeSummary
		if err := rows.Scan(&authorID, &s.ID, &s.Name, &s.Image, &s.CookingTime); err != nil {
			return nil, fmt.Errorf("scan recipe summary: %w", err)
		}
		if limit > 0 && len(out[authorID]) >= limit {
			continue
		}
		out[authorID] = append(out[authorID], s)
	}
	return out, rows.Err()
}
