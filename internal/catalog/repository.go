package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/db"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	ListIngredients(ctx context.Context, namePrefix string) ([]Ingredient, error)
	GetIngredient(ctx context.Context, id int64) (Ingredient, error)
	ListTags(ctx context.Context) ([]Tag, error)
	GetTag(ctx context.Context, id int64) (Tag, error)
	CreateTag(ctx context.Context, in NewTag) (Tag, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListIngredients returns ingredients ordered by name whose name starts with
// namePrefix, compared case-insensitively. An empty prefix lists everything.
func (r *PostgresRepository) ListIngredients(ctx context.Context, namePrefix string) ([]Ingredient, error) {
	pattern := escapeLike(strings.ToLower(strings.TrimSpace(namePrefix))) + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, measurement_unit
		FROM ingredients
		WHERE lower(name) LIKE $1 ESCAPE '\'
		ORDER BY name, id
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	out := []Ingredient{}
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.MeasurementUnit); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetIngredient(ctx context.Context, id int64) (Ingredient, error) {
	var ing Ingredient
	err := r.pool.QueryRow(ctx, `SELECT id, name, measurement_unit FROM ingredients WHERE id=$1`, id).
		Scan(&ing.ID, &ing.Name, &ing.MeasurementUnit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ingredient{}, ErrNotFound
		}
		return Ingredient{}, err
	}
	return ing, nil
}

func (r *PostgresRepository) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(color, ''), slug FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Slug); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetTag(ctx context.Context, id int64) (Tag, error) {
	var tag Tag
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(color, ''), slug FROM tags WHERE id=$1`, id).
		Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tag{}, ErrNotFound
		}
		return Tag{}, err
	}
	return tag, nil
}

func (r *PostgresRepository) CreateTag(ctx context.Context, in NewTag) (Tag, error) {
	tag := Tag{Name: in.Name, Color: strings.ToUpper(in.Color), Slug: in.Slug}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tags (name, color, slug)
		VALUES ($1, $2, $3)
		RETURNING id
	`, tag.Name, tag.Color, tag.Slug).Scan(&tag.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Tag{}, ErrDuplicate
		}
		return Tag{}, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
