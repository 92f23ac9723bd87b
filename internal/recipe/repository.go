package recipe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/catalog"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/db"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRelationExists    = errors.New("recipe is already in the list")
	ErrRelationNotExists = errors.New("recipe is not in the list")
	ErrUnknownReference  = errors.New("unknown ingredient or tag")
	ErrOutOfRange        = errors.New("amount or cooking time out of range")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Relation is a per-user recipe list.
type Relation string

const (
	Favorites    Relation = "favorites"
	ShoppingCart Relation = "shopping_cart"
)

type Repository interface {
	List(ctx context.Context, f Filter) ([]Recipe, error)
	Get(ctx context.Context, id, viewerID int64) (Recipe, error)
	Create(ctx context.Context, authorID int64, in Input) (int64, error)
	Update(ctx context.Context, id int64, in Input) error
	Delete(ctx context.Context, id int64) error
	AuthorOf(ctx context.Context, id int64) (int64, error)
	AddRelation(ctx context.Context, rel Relation, userID, recipeID int64) (Short, error)
	RemoveRelation(ctx context.Context, rel Relation, userID, recipeID int64) error
	CartItems(ctx context.Context, userID int64) ([]shopping.CartItem, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const recipeSelect = `
	SELECT r.id, r.name, r.image, r.text, r.cooking_time, r.pub_date,
	       u.id, u.email, u.username, u.first_name, u.last_name,
	       EXISTS(SELECT 1 FROM subscriptions s WHERE s.follower_id=$1 AND s.author_id=u.id),
	       EXISTS(SELECT 1 FROM favorites f WHERE f.user_id=$1 AND f.recipe_id=r.id),
	       EXISTS(SELECT 1 FROM shopping_cart c WHERE c.user_id=$1 AND c.recipe_id=r.id)
	FROM recipes r
	JOIN users u ON u.id = r.author_id`

func scanRecipe(row pgx.Row) (Recipe, error) {
	var rec Recipe
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Image, &rec.Text, &rec.CookingTime, &rec.PubDate,
		&rec.Author.ID, &rec.Author.Email, &rec.Author.Username, &rec.Author.FirstName, &rec.Author.LastName,
		&rec.Author.IsSubscribed, &rec.IsFavorited, &rec.IsInShoppingCart,
	)
	return rec, err
}

// List returns recipes newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Recipe, error) {
	args := []any{f.ViewerID}
	var conds []string
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.AuthorID > 0 {
		conds = append(conds, "r.author_id = "+next(f.AuthorID))
	}
	if len(f.TagSlugs) > 0 {
		conds = append(conds, `EXISTS(SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
			WHERE rt.recipe_id = r.id AND t.slug = ANY(`+next(f.TagSlugs)+`))`)
	}
	if f.FavoritedOnly {
		conds = append(conds, "EXISTS(SELECT 1 FROM favorites f WHERE f.user_id=$1 AND f.recipe_id=r.id)")
	}
	if f.InCartOnly {
		conds = append(conds, "EXISTS(SELECT 1 FROM shopping_cart c WHERE c.user_id=$1 AND c.recipe_id=r.id)")
	}

	query := recipeSelect
	if len(conds) > 0 {
		query += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\tORDER BY r.pub_date DESC, r.id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	out := []Recipe{}
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		out = append(out, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := r.attach(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id, viewerID int64) (Recipe, error) {
	rec, err := scanRecipe(r.pool.QueryRow(ctx, recipeSelect+"\n\tWHERE r.id = $2", viewerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Recipe{}, ErrNotFound
		}
		return Recipe{}, err
	}
	out := []Recipe{rec}
	if err := r.attach(ctx, out); err != nil {
		return Recipe{}, err
	}
	return out[0], nil
}

// attach loads tags and ingredients for the given recipes in place.
func (r *PostgresRepository) attach(ctx context.Context, recipes []Recipe) error {
	ids := make([]int64, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
	}

	tags, err := r.tagsFor(ctx, ids)
	if err != nil {
		return err
	}
	ingredients, err := r.ingredientsFor(ctx, ids)
	if err != nil {
		return err
	}

	for i := range recipes {
		recipes[i].Tags = tags[recipes[i].ID]
		if recipes[i].Tags == nil {
			recipes[i].Tags = []catalog.Tag{}
		}
		recipes[i].Ingredients = []IngredientAmount{}
		for _, item := range ingredients[recipes[i].ID] {
			recipes[i].Ingredients = append(recipes[i].Ingredients, IngredientAmount{
				ID:              item.IngredientID,
				Name:            item.Name,
				MeasurementUnit: item.Unit,
				Amount:          item.Amount,
			})
		}
	}
	return nil
}

func (r *PostgresRepository) tagsFor(ctx context.Context, recipeIDs []int64) (map[int64][]catalog.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rt.recipe_id, t.id, t.name, COALESCE(t.color, ''), t.slug
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id = ANY($1)
		ORDER BY t.id
	`, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("load recipe tags: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]catalog.Tag, len(recipeIDs))
	for rows.Next() {
		var recipeID int64
		var t catalog.Tag
		if err := rows.Scan(&recipeID, &t.ID, &t.Name, &t.Color, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan recipe tag: %w", err)
		}
		out[recipeID] = append(out[recipeID], t)
	}
	return out, rows.Err()
}

// ingredientsFor returns line items per recipe in insertion order.
func (r *PostgresRepository) ingredientsFor(ctx context.Context, recipeIDs []int64) (map[int64][]shopping.LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ri.recipe_id, i.id, i.name, i.measurement_unit, ri.amount
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ANY($1)
		ORDER BY ri.id
	`, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("load recipe ingredients: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]shopping.LineItem, len(recipeIDs))
	for rows.Next() {
		var recipeID int64
		var item shopping.LineItem
		if err := rows.Scan(&recipeID, &item.IngredientID, &item.Name, &item.Unit, &item.Amount); err != nil {
			return nil, fmt.Errorf("scan recipe ingredient: %w", err)
		}
		out[recipeID] = append(out[recipeID], item)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, authorID int64, in Input) (int64, error) {
	if err := checkRange(in); err != nil {
		return 0, err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO recipes (author_id, name, image, text, cooking_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, authorID, in.Name, in.Image, in.Text, in.CookingTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert recipe: %w", err)
	}

	if err := writeLinks(ctx, tx, id, in); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// Update replaces the recipe fields together with its tags and ingredients.
func (r *PostgresRepository) Update(ctx context.Context, id int64, in Input) error {
	if err := checkRange(in); err != nil {
		return err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE recipes SET name=$2, image=$3, text=$4, cooking_time=$5
		WHERE id=$1
	`, id, in.Name, in.Image, in.Text, in.CookingTime)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM recipe_tags WHERE recipe_id=$1`, id); err != nil {
		return fmt.Errorf("clear recipe tags: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id=$1`, id); err != nil {
		return fmt.Errorf("clear recipe ingredients: %w", err)
	}
	if err := writeLinks(ctx, tx, id, in); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func writeLinks(ctx context.Context, tx pgx.Tx, recipeID int64, in Input) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO recipe_tags (recipe_id, tag_id)
		SELECT $1, unnest($2::bigint[])
	`, recipeID, in.Tags)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: tag", ErrUnknownReference)
		}
		return fmt.Errorf("insert recipe tags: %w", err)
	}

	ids := make([]int64, len(in.Ingredients))
	amounts := make([]int32, len(in.Ingredients))
	for i, ing := range in.Ingredients {
		ids[i] = ing.ID
		amounts[i] = int32(ing.Amount)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount)
		SELECT $1, t.ingredient_id, t.amount
		FROM unnest($2::bigint[], $3::int[]) WITH ORDINALITY AS t(ingredient_id, amount, ord)
		ORDER BY t.ord
	`, recipeID, ids, amounts)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: ingredient", ErrUnknownReference)
		}
		return fmt.Errorf("insert recipe ingredients: %w", err)
	}
	return nil
}

// checkRange keeps values inside the smallint domain so the int32 columns
// store exactly what was submitted.
func checkRange(in Input) error {
	if in.CookingTime < 1 || in.CookingTime > MaxAmount {
		return fmt.Errorf("%w: cooking time %d", ErrOutOfRange, in.CookingTime)
	}
	for _, ing := range in.Ingredients {
		if ing.Amount < 1 || ing.Amount > MaxAmount {
			return fmt.Errorf("%w: ingredient %d amount %d", ErrOutOfRange, ing.ID, ing.Amount)
		}
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AuthorOf(ctx context.Context, id int64) (int64, error) {
	var authorID int64
	if err := r.pool.QueryRow(ctx, `SELECT author_id FROM recipes WHERE id=$1`, id).Scan(&authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return authorID, nil
}

func (r *PostgresRepository) short(ctx context.Context, id int64) (Short, error) {
	var s Short
	err := r.pool.QueryRow(ctx, `SELECT id, name, image, cooking_time FROM recipes WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.Image, &s.CookingTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Short{}, ErrNotFound
		}
		return Short{}, err
	}
	return s, nil
}

func (rel Relation) valid() bool {
	return rel == Favorites || rel == ShoppingCart
}

func (r *PostgresRepository) AddRelation(ctx context.Context, rel Relation, userID, recipeID int64) (Short, error) {
	if !rel.valid() {
		return Short{}, fmt.Errorf("unknown relation %q", rel)
	}
	s, err := r.short(ctx, recipeID)
	if err != nil {
		return Short{}, err
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO `+string(rel)+` (user_id, recipe_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, recipe_id) DO NOTHING
	`, userID, recipeID)
	if err != nil {
		return Short{}, fmt.Errorf("add to %s: %w", rel, err)
	}
	if tag.RowsAffected() == 0 {
		return Short{}, ErrRelationExists
	}
	return s, nil
}

func (r *PostgresRepository) RemoveRelation(ctx context.Context, rel Relation, userID, recipeID int64) error {
	if !rel.valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	if _, err := r.short(ctx, recipeID); err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM `+string(rel)+` WHERE user_id=$1 AND recipe_id=$2`, userID, recipeID)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", rel, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRelationNotExists
	}
	return nil
}

// CartItems returns a read-only snapshot of the user's shopping cart,
// newest recipe first, each with its line items in insertion order.
func (r *PostgresRepository) CartItems(ctx context.Context, userID int64) ([]shopping.CartItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name
		FROM shopping_cart c
		JOIN recipes r ON r.id = c.recipe_id
		WHERE c.user_id = $1
		ORDER BY r.pub_date DESC, r.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}

	cart := []shopping.CartItem{}
	var ids []int64
	for rows.Next() {
		var item shopping.CartItem
		if err := rows.Scan(&item.RecipeID, &item.RecipeName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart recipe: %w", err)
		}
		cart = append(cart, item)
		ids = append(ids, item.RecipeID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return cart, nil
	}

	items, err := r.ingredientsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range cart {
		cart[i].Items = items[cart[i].RecipeID]
		if cart[i].Items == nil {
			cart[i].Items = []shopping.LineItem{}
		}
	}
	return cart, nil
}
