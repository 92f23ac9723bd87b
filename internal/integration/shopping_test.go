//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/auth"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/catalog"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/db"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/events"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/recipe"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/sequence"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/testutil"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/user"
)

const ingredientsCSV = `salt,g
beef,g
salt,g
`

func ingredientID(ctx context.Context, t *testing.T, cat *catalog.PostgresRepository, name string) int64 {
	t.Helper()
	items, err := cat.ListIngredients(ctx, name)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0].ID
}

func register(ctx context.Context, t *testing.T, users *user.Service, name string) auth.Principal {
	t.Helper()
	u, err := users.Register(ctx, user.NewUser{
		Email: name + "@example.com", Username: name, FirstName: name, LastName: "Test", Password: "s3cret-pass-" + name,
	})
	require.NoError(t, err)
	return auth.Principal{UserID: u.ID, Role: "user"}
}

func TestShoppingCartExport(t *testing.T) {
	pool, dsn := testutil.StartPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close()

	inserted, err := catalog.ImportIngredients(ctx, conn, strings.NewReader(ingredientsCSV))
	require.NoError(t, err)
	require.Equal(t, int64(2), inserted)

	// a second import of the same file is a no-op
	inserted, err = catalog.ImportIngredients(ctx, conn, strings.NewReader(ingredientsCSV))
	require.NoError(t, err)
	require.Equal(t, int64(0), inserted)

	cat := catalog.NewPostgresRepository(pool)
	salt := ingredientID(ctx, t, cat, "sal")
	beef := ingredientID(ctx, t, cat, "bee")
	tag, err := cat.CreateTag(ctx, catalog.NewTag{Name: "Dinner", Color: "#8775D2", Slug: "dinner"})
	require.NoError(t, err)

	users := user.NewService(user.NewPostgresRepository(pool))
	author := register(ctx, t, users, "author")
	shopper := register(ctx, t, users, "shopper")

	recipeRepo := recipe.NewPostgresRepository(pool)
	recipes := recipe.NewService(recipeRepo, events.Nop{}, zerolog.Nop())

	soup, err := recipes.Create(ctx, author, recipe.Input{
		Ingredients: []recipe.IngredientInput{{ID: salt, Amount: 5}},
		Tags:        []int64{tag.ID},
		Image:       "soup.png", Name: "Soup", Text: "Boil", CookingTime: 30,
	})
	require.NoError(t, err)
	stew, err := recipes.Create(ctx, author, recipe.Input{
		Ingredients: []recipe.IngredientInput{{ID: salt, Amount: 10}, {ID: beef, Amount: 300}},
		Tags:        []int64{tag.ID},
		Image:       "stew.png", Name: "Stew", Text: "Simmer", CookingTime: 90,
	})
	require.NoError(t, err)

	_, err = recipes.AddRelation(ctx, shopper, recipe.ShoppingCart, soup.ID)
	require.NoError(t, err)
	_, err = recipes.AddRelation(ctx, shopper, recipe.ShoppingCart, stew.ID)
	require.NoError(t, err)
	_, err = recipes.AddRelation(ctx, shopper, recipe.ShoppingCart, stew.ID)
	require.ErrorIs(t, err, recipe.ErrRelationExists)

	exporter := shopping.NewExporter(recipeRepo, nil, shopping.ExporterOptions{
		Now:    func() time.Time { return time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC) },
		Logger: zerolog.Nop(),
	})

	report, err := exporter.Build(ctx, shopper.UserID)
	require.NoError(t, err)
	require.Equal(t, []string{"Stew", "Soup"}, report.RecipeNames)
	require.Equal(t, []shopping.Row{
		{IngredientID: salt, Name: "salt", Unit: "g", Amount: 15},
		{IngredientID: beef, Name: "beef", Unit: "g", Amount: 300},
	}, report.Rows)
	require.Equal(t, "Jan 02 2024 10:00:00", report.TimestampLabel)

	listed, err := recipes.List(ctx, shopper, recipe.Filter{InCartOnly: true})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, r := range listed {
		require.True(t, r.IsInShoppingCart)
	}

	require.NoError(t, recipes.RemoveRelation(ctx, shopper, recipe.ShoppingCart, soup.ID))
	report, err = exporter.Build(ctx, shopper.UserID)
	require.NoError(t, err)
	require.Equal(t, []string{"Stew"}, report.RecipeNames)

	// the author's own cart is empty
	report, err = exporter.Build(ctx, author.UserID)
	require.NoError(t, err)
	require.Empty(t, report.RecipeNames)
	require.Empty(t, report.Rows)
}

func TestPublishShoppingListExported(t *testing.T) {
	pool, _ := testutil.StartPostgres(t)
	rabbit := testutil.StartRabbitMQ(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pub, err := events.NewPublisher(rabbit, sequence.NewRepository(pool), events.PublisherOptions{
		Correlation: func(context.Context) string { return "corr-1" },
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	defer pub.Close()

	ch, err := rabbit.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.ShoppingListExportedRoutingKey, events.EventsExchange, false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	report := shopping.Report{
		RecipeNames: []string{"Stew"},
		Rows:        []shopping.Row{{IngredientID: 1, Name: "salt", Unit: "g", Amount: 15}},
	}
	require.NoError(t, pub.PublishShoppingListExported(ctx, 42, report))
	require.NoError(t, pub.PublishShoppingListExported(ctx, 42, report))

	for want := int64(1); want <= 2; want++ {
		select {
		case d := <-deliveries:
			var evt events.ShoppingListExportedEvent
			require.NoError(t, json.Unmarshal(d.Body, &evt))
			require.NoError(t, evt.Validate(events.EventTypeShoppingListExported, 1))
			require.Equal(t, want, evt.Sequence)
			require.Equal(t, "user-42", evt.PartitionKey)
			require.Equal(t, "corr-1", evt.CorrelationID)
			require.Equal(t, int64(42), evt.Payload.UserID)
			require.Equal(t, 15, evt.Payload.Ingredients[0].Amount)
		case <-ctx.Done():
			t.Fatalf("timed out waiting for delivery %d", want)
		}
	}
}
