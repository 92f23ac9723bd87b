package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/recipe"
)

const (
	EventTypeRecipePublished = "RecipePublished"
	recipePublishedSchema    = "contracts/events/recipe/RecipePublished.v1.payload.schema.json"
)

type RecipePublishedPayload struct {
	RecipeID    int64     `json:"recipeId"`
	AuthorID    int64     `json:"authorId"`
	Name        string    `json:"name"`
	CookingTime int       `json:"cookingTime"`
	TagSlugs    []string  `json:"tags"`
	Ingredients int       `json:"ingredientCount"`
	Timestamp   time.Time `json:"timestamp"`
}

type RecipePublishedEvent = Envelope[RecipePublishedPayload]

func recipePublishedPayload(r recipe.Recipe, now time.Time) RecipePublishedPayload {
	slugs := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		slugs = append(slugs, t.Slug)
	}
	return RecipePublishedPayload{
		RecipeID:    r.ID,
		AuthorID:    r.Author.ID,
		Name:        r.Name,
		CookingTime: r.CookingTime,
		TagSlugs:    slugs,
		Ingredients: len(r.Ingredients),
		Timestamp:   now,
	}
}

func authorPartition(authorID int64) string {
	return "author-" + strconv.FormatInt(authorID, 10)
}

func newRecipePublishedEvent(meta EventMeta, seq int64, producer string, payload RecipePublishedPayload, occurredAt time.Time) RecipePublishedEvent {
	return RecipePublishedEvent{
		EventName:     EventTypeRecipePublished,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  meta.PartitionKey,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        recipePublishedSchema,
		Payload:       payload,
	}
}
