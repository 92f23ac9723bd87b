package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
)

const (
	EventTypeShoppingListExported = "ShoppingListExported"
	shoppingListExportedSchema    = "contracts/events/shopping/ShoppingListExported.v1.payload.schema.json"
)

type ExportedIngredient struct {
	IngredientID int64  `json:"ingredientId"`
	Name         string `json:"name"`
	Unit         string `json:"measurementUnit"`
	Amount       int    `json:"amount"`
}

type ShoppingListExportedPayload struct {
	UserID      int64                `json:"userId"`
	Recipes     []string             `json:"recipes"`
	Ingredients []ExportedIngredient `json:"ingredients"`
	Timestamp   time.Time            `json:"timestamp"`
}

type ShoppingListExportedEvent = Envelope[ShoppingListExportedPayload]

func shoppingListExportedPayload(userID int64, report shopping.Report, now time.Time) ShoppingListExportedPayload {
	p := ShoppingListExportedPayload{
		UserID:      userID,
		Recipes:     append([]string{}, report.RecipeNames...),
		Ingredients: make([]ExportedIngredient, 0, len(report.Rows)),
		Timestamp:   now,
	}
	for _, row := range report.Rows {
		p.Ingredients = append(p.Ingredients, ExportedIngredient{
			IngredientID: row.IngredientID,
			Name:         row.Name,
			Unit:         row.Unit,
			Amount:       row.Amount,
		})
	}
	return p
}

func userPartition(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}

func newShoppingListExportedEvent(meta EventMeta, seq int64, producer string, payload ShoppingListExportedPayload, occurredAt time.Time) ShoppingListExportedEvent {
	return ShoppingListExportedEvent{
		EventName:     EventTypeShoppingListExported,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  meta.PartitionKey,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        shoppingListExportedSchema,
		Payload:       payload,
	}
}
