package shopping

import (
	"errors"
	"fmt"
)

// ErrDataIntegrity marks cart contents that cannot be turned into a shopping list.
var ErrDataIntegrity = errors.New("shopping: cart data integrity violation")

// IntegrityError describes the first line item that failed validation.
type IntegrityError struct {
	Recipe       string
	IngredientID int64
	Amount       int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("shopping: recipe %q has non-positive amount %d for ingredient %d", e.Recipe, e.Amount, e.IngredientID)
}

func (e *IntegrityError) Unwrap() error { return ErrDataIntegrity }

// Aggregate folds the cart into one row per ingredient id, summing amounts.
// Name and unit of a row come from the first occurrence of the ingredient.
// The first line item with amount <= 0 aborts the whole aggregation.
func Aggregate(cart []CartItem, caption, timestampLabel string) (Report, error) {
	report := Report{
		RecipeNames:    make([]string, 0, len(cart)),
		Rows:           []Row{},
		Caption:        caption,
		TimestampLabel: timestampLabel,
	}

	index := make(map[int64]int)
	for _, recipe := range cart {
		report.RecipeNames = append(report.RecipeNames, recipe.RecipeName)

		for _, item := range recipe.Items {
			if item.Amount <= 0 {
				return Report{}, &IntegrityError{
					Recipe:       recipe.RecipeName,
					IngredientID: item.IngredientID,
					Amount:       item.Amount,
				}
			}

			if pos, ok := index[item.IngredientID]; ok {
				report.Rows[pos].Amount += item.Amount
				continue
			}

			index[item.IngredientID] = len(report.Rows)
			report.Rows = append(report.Rows, Row{
				IngredientID: item.IngredientID,
				Name:         item.Name,
				Unit:         item.Unit,
				Amount:       item.Amount,
			})
		}
	}

	return report, nil
}
