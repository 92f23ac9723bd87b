package recipe

import (
	"time"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/catalog"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/user"
)

// IngredientAmount is an ingredient as used by one recipe.
type IngredientAmount struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type Recipe struct {
	ID               int64              `json:"id"`
	Tags             []catalog.Tag      `json:"tags"`
	Author           user.User          `json:"author"`
	Ingredients      []IngredientAmount `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`
	IsInShoppingCart bool               `json:"is_in_shopping_cart"`
	Name             string             `json:"name"`
	Image            string             `json:"image"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
	PubDate          time.Time          `json:"-"`
}

// Short is the compact view returned by favorite and cart endpoints.
type Short struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// MaxAmount bounds ingredient amounts and cooking times.
const MaxAmount = 32767

type IngredientInput struct {
	ID     int64 `json:"id" validate:"required,gt=0"`
	Amount int   `json:"amount" validate:"required,min=1,max=32767"`
}

// Input is the writable part of a recipe, shared by create and update.
type Input struct {
	Ingredients []IngredientInput `json:"ingredients" validate:"required,min=1,unique=ID,dive"`
	Tags        []int64           `json:"tags" validate:"required,min=1,unique,dive,gt=0"`
	Image       string            `json:"image" validate:"required"`
	Name        string            `json:"name" validate:"required,max=200"`
	Text        string            `json:"text" validate:"required"`
	CookingTime int               `json:"cooking_time" validate:"required,min=1,max=32767"`
}

// Filter narrows recipe listings. Zero values disable a filter.
// FavoritedOnly and InCartOnly are relative to ViewerID.
type Filter struct {
	ViewerID      int64
	AuthorID      int64
	TagSlugs      []string
	FavoritedOnly bool
	InCartOnly    bool
}
