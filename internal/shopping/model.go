package shopping

// LineItem is one ingredient usage inside a recipe in the cart.
type LineItem struct {
	IngredientID int64  `json:"ingredient_id"`
	Name         string `json:"name"`
	Unit         string `json:"measurement_unit"`
	Amount       int    `json:"amount"`
}

// CartItem is a recipe currently sitting in a user's shopping cart.
type CartItem struct {
	RecipeID   int64      `json:"recipe_id"`
	RecipeName string     `json:"recipe_name"`
	Items      []LineItem `json:"items"`
}

// Row is one consolidated ingredient of the shopping list.
type Row struct {
	IngredientID int64  `json:"id"`
	Name         string `json:"name"`
	Unit         string `json:"measurement_unit"`
	Amount       int    `json:"amount"`
}

// Report is the aggregated shopping list handed to a renderer.
// RecipeNames keep cart order and Rows keep first-seen order.
type Report struct {
	RecipeNames    []string `json:"recipes"`
	Rows           []Row    `json:"ingredients"`
	Caption        string   `json:"caption"`
	TimestampLabel string   `json:"timestamp"`
}

// Document is a rendered shopping list ready for download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
	Report      Report
}
