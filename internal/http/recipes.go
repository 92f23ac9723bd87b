package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/authz"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/middleware"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/recipe"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
)

// recipeFilter reads ?author=&tags=a&tags=b&is_favorited=1&is_in_shopping_cart=1.
func recipeFilter(r *http.Request) recipe.Filter {
	q := r.URL.Query()
	f := recipe.Filter{
		TagSlugs:      q["tags"],
		FavoritedOnly: q.Get("is_favorited") == "1",
		InCartOnly:    q.Get("is_in_shopping_cart") == "1",
	}
	if author, err := strconv.ParseInt(q.Get("author"), 10, 64); err == nil && author > 0 {
		f.AuthorID = author
	}
	return f
}

func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFrom(r.Context())
	recipes, err := h.recipes.List(r.Context(), p, recipeFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.recipes.Get(r.Context(), middleware.PrincipalFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionCreateRecipe)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in recipe.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(in); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.recipes.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func inputFrom(rec recipe.Recipe) recipe.Input {
	in := recipe.Input{
		Image:       rec.Image,
		Name:        rec.Name,
		Text:        rec.Text,
		CookingTime: rec.CookingTime,
		Tags:        make([]int64, 0, len(rec.Tags)),
		Ingredients: make([]recipe.IngredientInput, 0, len(rec.Ingredients)),
	}
	for _, t := range rec.Tags {
		in.Tags = append(in.Tags, t.ID)
	}
	for _, ing := range rec.Ingredients {
		in.Ingredients = append(in.Ingredients, recipe.IngredientInput{ID: ing.ID, Amount: ing.Amount})
	}
	return in
}

// recipePatch holds the fields present in a PATCH body. Lists are replaced
// as a whole, never merged element by element.
type recipePatch struct {
	Ingredients *[]recipe.IngredientInput `json:"ingredients"`
	Tags        *[]int64                  `json:"tags"`
	Image       *string                   `json:"image"`
	Name        *string                   `json:"name"`
	Text        *string                   `json:"text"`
	CookingTime *int                      `json:"cooking_time"`
}

func (p recipePatch) apply(in recipe.Input) recipe.Input {
	if p.Ingredients != nil {
		in.Ingredients = *p.Ingredients
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.Image != nil {
		in.Image = *p.Image
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Text != nil {
		in.Text = *p.Text
	}
	if p.CookingTime != nil {
		in.CookingTime = *p.CookingTime
	}
	return in
}

// UpdateRecipe serves PUT and PATCH. PATCH starts from the stored recipe so
// omitted fields keep their values.
func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFrom(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in recipe.Input
	if r.Method == http.MethodPatch {
		var patch recipePatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, r, err)
			return
		}
		current, err := h.recipes.Get(r.Context(), p, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in = patch.apply(inputFrom(current))
	} else if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(in); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.recipes.Update(r.Context(), p, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.recipes.Delete(r.Context(), middleware.PrincipalFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addRelation(rel recipe.Relation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		s, err := h.recipes.AddRelation(r.Context(), middleware.PrincipalFrom(r.Context()), rel, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

func (h *Handler) removeRelation(rel recipe.Relation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := h.recipes.RemoveRelation(r.Context(), middleware.PrincipalFrom(r.Context()), rel, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DownloadShoppingCart streams the aggregated shopping list, as a PDF by default
// or as the raw report with ?format=json.
func (h *Handler) DownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionDownloadList)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = shopping.FormatPDF
	}

	doc, err := h.exporter.Export(r.Context(), p.UserID, format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	if format == shopping.FormatPDF {
		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
