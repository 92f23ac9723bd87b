package httpapi

import (
	"net/http"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/authz"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/catalog"
)

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalog.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, err := h.catalog.GetTag(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	if _, err := authorize(r, authz.ActionManageCatalog); err != nil {
		writeError(w, r, err)
		return
	}
	var in catalog.NewTag
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(in); err != nil {
		writeError(w, r, err)
		return
	}
	tag, err := h.catalog.CreateTag(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// ListIngredients supports ?name= prefix search.
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListIngredients(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ing, err := h.catalog.GetIngredient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ing)
}
