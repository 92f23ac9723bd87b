package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/auth"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/authz"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/catalog"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/middleware"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/recipe"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/render"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/user"
)

type UserService interface {
	Register(ctx context.Context, in user.NewUser) (user.User, error)
	Get(ctx context.Context, id, viewerID int64) (user.User, error)
	List(ctx context.Context, viewerID int64) ([]user.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	Authenticate(ctx context.Context, email, password string) (user.User, error)
	Subscribe(ctx context.Context, followerID, authorID int64, recipesLimit int) (user.Subscription, error)
	Unsubscribe(ctx context.Context, followerID, authorID int64) error
	Subscriptions(ctx context.Context, followerID int64, recipesLimit int) ([]user.Subscription, error)
}

type RecipeService interface {
	List(ctx context.Context, actor auth.Principal, f recipe.Filter) ([]recipe.Recipe, error)
	Get(ctx context.Context, actor auth.Principal, id int64) (recipe.Recipe, error)
	Create(ctx context.Context, actor auth.Principal, in recipe.Input) (recipe.Recipe, error)
	Update(ctx context.Context, actor auth.Principal, id int64, in recipe.Input) (recipe.Recipe, error)
	Delete(ctx context.Context, actor auth.Principal, id int64) error
	AddRelation(ctx context.Context, actor auth.Principal, rel recipe.Relation, recipeID int64) (recipe.Short, error)
	RemoveRelation(ctx context.Context, actor auth.Principal, rel recipe.Relation, recipeID int64) error
}

type ShoppingExporter interface {
	Export(ctx context.Context, userID int64, format string) (shopping.Document, error)
}

type TokenIssuer interface {
	Issue(userID int64, role string) (string, error)
}

type Handler struct {
	users    UserService
	catalog  catalog.Repository
	recipes  RecipeService
	exporter ShoppingExporter
	tokens   TokenIssuer
}

func NewHandler(users UserService, cat catalog.Repository, recipes RecipeService, exporter ShoppingExporter, tokens TokenIssuer) *Handler {
	return &Handler{users: users, catalog: cat, recipes: recipes, exporter: exporter, tokens: tokens}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

var errBadRequest = errors.New("bad request")

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

// authorize checks the policy for the request principal.
func authorize(r *http.Request, action authz.Action) (auth.Principal, error) {
	p := middleware.PrincipalFrom(r.Context())
	if err := authz.Check(authz.ActorRole(p.UserID, p.Role), action, authz.OwnershipNone); err != nil {
		return p, err
	}
	return p, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFoundParam
	}
	return id, nil
}

var errNotFoundParam = errors.New("not found")

func intQuery(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs fieldErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, verrs)
	case errors.Is(err, errNotFoundParam),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, recipe.ErrNotFound):
		writeJSON(w, http.StatusNotFound, detailResponse{Detail: "Not found."})
	case errors.Is(err, authz.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: err.Error()})
	case errors.Is(err, authz.ErrForbidden):
		writeJSON(w, http.StatusForbidden, detailResponse{Detail: err.Error()})
	case errors.Is(err, shopping.ErrDataIntegrity):
		hlog.FromRequest(r).Error().Err(err).Msg("shopping cart holds inconsistent data")
		writeJSON(w, http.StatusConflict, detailResponse{Detail: err.Error()})
	case errors.Is(err, render.ErrRender):
		hlog.FromRequest(r).Error().Err(err).Msg("shopping list render failed")
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: "could not render shopping list"})
	case errors.Is(err, errBadRequest),
		errors.Is(err, user.ErrSelfSubscription),
		errors.Is(err, user.ErrAlreadySubscribed),
		errors.Is(err, user.ErrNotSubscribed),
		errors.Is(err, user.ErrDuplicate),
		errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, user.ErrWrongPassword),
		errors.Is(err, user.ErrInvalidUsername),
		errors.Is(err, user.ErrWeakPassword),
		errors.Is(err, recipe.ErrRelationExists),
		errors.Is(err, recipe.ErrRelationNotExists),
		errors.Is(err, recipe.ErrUnknownReference),
		errors.Is(err, recipe.ErrOutOfRange),
		errors.Is(err, catalog.ErrDuplicate),
		errors.Is(err, shopping.ErrUnknownFormat):
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: err.Error()})
	default:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "internal error"})
	}
}
