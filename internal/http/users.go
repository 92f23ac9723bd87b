package httpapi

import (
	"net/http"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/authz"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/middleware"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/user"
)

type registerResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if _, err := authorize(r, authz.ActionRegister); err != nil {
		writeError(w, r, err)
		return
	}
	var in user.NewUser
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(in); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		ID: u.ID, Email: u.Email, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName,
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, err := h.users.List(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFrom(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Get(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionReadSelf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Get(r.Context(), p.UserID, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionChangePassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionSubscribe)
	if err != nil {
		writeError(w, r, err)
		return
	}
	subs, err := h.users.Subscriptions(r.Context(), p.UserID, intQuery(r, "recipes_limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionSubscribe)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.users.Subscribe(r.Context(), p.UserID, id, intQuery(r, "recipes_limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	p, err := authorize(r, authz.ActionSubscribe)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.Unsubscribe(r.Context(), p.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AuthToken string `json:"auth_token"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AuthToken: token})
}

// Logout only requires a valid token. Tokens are stateless and expire on their own.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := authorize(r, authz.ActionReadSelf); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
