package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/auth"
)

type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Anonymous is the principal of requests without credentials.
var Anonymous = auth.Principal{Role: "anonymous"}

// Authenticate resolves the Authorization header into a principal. Requests
// without credentials continue as Anonymous; malformed or invalid tokens are
// rejected with 401.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Anonymous)))
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				writeDetail(w, http.StatusUnauthorized, "invalid authorization header", GetCorrelationID(r.Context()))
				return
			}
			p, err := verifier.Verify(token)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("token rejected")
				writeDetail(w, http.StatusUnauthorized, "invalid token", GetCorrelationID(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// bearerToken accepts both "Bearer <t>" and "Token <t>" schemes.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	return token, true
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

func PrincipalFrom(ctx context.Context) auth.Principal {
	if p, ok := ctx.Value(ctxPrincipal).(auth.Principal); ok {
		return p
	}
	return Anonymous
}

type errorBody struct {
	Detail        string `json:"detail"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func writeDetail(w http.ResponseWriter, status int, detail, correlationID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: detail, CorrelationID: correlationID})
}
