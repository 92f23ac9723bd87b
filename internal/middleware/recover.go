package middleware

import (
	"net/http"

	"github.com/rs/zerolog/hlog"
)

func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hlog.FromRequest(r).Error().Interface("panic", rec).Msg("recovered from panic")
				writeDetail(w, http.StatusInternalServerError, "internal server error", GetCorrelationID(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
