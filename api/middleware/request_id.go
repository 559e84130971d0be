package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/abex/clubes-abex/api/responses"
	"github.com/abex/clubes-abex/pkg/logger"
)

const maxRequestIDLen = 128

// RequestID propagates a caller-supplied request id or mints one.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(responses.RequestIDHeader))
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}
			w.Header().Set(responses.RequestIDHeader, reqID)

			ctx := logg.WithRequestID(contextWithRequestID(r.Context(), reqID), reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
