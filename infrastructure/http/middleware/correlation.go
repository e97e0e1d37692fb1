package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
)

const CorrelationHeader = "X-Correlation-ID"

// Correlation tags every request with a correlation ID, honoring one the
// caller already sent, and echoes it back in the response.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		w.Header().Set(CorrelationHeader, correlationID)
		ctx := logger.WithCorrelationID(r.Context(), correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
