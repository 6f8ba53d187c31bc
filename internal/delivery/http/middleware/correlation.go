package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"eventhub/internal/platform/requestctx"
)

// CorrelationHeader carries the correlation id in requests and responses.
const CorrelationHeader = "X-Correlation-ID"

// Correlation propagates the caller's correlation id, or assigns a new one,
// and echoes it on the response. Notifications emitted while serving the
// request carry the same id.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(CorrelationHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(requestctx.WithCorrelationID(r.Context(), id)))
	})
}
