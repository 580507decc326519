package http

import (
	"net/http"
	"strings"

	"carteira/internal/log"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// writeError answers with the status mapped from err. Only internal
// errors are logged; client errors are already visible in the access log.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		sl := log.NewStructuredLogger(log.FromContext(r.Context()))
		sl.LogError(r.Context(), "Request failed", err, log.ErrorTypeInternal, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
	}
	ErrorFor(err).Write(w)
}

func logWrite(r *http.Request, msg, op, owner, cardID, period string, count int) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogWrite(r.Context(), msg, op, owner, cardID, period, count)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Data(v).Write(w)
}
