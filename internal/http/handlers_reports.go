package http

import (
	"net/http"

	"carteira/internal/log"
	"carteira/internal/session"
)

// handleReport returns the running balance of the session month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	points, err := s.svc.Reports.Balance(r.Context(), sess.OwnerID, sess.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	out := make([]balancePointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, balancePointJSON{
			Date:          p.Date,
			TransactionID: p.TransactionID,
			Delta:         p.Delta,
			Balance:       p.Balance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	sum, err := s.svc.Reports.Summary(r.Context(), sess.OwnerID, sess.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(sum))
}
