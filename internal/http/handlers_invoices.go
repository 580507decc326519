package http

import (
	"net/http"

	"carteira/internal/invoice"
	"carteira/internal/log"
	"carteira/internal/session"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	var stmts []invoice.Statement
	if sess.ActiveCardID != "" {
		var st invoice.Statement
		st, err = s.svc.Invoices.Statement(r.Context(), sess.OwnerID, sess.ActiveCardID, sess.Month)
		stmts = []invoice.Statement{st}
	} else {
		stmts, err = s.svc.Invoices.Overview(r.Context(), sess.OwnerID, sess.Month)
	}
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]statementJSON, 0, len(stmts))
	for _, st := range stmts {
		out = append(out, toStatementJSON(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	st, err := s.svc.Invoices.Statement(r.Context(), sess.OwnerID, r.PathValue("card"), sess.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementJSON(st))
}

type payInvoiceResponse struct {
	Paid    []transactionJSON `json:"paid"`
	Invoice statementJSON     `json:"invoice"`
}

// handlePayInvoice pays the card's invoice for the session month and
// returns the recomputed statement.
func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpPay, err)
		return
	}
	cardID := r.PathValue("card")
	paid, err := s.svc.Transactions.PayInvoice(r.Context(), sess.OwnerID, cardID, sess.Month)
	if err != nil {
		writeError(w, r, log.OpPay, err)
		return
	}
	st, err := s.svc.Invoices.Refresh(r.Context(), sess.OwnerID, cardID, sess.Month)
	if err != nil {
		writeError(w, r, log.OpPay, err)
		return
	}
	logWrite(r, "Invoice paid", log.OpPay, sess.OwnerID, cardID, sess.Month.String(), len(paid))
	writeJSON(w, http.StatusOK, payInvoiceResponse{
		Paid:    toTransactionsJSON(paid),
		Invoice: toStatementJSON(st),
	})
}
