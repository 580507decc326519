package http

import (
	"net/http"

	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/services"
	"carteira/internal/session"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	kind, err := services.ParseTransactionKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	var txs []core.Transaction
	if sess.ActiveCardID != "" && kind == services.KindCard {
		txs, err = s.svc.Reports.CardTransactions(r.Context(), sess.OwnerID, sess.ActiveCardID, sess.Month)
	} else {
		txs, err = s.svc.Reports.Transactions(r.Context(), sess.OwnerID, sess.Month, kind)
	}
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionsJSON(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.svc.Transactions.Create(r.Context(), req.transaction(sess.OwnerID))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	logWrite(r, "Transaction created", log.OpCreate, sess.OwnerID, tx.CardID, tx.Date.String(), 1)
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handleCreateCardPurchase(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	var req cardPurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	p := req.purchase(sess.OwnerID, sess.Today)
	txs, err := s.svc.Transactions.CreateCardPurchase(r.Context(), p)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	logWrite(r, "Card purchase created", log.OpCreate, sess.OwnerID, p.CardID, p.Date.String(), len(txs))
	writeJSON(w, http.StatusCreated, toTransactionsJSON(txs))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	u, err := req.update()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	tx, err := s.svc.Transactions.Update(r.Context(), sess.OwnerID, r.PathValue("id"), u)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	logWrite(r, "Transaction updated", log.OpUpdate, sess.OwnerID, tx.CardID, tx.Date.String(), 1)
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), sess.OwnerID, r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	logWrite(r, "Transaction deleted", log.OpDelete, sess.OwnerID, "", "", 1)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSetPaid marks one transaction paid or unpaid.
func (s *Server) handleSetPaid(paid bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.MustFromContext(r.Context())
		if err != nil {
			writeError(w, r, log.OpPay, err)
			return
		}
		txs, err := s.svc.Transactions.SetPaid(r.Context(), sess.OwnerID, []string{r.PathValue("id")}, paid)
		if err != nil {
			writeError(w, r, log.OpPay, err)
			return
		}
		logWrite(r, "Transaction paid flag changed", log.OpPay, sess.OwnerID, "", "", len(txs))
		writeJSON(w, http.StatusOK, toTransactionJSON(txs[0]))
	}
}

// handleResetAccount removes every record of the caller.
func (s *Server) handleResetAccount(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpReset, err)
		return
	}
	if err := s.svc.Transactions.ResetOwner(r.Context(), sess.OwnerID); err != nil {
		writeError(w, r, log.OpReset, err)
		return
	}
	logWrite(r, "Account reset", log.OpReset, sess.OwnerID, "", "", 0)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
