package http

import (
	"net/http"

	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/session"
)

func (s *Server) handleListCommitments(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	list, err := s.svc.Commitments.List(r.Context(), sess.OwnerID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommitmentsJSON(list, sess.Today))
}

func (s *Server) handleCreateCommitment(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	var req commitmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	c, err := s.svc.Commitments.Create(r.Context(), req.commitment(sess.OwnerID, ""))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	logWrite(r, "Commitment created", log.OpCreate, sess.OwnerID, "", "", 1)
	writeJSON(w, http.StatusCreated, toCommitmentJSON(c, sess.Today))
}

func (s *Server) handleUpdateCommitment(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req commitmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	c, err := s.svc.Commitments.Update(r.Context(), req.commitment(sess.OwnerID, r.PathValue("id")))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	logWrite(r, "Commitment updated", log.OpUpdate, sess.OwnerID, "", "", 1)
	writeJSON(w, http.StatusOK, toCommitmentJSON(c, sess.Today))
}

func (s *Server) handleDeleteCommitment(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Commitments.Delete(r.Context(), sess.OwnerID, r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	logWrite(r, "Commitment deleted", log.OpDelete, sess.OwnerID, "", "", 1)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleGenerateCommitments creates the session month's commitment
// transactions. Commitments already generated for the month are skipped.
func (s *Server) handleGenerateCommitments(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpGenerate, err)
		return
	}
	txs, err := s.svc.Commitments.GenerateMonth(r.Context(), sess.OwnerID, sess.Month)
	if err != nil {
		writeError(w, r, log.OpGenerate, err)
		return
	}
	logWrite(r, "Commitment transactions generated", log.OpGenerate, sess.OwnerID, "", sess.Month.String(), len(txs))
	writeJSON(w, http.StatusCreated, toTransactionsJSON(txs))
}

func toCommitmentsJSON(list []core.Commitment, today core.Date) []commitmentJSON {
	out := make([]commitmentJSON, 0, len(list))
	for _, c := range list {
		out = append(out, toCommitmentJSON(c, today))
	}
	return out
}
