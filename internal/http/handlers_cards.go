package http

import (
	"net/http"

	"carteira/internal/log"
	"carteira/internal/session"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	cards, err := s.svc.Cards.List(r.Context(), sess.OwnerID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]cardJSON, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	sess, err := session.MustFromContext(r.Context())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	var req createCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	card, err := s.svc.Cards.Create(r.Context(), req.card(sess.OwnerID))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	logWrite(r, "Card created", log.OpCreate, sess.OwnerID, card.ID, "", 1)
	writeJSON(w, http.StatusCreated, toCardJSON(card))
}
