package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"carteira/internal/core"
	"carteira/internal/planning"
	"carteira/internal/ports"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON object into dst. Unknown fields,
// trailing data and oversized bodies are rejected as bad requests.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}

type createCardRequest struct {
	Name       string     `json:"name"`
	Limit      core.Money `json:"limit"`
	ClosingDay int        `json:"closing_day"`
	DueDay     int        `json:"due_day"`
}

func (req createCardRequest) card(owner string) core.Card {
	return core.Card{
		OwnerID:    owner,
		Name:       sanitizeInput(req.Name),
		Limit:      req.Limit,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
	}
}

type createTransactionRequest struct {
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Kind        core.Kind  `json:"kind"`
	Date        core.Date  `json:"date"`
	Paid        bool       `json:"paid"`
	CardID      string     `json:"card_id"`
}

func (req createTransactionRequest) transaction(owner string) core.Transaction {
	return core.Transaction{
		OwnerID:     owner,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Kind:        req.Kind,
		Date:        req.Date,
		Paid:        req.Paid,
		CardID:      strings.TrimSpace(req.CardID),
	}
}

type updateTransactionRequest struct {
	Description *string     `json:"description"`
	Amount      *core.Money `json:"amount"`
	Date        *core.Date  `json:"date"`
}

func (req updateTransactionRequest) update() (ports.TransactionUpdate, error) {
	if req.Description == nil && req.Amount == nil && req.Date == nil {
		return ports.TransactionUpdate{}, fmt.Errorf("%w: nothing to update", errBadRequest)
	}
	u := ports.TransactionUpdate{Amount: req.Amount, Date: req.Date}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		u.Description = &desc
	}
	return u, nil
}

type cardPurchaseRequest struct {
	CardID            string     `json:"card_id"`
	Description       string     `json:"description"`
	InstallmentAmount core.Money `json:"installment_amount"`
	Installments      int        `json:"installments"`
	Date              core.Date  `json:"date"`
}

// purchase converts the request. A missing date means the purchase was
// made today.
func (req cardPurchaseRequest) purchase(owner string, today core.Date) planning.Purchase {
	n := req.Installments
	if n == 0 {
		n = 1
	}
	date := req.Date
	if date.IsZero() {
		date = today
	}
	return planning.Purchase{
		OwnerID:           owner,
		CardID:            strings.TrimSpace(req.CardID),
		Description:       sanitizeInput(req.Description),
		InstallmentAmount: req.InstallmentAmount,
		Installments:      n,
		Date:              date,
	}
}

type commitmentRequest struct {
	Name          string     `json:"name"`
	ExpectedDay   int        `json:"expected_day"`
	Variable      bool       `json:"variable"`
	DefaultAmount core.Money `json:"default_amount"`
	Kind          core.Kind  `json:"kind"`
}

func (req commitmentRequest) commitment(owner, id string) core.Commitment {
	return core.Commitment{
		ID:            id,
		OwnerID:       owner,
		Name:          sanitizeInput(req.Name),
		ExpectedDay:   req.ExpectedDay,
		Variable:      req.Variable,
		DefaultAmount: req.DefaultAmount,
		Kind:          req.Kind,
	}
}
