package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"carteira/internal/core"
	"carteira/internal/invoice"
	"carteira/internal/planning"
	"carteira/internal/session"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/cards/c1").
		Data(map[string]string{"id": "c1"}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rr.Header().Get("Location") != "/api/cards/c1" {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body["id"] != "c1" {
		t.Errorf("body = %v, err = %v", body, err)
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Data("ignored").Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Errorf("status = %d, body = %q", rr.Code, rr.Body.String())
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get card: %w", core.ErrNotFound), http.StatusNotFound},
		{"dangling", &invoice.DanglingReferenceError{TransactionID: "t1", CardID: "c9"}, http.StatusNotFound},
		{"invalid amount", core.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid configuration", fmt.Errorf("%w: closing day 40", core.ErrInvalidConfiguration), http.StatusBadRequest},
		{"installments", fmt.Errorf("%w: 0", planning.ErrInvalidInstallments), http.StatusBadRequest},
		{"decode", fmt.Errorf("%w: unexpected EOF", errBadRequest), http.StatusBadRequest},
		{"no session", session.ErrNoSession, http.StatusUnauthorized},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorFor_HidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorFor(errors.New("pq: password authentication failed")).Write(rr)

	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusInternalServerError || body.Error != "internal error" {
		t.Errorf("status = %d, body = %+v", rr.Code, body)
	}
}
