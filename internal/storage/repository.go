package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"carteira/internal/core"
	"carteira/internal/ports"

	_ "modernc.org/sqlite"
)

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	err := r.queries.CreateCard(ctx, Card{
		ID:         c.ID,
		OwnerID:    c.OwnerID,
		Name:       strings.TrimSpace(c.Name),
		LimitCents: c.Limit.Cents,
		ClosingDay: int64(c.ClosingDay),
		DueDay:     int64(c.DueDay),
		CreatedAt:  formatTime(createdAt),
	})
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	slog.InfoContext(ctx, "Card saved to SQLite", "card_id", c.ID, "closing_day", c.ClosingDay)
	return nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, owner, id string) (core.Card, error) {
	row, err := r.queries.GetCard(ctx, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) ListCards(ctx context.Context, owner string) ([]core.Card, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	return r.listCards(ctx, owner)
}

func (r *SQLiteRepository) ListAllCards(ctx context.Context) ([]core.Card, error) {
	return r.listCards(ctx, "")
}

func (r *SQLiteRepository) listCards(ctx context.Context, owner string) ([]core.Card, error) {
	rows, err := r.queries.ListCards(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	out := make([]core.Card, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// InsertTransactions writes txs in a single database transaction.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %q: %w", t.Description, err)
		}
	}
	now := formatTime(r.now())

	err := r.withTx(ctx, func(q *Queries) error {
		for _, t := range txs {
			if t.CardID != "" {
				owner, err := q.CardOwner(ctx, t.CardID)
				if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != t.OwnerID) {
					return fmt.Errorf("transaction %s: card %s: %w", t.ID, t.CardID, core.ErrDanglingReference)
				}
				if err != nil {
					return fmt.Errorf("check card: %w", err)
				}
			}
			row := fromCoreTransaction(t)
			if t.CreatedAt.IsZero() {
				row.CreatedAt = now
			}
			if err := q.CreateTransaction(ctx, row); err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(txs))
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, owner, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		OwnerID:          f.OwnerID,
		FromDate:         f.From.String(),
		ToDate:           f.To.String(),
		CardID:           f.CardID,
		CardOnly:         f.CardOnly,
		NonCardOnly:      f.NonCardOnly,
		CommitmentPeriod: nullPeriod(f.CommitmentPeriod).String,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, owner, id string, u ports.TransactionUpdate) (core.Transaction, error) {
	var updated core.Transaction
	err := r.withTx(ctx, func(q *Queries) error {
		row, err := q.GetTransaction(ctx, id, owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		t, err := row.toCore()
		if err != nil {
			return err
		}
		if u.Description != nil {
			t.Description = strings.TrimSpace(*u.Description)
		}
		if u.Amount != nil {
			t.Amount = *u.Amount
			t.AmountPending = false
		}
		if u.Date != nil {
			t.Date = *u.Date
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if err := q.UpdateTransaction(ctx, fromCoreTransaction(t)); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = t
		return nil
	})
	return updated, err
}

func (r *SQLiteRepository) SetPaid(ctx context.Context, owner string, ids []string, paid bool) (int, error) {
	var n int
	err := r.withTx(ctx, func(q *Queries) error {
		for _, id := range ids {
			affected, err := q.SetTransactionPaid(ctx, paid, id, owner)
			if err != nil {
				return fmt.Errorf("set paid %s: %w", id, err)
			}
			n += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, owner, id string) (core.Transaction, error) {
	var deleted core.Transaction
	err := r.withTx(ctx, func(q *Queries) error {
		row, err := q.GetTransaction(ctx, id, owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if deleted, err = row.toCore(); err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, id, owner); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return nil
	})
	return deleted, err
}

func (r *SQLiteRepository) CreateCommitment(ctx context.Context, c core.Commitment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	row := fromCoreCommitment(c)
	if c.CreatedAt.IsZero() {
		row.CreatedAt = formatTime(r.now())
	}
	if err := r.queries.CreateCommitment(ctx, row); err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateCommitment(ctx context.Context, c core.Commitment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateCommitment(ctx, fromCoreCommitment(c))
	if err != nil {
		return fmt.Errorf("update commitment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("commitment %s: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCommitment(ctx context.Context, owner, id string) error {
	n, err := r.queries.DeleteCommitment(ctx, id, owner)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetCommitment(ctx context.Context, owner, id string) (core.Commitment, error) {
	row, err := r.queries.GetCommitment(ctx, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Commitment{}, fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Commitment{}, fmt.Errorf("get commitment: %w", err)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) ListCommitments(ctx context.Context, owner string) ([]core.Commitment, error) {
	rows, err := r.queries.ListCommitments(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	out := make([]core.Commitment, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *SQLiteRepository) ListCommitmentOwners(ctx context.Context) ([]string, error) {
	owners, err := r.queries.ListCommitmentOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list commitment owners: %w", err)
	}
	return owners, nil
}

func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, s ports.InvoiceSnapshot) error {
	err := r.queries.UpsertSnapshot(ctx, InvoiceSnapshot{
		OwnerID:          s.OwnerID,
		CardID:           s.CardID,
		Period:           s.Period.String(),
		CardName:         s.CardName,
		TotalCents:       s.Total.Cents,
		OutstandingCents: s.Outstanding.Cents,
		Status:           s.Status,
		TxCount:          int64(s.Count),
		ComputedAt:       formatTime(s.ComputedAt),
	})
	if err != nil {
		return fmt.Errorf("upsert invoice snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, owner string, p core.Period) ([]ports.InvoiceSnapshot, error) {
	rows, err := r.queries.ListSnapshots(ctx, owner, p.String())
	if err != nil {
		return nil, fmt.Errorf("list invoice snapshots: %w", err)
	}
	out := make([]ports.InvoiceSnapshot, 0, len(rows))
	for _, row := range rows {
		computed, err := parseTime(row.ComputedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, ports.InvoiceSnapshot{
			OwnerID:     row.OwnerID,
			CardID:      row.CardID,
			CardName:    row.CardName,
			Period:      p,
			Total:       core.Money{Cents: row.TotalCents},
			Outstanding: core.Money{Cents: row.OutstandingCents},
			Status:      row.Status,
			Count:       int(row.TxCount),
			ComputedAt:  computed,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) ResetOwner(ctx context.Context, owner string) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	if err := r.withTx(ctx, func(q *Queries) error { return q.ResetOwner(ctx, owner) }); err != nil {
		return fmt.Errorf("reset owner: %w", err)
	}
	slog.WarnContext(ctx, "Owner data removed from SQLite", "owner_id", owner)
	return nil
}

func (c Card) toCore() core.Card {
	created, _ := parseTime(c.CreatedAt)
	return core.Card{
		ID:         c.ID,
		OwnerID:    c.OwnerID,
		Name:       c.Name,
		Limit:      core.Money{Cents: c.LimitCents},
		ClosingDay: int(c.ClosingDay),
		DueDay:     int(c.DueDay),
		CreatedAt:  created,
	}
}

func (t Transaction) toCore() (core.Transaction, error) {
	date, err := core.ParseDate(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	created, _ := parseTime(t.CreatedAt)
	var commitmentPeriod core.Period
	if t.CommitmentPeriod.Valid && t.CommitmentPeriod.String != "" {
		commitmentPeriod, err = core.ParsePeriod(t.CommitmentPeriod.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	return core.Transaction{
		ID:               t.ID,
		OwnerID:          t.OwnerID,
		Description:      t.Description,
		Amount:           core.Money{Cents: t.AmountCents},
		Kind:             core.Kind(t.Kind),
		Date:             date,
		Paid:             t.Paid,
		CardID:           t.CardID.String,
		CommitmentID:     t.CommitmentID.String,
		CommitmentPeriod: commitmentPeriod,
		AmountPending:    t.AmountPending,
		CreatedAt:        created,
	}, nil
}

func fromCoreTransaction(t core.Transaction) Transaction {
	return Transaction{
		ID:               t.ID,
		OwnerID:          t.OwnerID,
		Description:      strings.TrimSpace(t.Description),
		AmountCents:      t.Amount.Cents,
		Kind:             string(t.Kind),
		Date:             t.Date.String(),
		Paid:             t.Paid,
		CardID:           nullString(t.CardID),
		CommitmentID:     nullString(t.CommitmentID),
		CommitmentPeriod: nullPeriod(t.CommitmentPeriod),
		AmountPending:    t.AmountPending,
		CreatedAt:        formatTime(t.CreatedAt),
	}
}

func (c Commitment) toCore() core.Commitment {
	created, _ := parseTime(c.CreatedAt)
	return core.Commitment{
		ID:            c.ID,
		OwnerID:       c.OwnerID,
		Name:          c.Name,
		ExpectedDay:   int(c.ExpectedDay),
		Variable:      c.Variable,
		DefaultAmount: core.Money{Cents: c.DefaultAmountCents},
		Kind:          core.Kind(c.Kind),
		CreatedAt:     created,
	}
}

func fromCoreCommitment(c core.Commitment) Commitment {
	return Commitment{
		ID:                 c.ID,
		OwnerID:            c.OwnerID,
		Name:               strings.TrimSpace(c.Name),
		ExpectedDay:        int64(c.ExpectedDay),
		Variable:           c.Variable,
		DefaultAmountCents: c.DefaultAmount.Cents,
		Kind:               string(c.Kind),
		CreatedAt:          formatTime(c.CreatedAt),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullPeriod(p core.Period) sql.NullString {
	if p.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: p.String(), Valid: true}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
