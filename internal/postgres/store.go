package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"carteira/internal/core"
	"carteira/internal/ports"
)

type Store struct {
	db *DB
}

var _ ports.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error { return s.db.Pool.Ping(ctx) }

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

const cardColumns = `id, owner_id, name, limit_cents, closing_day, due_day, created_at`

func scanCard(row pgx.Row) (core.Card, error) {
	var c core.Card
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Limit.Cents, &c.ClosingDay, &c.DueDay, &c.CreatedAt)
	return c, err
}

func (s *Store) CreateCard(ctx context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO cards (id, owner_id, name, limit_cents, closing_day, due_day)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.OwnerID, strings.TrimSpace(c.Name), c.Limit.Cents, c.ClosingDay, c.DueDay,
	)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, owner, id string) (core.Card, error) {
	c, err := scanCard(s.db.Pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1 AND owner_id = $2`, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Card{}, fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

func (s *Store) ListCards(ctx context.Context, owner string) ([]core.Card, error) {
	return s.listCards(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE owner_id = $1 ORDER BY name, id`, owner)
}

func (s *Store) ListAllCards(ctx context.Context) ([]core.Card, error) {
	return s.listCards(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY name, id`)
}

func (s *Store) listCards(ctx context.Context, query string, args ...any) ([]core.Card, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()
	var out []core.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const transactionColumns = `id, owner_id, description, amount_cents, kind, date, paid,
	COALESCE(card_id, ''), COALESCE(commitment_id, ''), COALESCE(commitment_period, ''),
	amount_pending, created_at`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t                core.Transaction
		kind             string
		date             time.Time
		commitmentPeriod string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Description, &t.Amount.Cents, &kind, &date, &t.Paid,
		&t.CardID, &t.CommitmentID, &commitmentPeriod, &t.AmountPending, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.Kind = core.Kind(kind)
	t.Date = core.DateOf(date)
	if commitmentPeriod != "" {
		if t.CommitmentPeriod, err = core.ParsePeriod(commitmentPeriod); err != nil {
			return t, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func (s *Store) InsertTransactions(ctx context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %q: %w", t.Description, err)
		}
	}
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		for _, t := range txs {
			if t.CardID != "" {
				var owner string
				err := tx.QueryRow(ctx, `SELECT owner_id FROM cards WHERE id = $1`, t.CardID).Scan(&owner)
				if errors.Is(err, pgx.ErrNoRows) || (err == nil && owner != t.OwnerID) {
					return fmt.Errorf("transaction %s: card %s: %w", t.ID, t.CardID, core.ErrDanglingReference)
				}
				if err != nil {
					return fmt.Errorf("check card: %w", err)
				}
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO transactions
				 (id, owner_id, description, amount_cents, kind, date, paid, card_id, commitment_id,
				  commitment_period, amount_pending)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11)`,
				t.ID, t.OwnerID, strings.TrimSpace(t.Description), t.Amount.Cents, string(t.Kind),
				t.Date.Time, t.Paid, t.CardID, t.CommitmentID, commitmentPeriodLabel(t), t.AmountPending,
			)
			if err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) GetTransaction(ctx context.Context, owner, id string) (core.Transaction, error) {
	return getTransaction(ctx, s.db.Pool, owner, id, false)
}

func getTransaction(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, owner, id string, forUpdate bool) (core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND owner_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTransaction(q.QueryRow(ctx, query, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if !f.From.IsZero() {
		add("date >= $%d", f.From.Time)
	}
	if !f.To.IsZero() {
		add("date <= $%d", f.To.Time)
	}
	if f.CardID != "" {
		add("card_id = $%d", f.CardID)
	}
	if f.CardOnly {
		where = append(where, "card_id IS NOT NULL")
	}
	if f.NonCardOnly {
		where = append(where, "card_id IS NULL")
	}
	if !f.CommitmentPeriod.IsZero() {
		where = append(where, "commitment_id IS NOT NULL")
		add("commitment_period = $%d", f.CommitmentPeriod.String())
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, created_at, id"

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, owner, id string, u ports.TransactionUpdate) (core.Transaction, error) {
	var updated core.Transaction
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		t, err := getTransaction(ctx, tx, owner, id, true)
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
		_, err = tx.Exec(ctx,
			`UPDATE transactions SET description = $1, amount_cents = $2, date = $3, amount_pending = $4
			 WHERE id = $5 AND owner_id = $6`,
			t.Description, t.Amount.Cents, t.Date.Time, t.AmountPending, id, owner)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = t
		return nil
	})
	return updated, err
}

func (s *Store) SetPaid(ctx context.Context, owner string, ids []string, paid bool) (int, error) {
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE transactions SET paid = $1 WHERE owner_id = $2 AND id = ANY($3)`,
		paid, owner, ids)
	if err != nil {
		return 0, fmt.Errorf("set paid: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) DeleteTransaction(ctx context.Context, owner, id string) (core.Transaction, error) {
	t, err := scanTransaction(s.db.Pool.QueryRow(ctx,
		`DELETE FROM transactions WHERE id = $1 AND owner_id = $2 RETURNING `+transactionColumns, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	return t, nil
}

const commitmentColumns = `id, owner_id, name, expected_day, variable, default_amount_cents, kind, created_at`

func scanCommitment(row pgx.Row) (core.Commitment, error) {
	var (
		c    core.Commitment
		kind string
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.ExpectedDay, &c.Variable, &c.DefaultAmount.Cents, &kind, &c.CreatedAt)
	c.Kind = core.Kind(kind)
	return c, err
}

func (s *Store) CreateCommitment(ctx context.Context, c core.Commitment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO commitments (id, owner_id, name, expected_day, variable, default_amount_cents, kind)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.OwnerID, strings.TrimSpace(c.Name), c.ExpectedDay, c.Variable, c.DefaultAmount.Cents, string(c.Kind))
	if err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	return nil
}

func (s *Store) UpdateCommitment(ctx context.Context, c core.Commitment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE commitments SET name = $1, expected_day = $2, variable = $3, default_amount_cents = $4, kind = $5
		 WHERE id = $6 AND owner_id = $7`,
		strings.TrimSpace(c.Name), c.ExpectedDay, c.Variable, c.DefaultAmount.Cents, string(c.Kind), c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update commitment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commitment %s: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteCommitment(ctx context.Context, owner, id string) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM commitments WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) GetCommitment(ctx context.Context, owner, id string) (core.Commitment, error) {
	c, err := scanCommitment(s.db.Pool.QueryRow(ctx,
		`SELECT `+commitmentColumns+` FROM commitments WHERE id = $1 AND owner_id = $2`, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Commitment{}, fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Commitment{}, fmt.Errorf("get commitment: %w", err)
	}
	return c, nil
}

func (s *Store) ListCommitments(ctx context.Context, owner string) ([]core.Commitment, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+commitmentColumns+` FROM commitments WHERE owner_id = $1 ORDER BY expected_day, name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	defer rows.Close()
	var out []core.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListCommitmentOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT DISTINCT owner_id FROM commitments ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("list commitment owners: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list commitment owners: %w", err)
	}
	return owners, nil
}

func (s *Store) UpsertSnapshot(ctx context.Context, snap ports.InvoiceSnapshot) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO invoice_snapshots
		 (owner_id, card_id, period, card_name, total_cents, outstanding_cents, status, tx_count, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (owner_id, card_id, period) DO UPDATE SET
		   card_name = EXCLUDED.card_name,
		   total_cents = EXCLUDED.total_cents,
		   outstanding_cents = EXCLUDED.outstanding_cents,
		   status = EXCLUDED.status,
		   tx_count = EXCLUDED.tx_count,
		   computed_at = EXCLUDED.computed_at`,
		snap.OwnerID, snap.CardID, snap.Period.String(), snap.CardName, snap.Total.Cents,
		snap.Outstanding.Cents, snap.Status, snap.Count, snap.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert invoice snapshot: %w", err)
	}
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context, owner string, p core.Period) ([]ports.InvoiceSnapshot, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT owner_id, card_id, card_name, total_cents, outstanding_cents, status, tx_count, computed_at
		 FROM invoice_snapshots WHERE owner_id = $1 AND period = $2 ORDER BY card_name`,
		owner, p.String())
	if err != nil {
		return nil, fmt.Errorf("list invoice snapshots: %w", err)
	}
	defer rows.Close()
	var out []ports.InvoiceSnapshot
	for rows.Next() {
		snap := ports.InvoiceSnapshot{Period: p}
		if err := rows.Scan(&snap.OwnerID, &snap.CardID, &snap.CardName, &snap.Total.Cents,
			&snap.Outstanding.Cents, &snap.Status, &snap.Count, &snap.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *Store) ResetOwner(ctx context.Context, owner string) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		for _, table := range []string{"invoice_snapshots", "transactions", "cards", "commitments"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE owner_id = $1`, owner); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

func commitmentPeriodLabel(t core.Transaction) string {
	if t.CommitmentPeriod.IsZero() {
		return ""
	}
	return t.CommitmentPeriod.String()
}
