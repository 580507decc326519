package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Card struct {
	ID         string
	OwnerID    string
	Name       string
	LimitCents int64
	ClosingDay int64
	DueDay     int64
	CreatedAt  string
}

type Transaction struct {
	ID            string
	OwnerID       string
	Description   string
	AmountCents   int64
	Kind          string
	Date          string
	Paid          bool
	CardID        sql.NullString
	CommitmentID  sql.NullString
	// CommitmentPeriod is stored as YYYY-MM.
	CommitmentPeriod sql.NullString
	AmountPending    bool
	CreatedAt        string
}

type Commitment struct {
	ID                 string
	OwnerID            string
	Name               string
	ExpectedDay        int64
	Variable           bool
	DefaultAmountCents int64
	Kind               string
	CreatedAt          string
}

type InvoiceSnapshot struct {
	OwnerID          string
	CardID           string
	Period           string
	CardName         string
	TotalCents       int64
	OutstandingCents int64
	Status           string
	TxCount          int64
	ComputedAt       string
}

const createCard = `INSERT INTO cards (id, owner_id, name, limit_cents, closing_day, due_day, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCard(ctx context.Context, arg Card) error {
	_, err := q.db.ExecContext(ctx, createCard,
		arg.ID, arg.OwnerID, arg.Name, arg.LimitCents, arg.ClosingDay, arg.DueDay, arg.CreatedAt)
	return err
}

const cardColumns = `id, owner_id, name, limit_cents, closing_day, due_day, created_at`

const getCard = `SELECT ` + cardColumns + ` FROM cards WHERE id = ? AND owner_id = ?`

func (q *Queries) GetCard(ctx context.Context, id, ownerID string) (Card, error) {
	row := q.db.QueryRowContext(ctx, getCard, id, ownerID)
	var i Card
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.LimitCents, &i.ClosingDay, &i.DueDay, &i.CreatedAt)
	return i, err
}

const cardOwner = `SELECT owner_id FROM cards WHERE id = ?`

func (q *Queries) CardOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := q.db.QueryRowContext(ctx, cardOwner, id).Scan(&owner)
	return owner, err
}

const listCards = `SELECT ` + cardColumns + ` FROM cards WHERE (?1 = '' OR owner_id = ?1) ORDER BY name, id`

func (q *Queries) ListCards(ctx context.Context, ownerID string) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx, listCards, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Card
	for rows.Next() {
		var i Card
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Name, &i.LimitCents, &i.ClosingDay, &i.DueDay, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createTransaction = `INSERT INTO transactions
    (id, owner_id, description, amount_cents, kind, date, paid, card_id, commitment_id, commitment_period, amount_pending, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.OwnerID, arg.Description, arg.AmountCents, arg.Kind, arg.Date,
		arg.Paid, arg.CardID, arg.CommitmentID, arg.CommitmentPeriod, arg.AmountPending, arg.CreatedAt)
	return err
}

const transactionColumns = `id, owner_id, description, amount_cents, kind, date, paid, card_id, commitment_id, commitment_period, amount_pending, created_at`

func scanTransaction(s interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := s.Scan(&i.ID, &i.OwnerID, &i.Description, &i.AmountCents, &i.Kind, &i.Date,
		&i.Paid, &i.CardID, &i.CommitmentID, &i.CommitmentPeriod, &i.AmountPending, &i.CreatedAt)
	return i, err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? AND owner_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, ownerID string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, ownerID))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE (?1 = '' OR owner_id = ?1)
  AND (?2 = '' OR date >= ?2)
  AND (?3 = '' OR date <= ?3)
  AND (?4 = '' OR card_id = ?4)
  AND (?5 = 0 OR card_id IS NOT NULL)
  AND (?6 = 0 OR card_id IS NULL)
  AND (?7 = '' OR (commitment_id IS NOT NULL AND commitment_period = ?7))
ORDER BY date, created_at, id`

type ListTransactionsParams struct {
	OwnerID          string
	FromDate         string
	ToDate           string
	CardID           string
	CardOnly         bool
	NonCardOnly      bool
	CommitmentPeriod string
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.OwnerID, arg.FromDate, arg.ToDate, arg.CardID, arg.CardOnly, arg.NonCardOnly, arg.CommitmentPeriod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateTransaction = `UPDATE transactions
SET description = ?, amount_cents = ?, date = ?, amount_pending = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Description, arg.AmountCents, arg.Date, arg.AmountPending, arg.ID, arg.OwnerID)
	return err
}

const setTransactionPaid = `UPDATE transactions SET paid = ? WHERE id = ? AND owner_id = ?`

func (q *Queries) SetTransactionPaid(ctx context.Context, paid bool, id, ownerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setTransactionPaid, paid, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id, ownerID)
	return err
}

const createCommitment = `INSERT INTO commitments
    (id, owner_id, name, expected_day, variable, default_amount_cents, kind, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCommitment(ctx context.Context, arg Commitment) error {
	_, err := q.db.ExecContext(ctx, createCommitment,
		arg.ID, arg.OwnerID, arg.Name, arg.ExpectedDay, arg.Variable, arg.DefaultAmountCents, arg.Kind, arg.CreatedAt)
	return err
}

const updateCommitment = `UPDATE commitments
SET name = ?, expected_day = ?, variable = ?, default_amount_cents = ?, kind = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateCommitment(ctx context.Context, arg Commitment) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCommitment,
		arg.Name, arg.ExpectedDay, arg.Variable, arg.DefaultAmountCents, arg.Kind, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCommitment = `DELETE FROM commitments WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteCommitment(ctx context.Context, id, ownerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCommitment, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const commitmentColumns = `id, owner_id, name, expected_day, variable, default_amount_cents, kind, created_at`

func scanCommitment(s interface{ Scan(...any) error }) (Commitment, error) {
	var i Commitment
	err := s.Scan(&i.ID, &i.OwnerID, &i.Name, &i.ExpectedDay, &i.Variable, &i.DefaultAmountCents, &i.Kind, &i.CreatedAt)
	return i, err
}

const getCommitment = `SELECT ` + commitmentColumns + ` FROM commitments WHERE id = ? AND owner_id = ?`

func (q *Queries) GetCommitment(ctx context.Context, id, ownerID string) (Commitment, error) {
	return scanCommitment(q.db.QueryRowContext(ctx, getCommitment, id, ownerID))
}

const listCommitments = `SELECT ` + commitmentColumns + ` FROM commitments WHERE owner_id = ? ORDER BY expected_day, name`

func (q *Queries) ListCommitments(ctx context.Context, ownerID string) ([]Commitment, error) {
	rows, err := q.db.QueryContext(ctx, listCommitments, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Commitment
	for rows.Next() {
		i, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCommitmentOwners = `SELECT DISTINCT owner_id FROM commitments ORDER BY owner_id`

func (q *Queries) ListCommitmentOwners(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCommitmentOwners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		items = append(items, owner)
	}
	return items, rows.Err()
}

const upsertSnapshot = `INSERT INTO invoice_snapshots
    (owner_id, card_id, period, card_name, total_cents, outstanding_cents, status, tx_count, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (owner_id, card_id, period) DO UPDATE SET
    card_name = excluded.card_name,
    total_cents = excluded.total_cents,
    outstanding_cents = excluded.outstanding_cents,
    status = excluded.status,
    tx_count = excluded.tx_count,
    computed_at = excluded.computed_at`

func (q *Queries) UpsertSnapshot(ctx context.Context, arg InvoiceSnapshot) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot,
		arg.OwnerID, arg.CardID, arg.Period, arg.CardName, arg.TotalCents,
		arg.OutstandingCents, arg.Status, arg.TxCount, arg.ComputedAt)
	return err
}

const listSnapshots = `SELECT owner_id, card_id, period, card_name, total_cents, outstanding_cents, status, tx_count, computed_at
FROM invoice_snapshots WHERE owner_id = ? AND period = ? ORDER BY card_name`

func (q *Queries) ListSnapshots(ctx context.Context, ownerID, period string) ([]InvoiceSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, ownerID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceSnapshot
	for rows.Next() {
		var i InvoiceSnapshot
		if err := rows.Scan(&i.OwnerID, &i.CardID, &i.Period, &i.CardName, &i.TotalCents,
			&i.OutstandingCents, &i.Status, &i.TxCount, &i.ComputedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// ResetOwner statements, in dependency order.
var resetOwner = []string{
	`DELETE FROM invoice_snapshots WHERE owner_id = ?`,
	`DELETE FROM transactions WHERE owner_id = ?`,
	`DELETE FROM cards WHERE owner_id = ?`,
	`DELETE FROM commitments WHERE owner_id = ?`,
}

func (q *Queries) ResetOwner(ctx context.Context, ownerID string) error {
	for _, stmt := range resetOwner {
		if _, err := q.db.ExecContext(ctx, stmt, ownerID); err != nil {
			return err
		}
	}
	return nil
}
