package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artround/engagement-ledger/internal/model"
)

// PointTransactionRepo manages persistence for the append-only point
// ledger. Rows are inserted as pending and mutated exactly once by a
// moderation decision; the unique key on (reference_type, reference_id)
// guarantees at most one transaction per rewarded record, and the
// decision UPDATE is guarded by status = 'pending' so terminal states
// are immutable at the storage layer.
type PointTransactionRepo struct {
	db *sql.DB
}

// NewPointTransactionRepo returns a new PointTransactionRepo bound to the
// given database.
func NewPointTransactionRepo(db *sql.DB) *PointTransactionRepo {
	return &PointTransactionRepo{db: db}
}

const txColumns = `id, user_id, amount, reference_type, reference_id, status, created_at, decided_at, decided_by, decided_note`

func scanTransaction(scan func(dest ...interface{}) error) (*model.PointTransaction, error) {
	var t model.PointTransaction
	var decidedAt sql.NullTime
	var decidedBy sql.NullInt64
	var decidedNote sql.NullString
	err := scan(&t.ID, &t.UserID, &t.Amount, &t.ReferenceType, &t.ReferenceID,
		&t.Status, &t.CreatedAt, &decidedAt, &decidedBy, &decidedNote)
	if err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		at := decidedAt.Time
		t.DecidedAt = &at
	}
	if decidedBy.Valid {
		by := uint64(decidedBy.Int64)
		t.DecidedBy = &by
	}
	if decidedNote.Valid {
		note := decidedNote.String
		t.DecidedNote = &note
	}
	return &t, nil
}

// Create inserts a new pending transaction and populates the generated ID
// and created_at on the provided record. When the unique reference key
// rejects the insert, ErrDuplicateReference is returned; callers then
// fetch the existing row via GetByReference, which is what makes grant
// opening idempotent under retried submissions.
func (r *PointTransactionRepo) Create(ctx context.Context, t *model.PointTransaction) error {
	const q = `INSERT INTO point_transactions (user_id, amount, reference_type, reference_id, status)
	           VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, t.UserID, t.Amount, t.ReferenceType, t.ReferenceID, model.TxStatusPending)
	if err != nil {
		if isDuplicateKey(err, "uniq_reference") {
			return ErrDuplicateReference
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.TxStatusPending
	const sel = `SELECT created_at FROM point_transactions WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, t.ID).Scan(&t.CreatedAt)
}

// GetByID retrieves a transaction by its ID. It returns
// ErrTransactionNotFound when no row exists.
func (r *PointTransactionRepo) GetByID(ctx context.Context, id uint64) (*model.PointTransaction, error) {
	const q = `SELECT ` + txColumns + ` FROM point_transactions WHERE id = ?`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByReference retrieves the single transaction recorded for a
// reference. It returns ErrTransactionNotFound when none exists.
func (r *PointTransactionRepo) GetByReference(ctx context.Context, refType string, refID uint64) (*model.PointTransaction, error) {
	const q = `SELECT ` + txColumns + ` FROM point_transactions WHERE reference_type = ? AND reference_id = ?`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, q, refType, refID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// Decide transitions a pending transaction to the given terminal status
// in a single conditional UPDATE. The status = 'pending' guard makes the
// transition race-safe: of two concurrent decisions, exactly one
// matches. When no row was updated the transaction either does not exist
// (ErrTransactionNotFound) or was already decided (ErrAlreadyDecided);
// the follow-up SELECT tells the two apart.
func (r *PointTransactionRepo) Decide(ctx context.Context, id uint64, status string, adminID uint64, note string) (*model.PointTransaction, error) {
	const q = `UPDATE point_transactions
	           SET status = ?, decided_at = UTC_TIMESTAMP(), decided_by = ?, decided_note = ?
	           WHERE id = ? AND status = ?`
	var noteArg interface{}
	if note != "" {
		noteArg = note
	}
	result, err := r.db.ExecContext(ctx, q, status, adminID, noteArg, id, model.TxStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err // ErrTransactionNotFound or storage failure
		}
		return nil, ErrAlreadyDecided
	}
	return r.GetByID(ctx, id)
}

// SumCompletedByUser computes the user's derived point balance: the sum
// of amounts over completed transactions, from a single query so the
// result reflects one read-consistency snapshot.
func (r *PointTransactionRepo) SumCompletedByUser(ctx context.Context, userID uint64) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount), 0) FROM point_transactions
	           WHERE user_id = ? AND status = ?`
	var sum int64
	if err := r.db.QueryRowContext(ctx, q, userID, model.TxStatusCompleted).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// PendingItem is a single pending grant surfaced to the moderation queue.
type PendingItem struct {
	TransactionID uint64    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   uint64    `json:"reference_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// PendingGroup aggregates a user's outstanding pending grants for the
// moderation dashboard.
type PendingGroup struct {
	UserID      uint64        `json:"user_id"`
	Count       int           `json:"count"`
	TotalAmount int64         `json:"total_amount"`
	Items       []PendingItem `json:"items"`
}

// ListPendingSince returns every pending transaction created at or after
// the given instant, grouped by user. References that already carry a
// decided transaction are excluded; the one-transaction-per-reference
// key makes that exclusion a safety net rather than a frequent filter,
// but it keeps a previously resolved reference from ever resurfacing.
// The query is read-only and safe to run concurrently with Decide; a row
// decided mid-listing may still appear, and acting on it simply yields
// ErrAlreadyDecided.
func (r *PointTransactionRepo) ListPendingSince(ctx context.Context, since time.Time) ([]PendingGroup, error) {
	const q = `SELECT t.user_id, t.id, t.amount, t.reference_type, t.reference_id, t.created_at
	           FROM point_transactions t
	           WHERE t.status = ?
	             AND t.created_at >= ?
	             AND NOT EXISTS (
	               SELECT 1 FROM point_transactions d
	               WHERE d.reference_type = t.reference_type
	                 AND d.reference_id = t.reference_id
	                 AND d.id <> t.id
	                 AND d.status IN (?, ?)
	             )
	           ORDER BY t.user_id, t.created_at`
	rows, err := r.db.QueryContext(ctx, q,
		model.TxStatusPending, since.UTC().Format("2006-01-02 15:04:05"),
		model.TxStatusCompleted, model.TxStatusRejected,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	groups := make([]PendingGroup, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var userID uint64
		var item PendingItem
		if err := rows.Scan(&userID, &item.TransactionID, &item.Amount, &item.ReferenceType, &item.ReferenceID, &item.CreatedAt); err != nil {
			return nil, err
		}
		idx, ok := index[userID]
		if !ok {
			idx = len(groups)
			index[userID] = idx
			groups = append(groups, PendingGroup{UserID: userID, Items: []PendingItem{}})
		}
		groups[idx].Count++
		groups[idx].TotalAmount += item.Amount
		groups[idx].Items = append(groups[idx].Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListByUser returns all of a user's transactions, newest first.
func (r *PointTransactionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.PointTransaction, error) {
	const q = `SELECT ` + txColumns + ` FROM point_transactions WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txs := make([]model.PointTransaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}
