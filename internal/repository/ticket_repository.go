package repository

import (
	"context"
	"database/sql"

	"github.com/artround/engagement-ledger/internal/model"
)

// TicketRepo manages persistence for tickets. Free-ticket invariants are
// enforced at the storage layer: the table carries a generated
// free_marker column (1 when amount = 0, NULL otherwise) with a unique
// key on (user_id, exhibition_id, free_marker), so a user can never hold
// two free tickets for the same exhibition no matter how requests
// interleave, while paid rows (NULL marker) stay exempt. Capacity is
// checked inside the issuing transaction under the exhibition row lock
// taken by ExhibitionRepo.GetForUpdateTx.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories, as the admission
// controller does when issuing a free ticket.
func (r *TicketRepo) DB() *sql.DB { return r.db }

// HasFreeTicket reports whether the user already holds a free ticket for
// the exhibition. This is the fast pre-check; the unique key re-enforces
// the invariant when the insert actually runs.
func (r *TicketRepo) HasFreeTicket(ctx context.Context, userID, exhibitionID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM tickets WHERE user_id = ? AND exhibition_id = ? AND amount = 0)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, userID, exhibitionID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// SumFreePeopleTx computes the total people count admitted on free
// tickets for an exhibition, inside the caller's transaction. Callers
// must hold the exhibition row lock before relying on the result for a
// capacity decision, otherwise the sum may be stale by commit time.
func (r *TicketRepo) SumFreePeopleTx(ctx context.Context, tx *sql.Tx, exhibitionID uint64) (int64, error) {
	const q = `SELECT COALESCE(SUM(people_count), 0) FROM tickets
	           WHERE exhibition_id = ? AND amount = 0`
	var total int64
	if err := tx.QueryRowContext(ctx, q, exhibitionID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CreateTx inserts a ticket within the provided transaction and
// populates the generated ID and created_at on the record. Unique-key
// violations are mapped to their invariant: the free-marker key to
// ErrAlreadyIssued, the order_id key to ErrDuplicateOrder. The caller
// must commit or roll back the transaction.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	const q = `INSERT INTO tickets (user_id, exhibition_id, people_count, amount, order_id, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, t.UserID, t.ExhibitionID, t.PeopleCount, t.Amount, t.OrderID, t.Status)
	if err != nil {
		if isDuplicateKey(err, "uniq_free_ticket") {
			return ErrAlreadyIssued
		}
		if isDuplicateKey(err, "order_id") {
			return ErrDuplicateOrder
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	const sel = `SELECT created_at FROM tickets WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, t.ID).Scan(&t.CreatedAt)
}

// ListByUser returns the user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	const q = `SELECT id, user_id, exhibition_id, people_count, amount, order_id, status, created_at
	           FROM tickets WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.ExhibitionID, &t.PeopleCount, &t.Amount, &t.OrderID, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}
