package model

import "time"

// Transaction lifecycle states. A transaction opens as pending and is
// moved exactly once to completed or rejected by an administrator
// decision; both are terminal.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusRejected  = "rejected"
)

// Reference types recorded on point transactions. Only exhibition reviews
// earn points today; the column is an enum so new reward sources can be
// added without a schema change to the ledger itself.
const RefExhibitionReview = "exhibition_review"

// Points granted for a submitted exhibition review, pending moderation.
const ReviewRewardPoints int64 = 500

// PointTransaction is one row of the append-only point ledger. Grants are
// positive amounts; deductions (future reference types) are negative. At
// most one transaction exists per (ReferenceType, ReferenceID), which is
// what makes grant opening idempotent under retries.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user the points belong to.
//  Amount        – signed point amount; reward grants are positive.
//  ReferenceType – what the transaction rewards (exhibition_review, ...).
//  ReferenceID   – ID of the referenced record (the review ID).
//  Status        – pending, completed or rejected; terminal once decided.
//  CreatedAt     – when the grant was opened.
//  DecidedAt     – when an administrator decided it; nil while pending.
//  DecidedBy     – administrator who decided it; nil while pending.
//  DecidedNote   – optional note recorded on rejection.
type PointTransaction struct {
	ID            uint64     // point_transactions.id
	UserID        uint64     // point_transactions.user_id
	Amount        int64      // point_transactions.amount
	ReferenceType string     // point_transactions.reference_type
	ReferenceID   uint64     // point_transactions.reference_id
	Status        string     // point_transactions.status
	CreatedAt     time.Time  // point_transactions.created_at
	DecidedAt     *time.Time // point_transactions.decided_at (nullable)
	DecidedBy     *uint64    // point_transactions.decided_by (nullable)
	DecidedNote   *string    // point_transactions.decided_note (nullable)
}

// Decided reports whether the transaction has reached a terminal state.
func (t *PointTransaction) Decided() bool {
	return t.Status == TxStatusCompleted || t.Status == TxStatusRejected
}
