// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on the engagement.events queue.
const (
	EventReviewSubmitted = "review.submitted"
	// EventGrantFailed marks a review that was persisted without its
	// pending point grant. It is the reconciliation hook for the accepted
	// inconsistency window between the review insert and the grant open.
	EventGrantFailed   = "review.grant_failed"
	EventPointsDecided = "points.decided"
	EventTicketIssued  = "ticket.issued"
)

// EngagementEvent is the envelope published for every engagement-ledger
// event. It carries enough information for downstream consumers to log,
// audit, or reconcile without querying the primary database. Fields not
// relevant to a given event type are left zero and omitted from JSON.
type EngagementEvent struct {
	Type          string `json:"type"`
	UserID        uint64 `json:"user_id"`
	ReviewID      uint64 `json:"review_id,omitempty"`
	TransactionID uint64 `json:"transaction_id,omitempty"`
	TicketID      uint64 `json:"ticket_id,omitempty"`
	ExhibitionID  uint64 `json:"exhibition_id,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Status        string `json:"status,omitempty"`
	Detail        string `json:"detail,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
