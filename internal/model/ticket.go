package model

import "time"

// Ticket statuses. Free tickets are issued directly by the admission
// controller; paid tickets are created by the payment gateway callback
// (outside this service) and pass through PENDING first.
const (
	TicketStatusIssued  = "ISSUED"
	TicketStatusPending = "PENDING"
)

// Ticket is an admission record for an exhibition. Free tickets carry
// Amount 0 and are subject to per-user uniqueness and the exhibition's
// free-ticket capacity; paid tickets carry the amount actually charged
// and bypass both checks.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – holder of the ticket.
//  ExhibitionID – exhibition the ticket admits to.
//  PeopleCount  – number of people admitted on this ticket (>= 1).
//  Amount       – amount paid in KRW; 0 marks a free ticket.
//  OrderID      – caller-supplied globally unique order identifier.
//  Status       – lifecycle state of the ticket.
//  CreatedAt    – creation timestamp.
type Ticket struct {
	ID           uint64    // tickets.id
	UserID       uint64    // tickets.user_id
	ExhibitionID uint64    // tickets.exhibition_id
	PeopleCount  uint32    // tickets.people_count
	Amount       int64     // tickets.amount
	OrderID      string    // tickets.order_id (unique)
	Status       string    // tickets.status
	CreatedAt    time.Time // tickets.created_at
}

// Free reports whether this is a free-admission ticket, the only kind the
// admission controller issues.
func (t *Ticket) Free() bool { return t.Amount == 0 }
