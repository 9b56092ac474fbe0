package model

import "time"

// Exhibition is read-only reference data owned by the content-admin
// tooling. This service looks up pricing and free-ticket policy by ID and
// never writes to the table.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – display name of the exhibition.
//  Price           – admission price in KRW; 0 marks a free exhibition.
//  IsSale          – whether tickets are currently on sale.
//  FreeTicketLimit – cap on the total people admitted on free tickets.
//                    nil or a non-positive value means unlimited.
//  CreatedAt       – row creation timestamp.
type Exhibition struct {
	ID              uint64    // exhibitions.id
	Title           string    // exhibitions.title
	Price           int64     // exhibitions.price (KRW, may be 0)
	IsSale          bool      // exhibitions.is_sale
	FreeTicketLimit *int64    // exhibitions.free_ticket_limit (nullable)
	CreatedAt       time.Time // exhibitions.created_at
}

// FreeTicketsLimited reports whether the exhibition enforces a free-ticket
// cap. A nil or non-positive limit means issuance is unbounded.
func (e *Exhibition) FreeTicketsLimited() bool {
	return e.FreeTicketLimit != nil && *e.FreeTicketLimit > 0
}
