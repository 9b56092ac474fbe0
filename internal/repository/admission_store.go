package repository

import (
	"context"
	"database/sql"

	"github.com/artround/engagement-ledger/internal/model"
)

// FreeTicketStore bundles the exhibition and ticket repositories behind
// the one operation that must be atomic: issuing a free ticket. The
// capacity check and the insert run in a single transaction so the
// invariant still holds at commit time, which a plain check-then-insert
// cannot guarantee under concurrency.
type FreeTicketStore struct {
	db          *sql.DB
	exhibitions *ExhibitionRepo
	tickets     *TicketRepo
}

// NewFreeTicketStore returns a FreeTicketStore bound to the given database.
func NewFreeTicketStore(db *sql.DB) *FreeTicketStore {
	return &FreeTicketStore{
		db:          db,
		exhibitions: NewExhibitionRepo(db),
		tickets:     NewTicketRepo(db),
	}
}

// Exhibition looks up catalog data for the admission policy checks.
func (s *FreeTicketStore) Exhibition(ctx context.Context, id uint64) (*model.Exhibition, error) {
	return s.exhibitions.GetByID(ctx, id)
}

// HasFreeTicket reports whether the user already holds a free ticket for
// the exhibition.
func (s *FreeTicketStore) HasFreeTicket(ctx context.Context, userID, exhibitionID uint64) (bool, error) {
	return s.tickets.HasFreeTicket(ctx, userID, exhibitionID)
}

// IssueFree conditionally inserts the free ticket. It locks the
// exhibition row, recomputes the issued people count under that lock,
// rejects with ErrSoldOut when the insert would exceed the limit, and
// lets the free-marker unique key reject a duplicate per-user issue with
// ErrAlreadyIssued. On success the generated ID and created_at are
// populated on the ticket.
func (s *FreeTicketStore) IssueFree(ctx context.Context, t *model.Ticket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	ex, err := s.exhibitions.GetForUpdateTx(ctx, tx, t.ExhibitionID)
	if err != nil {
		return err
	}
	if ex.FreeTicketsLimited() {
		total, err := s.tickets.SumFreePeopleTx(ctx, tx, t.ExhibitionID)
		if err != nil {
			return err
		}
		if total+int64(t.PeopleCount) > *ex.FreeTicketLimit {
			return ErrSoldOut
		}
	}
	if err := s.tickets.CreateTx(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
