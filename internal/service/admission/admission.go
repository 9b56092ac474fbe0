// Package admission implements free-ticket issuance: the policy checks
// (free, on sale), per-user duplicate prevention, and the capacity cap
// per exhibition. The decisive checks run inside the store's conditional
// commit, so they hold under concurrent requests.
package admission

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/artround/engagement-ledger/internal/model"
	"github.com/artround/engagement-ledger/internal/repository"
)

// Policy rejections. Terminal for the request, not bugs.
var (
	ErrNotFree            = errors.New("exhibition is not free or not on sale")
	ErrInvalidPeopleCount = errors.New("people count must be at least 1")
)

// Store is the persistence surface for admission control, satisfied by
// repository.FreeTicketStore. IssueFree must be atomic: the capacity
// recheck and the insert commit together or not at all.
type Store interface {
	Exhibition(ctx context.Context, id uint64) (*model.Exhibition, error)
	HasFreeTicket(ctx context.Context, userID, exhibitionID uint64) (bool, error)
	IssueFree(ctx context.Context, t *model.Ticket) error
}

// Service is the ticket admission contract.
type Service interface {
	// IssueFreeTicket issues a free ticket for the user, or fails with
	// ErrNotFree, repository.ErrAlreadyIssued, repository.ErrSoldOut or
	// a storage error. peopleCount 0 defaults to 1.
	IssueFreeTicket(ctx context.Context, userID, exhibitionID uint64, peopleCount uint32) (*model.Ticket, error)
}

// Impl implements Service.
type Impl struct {
	store Store
	// newOrderID generates the unique order identifier for each ticket.
	// Overridable in tests; defaults to a UUID.
	newOrderID func() string
}

// New returns an admission service over the given store.
func New(store Store) *Impl {
	return &Impl{store: store, newOrderID: uuid.NewString}
}

func (s *Impl) IssueFreeTicket(ctx context.Context, userID, exhibitionID uint64, peopleCount uint32) (*model.Ticket, error) {
	if peopleCount == 0 {
		peopleCount = 1
	}
	ex, err := s.store.Exhibition(ctx, exhibitionID)
	if err != nil {
		return nil, err
	}
	if ex.Price != 0 || !ex.IsSale {
		return nil, ErrNotFree
	}
	// Fast-fail the common duplicate case. This check alone would be a
	// TOCTOU hole; the unique key inside IssueFree is what actually
	// decides a race.
	if issued, err := s.store.HasFreeTicket(ctx, userID, exhibitionID); err != nil {
		return nil, err
	} else if issued {
		return nil, repository.ErrAlreadyIssued
	}

	t := &model.Ticket{
		UserID:       userID,
		ExhibitionID: exhibitionID,
		PeopleCount:  peopleCount,
		Amount:       0,
		OrderID:      s.newOrderID(),
		Status:       model.TicketStatusIssued,
	}
	if err := s.store.IssueFree(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
