// Package review implements review submission: eligibility checking,
// validation, the review insert, and opening the pending point grant
// that rewards it.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/artround/engagement-ledger/internal/model"
	"github.com/artround/engagement-ledger/internal/queue"
	"github.com/artround/engagement-ledger/internal/repository"
)

// Validation failures. These are rejected before anything is written and
// are never retried automatically.
var (
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	ErrContentTooShort  = fmt.Errorf("content must be at least %d characters", model.ReviewMinContentLen)
	ErrProofRequired    = errors.New("proof image url is required")
)

// Reason codes returned by the eligibility check.
const (
	ReasonAlreadyReviewed = "ALREADY_REVIEWED"
)

// Store is the review persistence surface, satisfied by
// repository.ReviewRepo.
type Store interface {
	Create(ctx context.Context, rev *model.Review) error
	ExistsByUserAndExhibition(ctx context.Context, userID, exhibitionID uint64) (bool, error)
}

// GrantOpener opens the pending point grant that rewards a review. It is
// satisfied by the points service.
type GrantOpener interface {
	OpenPendingGrant(ctx context.Context, userID uint64, refType string, refID uint64, amount int64) (*model.PointTransaction, error)
}

// Eligibility is the result of the pre-submission check.
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// SubmitInput carries a review submission. A nil ExhibitionID marks a
// custom review of an unregistered exhibition.
type SubmitInput struct {
	UserID        uint64
	ExhibitionID  *uint64
	Rating        uint8
	Content       string
	ProofImageURL string
}

// SubmitResult is a successful submission. Grant is nil when the review
// was persisted but the grant could not be opened; that gap has already
// been logged and published for reconciliation, and the review stands.
type SubmitResult struct {
	Review *model.Review
	Grant  *model.PointTransaction
}

// Service is the review store contract.
type Service interface {
	// CanSubmitReview reports whether the user may submit a review for
	// the exhibition. A nil exhibitionID (custom review) is always
	// allowed. The answer is advisory: the insert path re-enforces the
	// invariant at the storage layer.
	CanSubmitReview(ctx context.Context, userID uint64, exhibitionID *uint64) (Eligibility, error)
	// SubmitReview validates, persists the review, then opens the
	// pending point grant referencing it.
	SubmitReview(ctx context.Context, in SubmitInput) (*SubmitResult, error)
}

// Impl implements Service.
type Impl struct {
	store   Store
	grants  GrantOpener
	publish func(ctx context.Context, ev queue.EngagementEvent) error // nil disables events
}

// New returns a review service. publish may be nil to disable event
// emission (tests).
func New(store Store, grants GrantOpener, publish func(ctx context.Context, ev queue.EngagementEvent) error) *Impl {
	return &Impl{store: store, grants: grants, publish: publish}
}

func (s *Impl) CanSubmitReview(ctx context.Context, userID uint64, exhibitionID *uint64) (Eligibility, error) {
	if exhibitionID == nil {
		return Eligibility{Allowed: true}, nil
	}
	exists, err := s.store.ExistsByUserAndExhibition(ctx, userID, *exhibitionID)
	if err != nil {
		return Eligibility{}, err
	}
	if exists {
		return Eligibility{Allowed: false, Reason: ReasonAlreadyReviewed}, nil
	}
	return Eligibility{Allowed: true}, nil
}

func validate(in SubmitInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return ErrRatingOutOfRange
	}
	if len([]rune(in.Content)) < model.ReviewMinContentLen {
		return ErrContentTooShort
	}
	if in.ProofImageURL == "" {
		return ErrProofRequired
	}
	return nil
}

func (s *Impl) SubmitReview(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	// Advisory pre-check so the common duplicate case fails before the
	// insert. The unique key still decides the race.
	if elig, err := s.CanSubmitReview(ctx, in.UserID, in.ExhibitionID); err != nil {
		return nil, err
	} else if !elig.Allowed {
		return nil, repository.ErrAlreadyReviewed
	}

	rev := &model.Review{
		UserID:        in.UserID,
		ExhibitionID:  in.ExhibitionID,
		Rating:        in.Rating,
		Content:       in.Content,
		ProofImageURL: in.ProofImageURL,
	}
	if err := s.store.Create(ctx, rev); err != nil {
		return nil, err
	}

	grant, err := s.grants.OpenPendingGrant(ctx, in.UserID, model.RefExhibitionReview, rev.ID, model.ReviewRewardPoints)
	if err != nil {
		// The review is already visible to the user; rolling it back now
		// would be worse than the repairable gap. Record the gap so the
		// reconciliation tooling can open the grant later.
		log.Printf("review: grant open failed for review %d (user %d): %v", rev.ID, in.UserID, err)
		s.emit(ctx, queue.EngagementEvent{
			Type:     queue.EventGrantFailed,
			UserID:   in.UserID,
			ReviewID: rev.ID,
			Amount:   model.ReviewRewardPoints,
			Detail:   err.Error(),
		})
		return &SubmitResult{Review: rev}, nil
	}

	s.emit(ctx, queue.EngagementEvent{
		Type:          queue.EventReviewSubmitted,
		UserID:        in.UserID,
		ReviewID:      rev.ID,
		TransactionID: grant.ID,
		Amount:        grant.Amount,
		Status:        grant.Status,
	})
	return &SubmitResult{Review: rev, Grant: grant}, nil
}

func (s *Impl) emit(ctx context.Context, ev queue.EngagementEvent) {
	if s.publish == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	_ = s.publish(ctx, ev) // publisher logs its own failures
}
