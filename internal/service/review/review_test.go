package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/artround/engagement-ledger/internal/model"
	"github.com/artround/engagement-ledger/internal/queue"
	"github.com/artround/engagement-ledger/internal/repository"
)

// memReviewStore reproduces the one-review-per-user-per-exhibition
// unique key in memory. Custom reviews (nil exhibition) are exempt, the
// same way NULLs never collide in the real unique key.
type memReviewStore struct {
	mu      sync.Mutex
	nextID  uint64
	reviews []model.Review
	taken   map[string]bool
}

func newMemReviewStore() *memReviewStore {
	return &memReviewStore{taken: make(map[string]bool)}
}

func pairKey(userID, exhibitionID uint64) string {
	return fmt.Sprintf("%d/%d", userID, exhibitionID)
}

func (s *memReviewStore) Create(ctx context.Context, rev *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rev.ExhibitionID != nil {
		key := pairKey(rev.UserID, *rev.ExhibitionID)
		if s.taken[key] {
			return repository.ErrAlreadyReviewed
		}
		s.taken[key] = true
	}
	s.nextID++
	rev.ID = s.nextID
	s.reviews = append(s.reviews, *rev)
	return nil
}

func (s *memReviewStore) ExistsByUserAndExhibition(ctx context.Context, userID, exhibitionID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taken[pairKey(userID, exhibitionID)], nil
}

// memGrants is a GrantOpener that records every call. A non-nil fail
// makes every open attempt error.
type memGrants struct {
	mu     sync.Mutex
	nextID uint64
	opened []uint64 // review IDs granted for
	fail   error
}

func (g *memGrants) OpenPendingGrant(ctx context.Context, userID uint64, refType string, refID uint64, amount int64) (*model.PointTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return nil, g.fail
	}
	g.nextID++
	g.opened = append(g.opened, refID)
	return &model.PointTransaction{
		ID:            g.nextID,
		UserID:        userID,
		Amount:        amount,
		ReferenceType: refType,
		ReferenceID:   refID,
		Status:        model.TxStatusPending,
	}, nil
}

// eventSink captures published events for assertions.
type eventSink struct {
	mu     sync.Mutex
	events []queue.EngagementEvent
}

func (s *eventSink) publish(ctx context.Context, ev queue.EngagementEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *eventSink) ofType(eventType string) []queue.EngagementEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []queue.EngagementEvent{}
	for _, ev := range s.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func exhibition(id uint64) *uint64 { return &id }

func validInput(userID uint64, exhibitionID *uint64) SubmitInput {
	return SubmitInput{
		UserID:        userID,
		ExhibitionID:  exhibitionID,
		Rating:        5,
		Content:       "Loved the immersive light room, worth the queue.",
		ProofImageURL: "https://cdn.example.com/proofs/abc.jpg",
	}
}

func TestSubmitReviewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SubmitInput)
		want   error
	}{
		{"rating too low", func(in *SubmitInput) { in.Rating = 0 }, ErrRatingOutOfRange},
		{"rating too high", func(in *SubmitInput) { in.Rating = 6 }, ErrRatingOutOfRange},
		{"content too short", func(in *SubmitInput) { in.Content = "nice" }, ErrContentTooShort},
		{"missing proof", func(in *SubmitInput) { in.ProofImageURL = "" }, ErrProofRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemReviewStore()
			svc := New(store, &memGrants{}, nil)
			in := validInput(1, exhibition(10))
			tc.mutate(&in)
			if _, err := svc.SubmitReview(context.Background(), in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(store.reviews) != 0 {
				t.Fatal("rejected submission must not be persisted")
			}
		})
	}
}

func TestSubmitReviewCountsRunes(t *testing.T) {
	store := newMemReviewStore()
	svc := New(store, &memGrants{}, nil)
	in := validInput(1, exhibition(10))
	in.Content = strings.Repeat("별", model.ReviewMinContentLen)
	if _, err := svc.SubmitReview(context.Background(), in); err != nil {
		t.Fatalf("multibyte content at the minimum length must pass: %v", err)
	}
}

func TestSubmitReviewOpensPendingGrant(t *testing.T) {
	store := newMemReviewStore()
	grants := &memGrants{}
	sink := &eventSink{}
	svc := New(store, grants, sink.publish)

	res, err := svc.SubmitReview(context.Background(), validInput(1, exhibition(10)))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Review == nil || res.Review.ID == 0 {
		t.Fatal("expected a persisted review")
	}
	if res.Grant == nil {
		t.Fatal("expected an opened grant")
	}
	if res.Grant.Amount != model.ReviewRewardPoints {
		t.Fatalf("expected grant of %d points, got %d", model.ReviewRewardPoints, res.Grant.Amount)
	}
	if res.Grant.Status != model.TxStatusPending {
		t.Fatalf("expected pending grant, got %q", res.Grant.Status)
	}
	if res.Grant.ReferenceID != res.Review.ID {
		t.Fatalf("grant must reference the review: %d vs %d", res.Grant.ReferenceID, res.Review.ID)
	}

	submitted := sink.ofType(queue.EventReviewSubmitted)
	if len(submitted) != 1 {
		t.Fatalf("expected one review.submitted event, got %d", len(submitted))
	}
	if submitted[0].TransactionID != res.Grant.ID {
		t.Fatalf("event must carry the grant id, got %d", submitted[0].TransactionID)
	}
}

func TestSubmitReviewDuplicateRejected(t *testing.T) {
	store := newMemReviewStore()
	svc := New(store, &memGrants{}, nil)
	ctx := context.Background()

	if _, err := svc.SubmitReview(ctx, validInput(1, exhibition(10))); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := svc.SubmitReview(ctx, validInput(1, exhibition(10))); !errors.Is(err, repository.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	// A different exhibition and a different user both remain allowed.
	if _, err := svc.SubmitReview(ctx, validInput(1, exhibition(11))); err != nil {
		t.Fatalf("other exhibition must be allowed: %v", err)
	}
	if _, err := svc.SubmitReview(ctx, validInput(2, exhibition(10))); err != nil {
		t.Fatalf("other user must be allowed: %v", err)
	}
}

func TestSubmitReviewConcurrentDuplicates(t *testing.T) {
	store := newMemReviewStore()
	grants := &memGrants{}
	svc := New(store, grants, nil)
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitReview(ctx, validInput(1, exhibition(10)))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, repository.ErrAlreadyReviewed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one submission to win, got %d", wins)
	}
	if len(store.reviews) != 1 {
		t.Fatalf("expected one stored review, got %d", len(store.reviews))
	}
	if len(grants.opened) != 1 {
		t.Fatalf("expected one opened grant, got %d", len(grants.opened))
	}
}

func TestSubmitCustomReviewUnlimited(t *testing.T) {
	store := newMemReviewStore()
	grants := &memGrants{}
	svc := New(store, grants, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitReview(ctx, validInput(1, nil)); err != nil {
			t.Fatalf("custom review %d failed: %v", i, err)
		}
	}
	if len(store.reviews) != 3 {
		t.Fatalf("expected 3 custom reviews, got %d", len(store.reviews))
	}
	if len(grants.opened) != 3 {
		t.Fatalf("each custom review earns a grant, got %d", len(grants.opened))
	}
}

func TestSubmitReviewSurvivesGrantFailure(t *testing.T) {
	store := newMemReviewStore()
	grants := &memGrants{fail: errors.New("ledger unavailable")}
	sink := &eventSink{}
	svc := New(store, grants, sink.publish)

	res, err := svc.SubmitReview(context.Background(), validInput(1, exhibition(10)))
	if err != nil {
		t.Fatalf("submit must succeed even when the grant open fails: %v", err)
	}
	if res.Grant != nil {
		t.Fatal("expected nil grant after open failure")
	}
	if len(store.reviews) != 1 {
		t.Fatal("the review must stand")
	}

	failed := sink.ofType(queue.EventGrantFailed)
	if len(failed) != 1 {
		t.Fatalf("expected one grant_failed event, got %d", len(failed))
	}
	if failed[0].ReviewID != res.Review.ID || failed[0].Amount != model.ReviewRewardPoints {
		t.Fatalf("reconciliation event incomplete: %+v", failed[0])
	}
}

func TestCanSubmitReview(t *testing.T) {
	store := newMemReviewStore()
	svc := New(store, &memGrants{}, nil)
	ctx := context.Background()

	elig, err := svc.CanSubmitReview(ctx, 1, nil)
	if err != nil || !elig.Allowed {
		t.Fatalf("custom reviews are always allowed: %+v, %v", elig, err)
	}

	elig, err = svc.CanSubmitReview(ctx, 1, exhibition(10))
	if err != nil || !elig.Allowed {
		t.Fatalf("fresh pair must be allowed: %+v, %v", elig, err)
	}

	if _, err := svc.SubmitReview(ctx, validInput(1, exhibition(10))); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	elig, err = svc.CanSubmitReview(ctx, 1, exhibition(10))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if elig.Allowed || elig.Reason != ReasonAlreadyReviewed {
		t.Fatalf("expected ALREADY_REVIEWED, got %+v", elig)
	}
}
