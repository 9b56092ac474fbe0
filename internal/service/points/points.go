// Package points implements the point ledger: opening pending grants,
// the administrator approve/reject transitions, the derived balance
// view, and the moderation queue aggregation consumed by the admin
// dashboard.
package points

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/artround/engagement-ledger/internal/model"
	"github.com/artround/engagement-ledger/internal/repository"
)

// DefaultModerationWindow bounds how far back ListPending reaches when
// the caller does not override it. The window is a policy knob, not a
// correctness requirement: it keeps the queue from resurfacing ancient,
// likely-abandoned pending grants.
const DefaultModerationWindow = 48 * time.Hour

// ErrInvalidAmount rejects grant amounts of zero; the ledger records
// signed amounts but a zero-point transaction is always a caller bug.
var ErrInvalidAmount = errors.New("amount must be non-zero")

// TransactionStore is the persistence surface the ledger needs. It is
// satisfied by repository.PointTransactionRepo; tests substitute an
// in-memory fake that reproduces the same constraint semantics.
type TransactionStore interface {
	Create(ctx context.Context, t *model.PointTransaction) error
	GetByID(ctx context.Context, id uint64) (*model.PointTransaction, error)
	GetByReference(ctx context.Context, refType string, refID uint64) (*model.PointTransaction, error)
	Decide(ctx context.Context, id uint64, status string, adminID uint64, note string) (*model.PointTransaction, error)
	SumCompletedByUser(ctx context.Context, userID uint64) (int64, error)
	ListPendingSince(ctx context.Context, since time.Time) ([]repository.PendingGroup, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.PointTransaction, error)
}

// Service is the point ledger contract.
type Service interface {
	// OpenPendingGrant records a pending grant for a reference, or
	// returns the existing transaction when one was already recorded for
	// the same reference. Callers that retried after a timeout therefore
	// always converge on one row.
	OpenPendingGrant(ctx context.Context, userID uint64, refType string, refID uint64, amount int64) (*model.PointTransaction, error)
	// Approve transitions pending -> completed. Fails with
	// repository.ErrAlreadyDecided on a terminal transaction.
	Approve(ctx context.Context, txID, adminID uint64) (*model.PointTransaction, error)
	// Reject transitions pending -> rejected; no points reach the balance.
	Reject(ctx context.Context, txID, adminID uint64, note string) (*model.PointTransaction, error)
	// BalanceOf derives the user's balance from completed transactions.
	BalanceOf(ctx context.Context, userID uint64) (int64, error)
	// ListPending returns the moderation queue: pending grants inside the
	// trailing window, grouped per user. window <= 0 selects the default.
	ListPending(ctx context.Context, window time.Duration) ([]repository.PendingGroup, error)
	// HistoryOf returns a user's full transaction history, newest first.
	HistoryOf(ctx context.Context, userID uint64) ([]model.PointTransaction, error)
}

// Impl implements Service over a TransactionStore with an optional Redis
// balance cache.
type Impl struct {
	store  TransactionStore
	rdb    *redis.Client // nil disables caching
	window time.Duration
	now    func() time.Time
}

// New returns a ledger service. rdb may be nil, in which case BalanceOf
// always recomputes from the store. window <= 0 selects
// DefaultModerationWindow.
func New(store TransactionStore, rdb *redis.Client, window time.Duration) *Impl {
	if window <= 0 {
		window = DefaultModerationWindow
	}
	return &Impl{store: store, rdb: rdb, window: window, now: time.Now}
}

const balanceCacheTTL = 5 * time.Minute

func balanceKey(userID uint64) string {
	return fmt.Sprintf("points:balance:%d", userID)
}

func (s *Impl) OpenPendingGrant(ctx context.Context, userID uint64, refType string, refID uint64, amount int64) (*model.PointTransaction, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	t := &model.PointTransaction{
		UserID:        userID,
		Amount:        amount,
		ReferenceType: refType,
		ReferenceID:   refID,
	}
	err := s.store.Create(ctx, t)
	if err == nil {
		return t, nil
	}
	if errors.Is(err, repository.ErrDuplicateReference) {
		// Lost the race or a retried call: the reference already has its
		// transaction. Return it unchanged.
		return s.store.GetByReference(ctx, refType, refID)
	}
	return nil, err
}

func (s *Impl) Approve(ctx context.Context, txID, adminID uint64) (*model.PointTransaction, error) {
	return s.decide(ctx, txID, model.TxStatusCompleted, adminID, "")
}

func (s *Impl) Reject(ctx context.Context, txID, adminID uint64, note string) (*model.PointTransaction, error) {
	return s.decide(ctx, txID, model.TxStatusRejected, adminID, note)
}

func (s *Impl) decide(ctx context.Context, txID uint64, status string, adminID uint64, note string) (*model.PointTransaction, error) {
	t, err := s.store.Decide(ctx, txID, status, adminID, note)
	if err != nil {
		return nil, err
	}
	s.invalidateBalance(ctx, t.UserID)
	return t, nil
}

// invalidateBalance drops the cached balance after a decision. A cache
// that cannot be invalidated is only stale until its TTL expires; the
// store remains the source of truth either way.
func (s *Impl) invalidateBalance(ctx context.Context, userID uint64) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, balanceKey(userID)).Err(); err != nil {
		log.Printf("points: balance cache invalidation failed for user %d: %v", userID, err)
	}
}

func (s *Impl) BalanceOf(ctx context.Context, userID uint64) (int64, error) {
	if s.rdb != nil {
		if v, err := s.rdb.Get(ctx, balanceKey(userID)).Result(); err == nil {
			if n, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				return n, nil
			}
		}
	}
	sum, err := s.store.SumCompletedByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, balanceKey(userID), strconv.FormatInt(sum, 10), balanceCacheTTL).Err(); err != nil {
			log.Printf("points: balance cache write failed for user %d: %v", userID, err)
		}
	}
	return sum, nil
}

func (s *Impl) ListPending(ctx context.Context, window time.Duration) ([]repository.PendingGroup, error) {
	if window <= 0 {
		window = s.window
	}
	since := s.now().UTC().Add(-window)
	return s.store.ListPendingSince(ctx, since)
}

func (s *Impl) HistoryOf(ctx context.Context, userID uint64) ([]model.PointTransaction, error) {
	return s.store.ListByUser(ctx, userID)
}
