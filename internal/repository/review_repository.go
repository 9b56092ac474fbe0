package repository

import (
	"context"
	"database/sql"

	"github.com/artround/engagement-ledger/internal/model"
)

// ReviewRepo manages persistence for reviews. A review for a catalog
// exhibition is unique per (user_id, exhibition_id); that invariant is
// enforced by a unique key in the database, not just by the eligibility
// pre-check, so a race between two concurrent submissions cannot create
// two rows. Custom reviews store a NULL exhibition_id, and MySQL unique
// keys never treat two NULLs as equal, which exempts them from the rule
// without a second code path.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts a new review and populates the generated ID and
// created_at on the provided record. When the unique key on
// (user_id, exhibition_id) rejects the insert, ErrAlreadyReviewed is
// returned and nothing is written.
func (r *ReviewRepo) Create(ctx context.Context, rev *model.Review) error {
	const q = `INSERT INTO reviews (user_id, exhibition_id, rating, content, proof_image_url)
	           VALUES (?, ?, ?, ?, ?)`
	var exhibitionID interface{}
	if rev.ExhibitionID != nil {
		exhibitionID = *rev.ExhibitionID
	}
	result, err := r.db.ExecContext(ctx, q, rev.UserID, exhibitionID, rev.Rating, rev.Content, rev.ProofImageURL)
	if err != nil {
		if isDuplicateKey(err, "uniq_user_exhibition") {
			return ErrAlreadyReviewed
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rev.ID = uint64(id)
	// Query back the row to populate the DB-assigned timestamp.
	const sel = `SELECT created_at FROM reviews WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, rev.ID).Scan(&rev.CreatedAt)
}

// ExistsByUserAndExhibition reports whether the user already has a review
// for the given catalog exhibition. Used by the eligibility pre-check;
// the insert path re-enforces the invariant via the unique key.
func (r *ReviewRepo) ExistsByUserAndExhibition(ctx context.Context, userID, exhibitionID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = ? AND exhibition_id = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, userID, exhibitionID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByUser returns the user's reviews, newest first. Used by the admin
// moderation drill-down alongside the pending transaction groups.
func (r *ReviewRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Review, error) {
	const q = `SELECT id, user_id, exhibition_id, rating, content, proof_image_url, created_at
	           FROM reviews WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reviews := make([]model.Review, 0)
	for rows.Next() {
		var rev model.Review
		var exhibitionID sql.NullInt64
		if err := rows.Scan(&rev.ID, &rev.UserID, &exhibitionID, &rev.Rating, &rev.Content, &rev.ProofImageURL, &rev.CreatedAt); err != nil {
			return nil, err
		}
		if exhibitionID.Valid {
			eid := uint64(exhibitionID.Int64)
			rev.ExhibitionID = &eid
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}
