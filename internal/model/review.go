package model

import "time"

// Minimum content length accepted for a review, enforced at validation
// time before anything is written.
const ReviewMinContentLen = 10

// Review records a user's proof-backed review of an exhibition. A review
// for a catalog exhibition references it by ID; a "custom" review of an
// unregistered exhibition carries a nil ExhibitionID and is exempt from
// the one-review-per-exhibition rule. Reviews are written once by the
// submission flow and never updated.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – author of the review.
//  ExhibitionID  – reviewed exhibition; nil for custom reviews.
//  Rating        – star rating in [1,5].
//  Content       – review text, at least ReviewMinContentLen characters.
//  ProofImageURL – URL of the visit-proof image already uploaded to the
//                  blob store before submission.
//  CreatedAt     – creation timestamp.
type Review struct {
	ID            uint64    // reviews.id
	UserID        uint64    // reviews.user_id
	ExhibitionID  *uint64   // reviews.exhibition_id (nullable)
	Rating        uint8     // reviews.rating
	Content       string    // reviews.content
	ProofImageURL string    // reviews.proof_image_url
	CreatedAt     time.Time // reviews.created_at
}
