// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let higher layers such as services
// and handlers branch on the specific failure without inspecting driver
// error codes themselves. Every uniqueness invariant in the schema is
// surfaced here as its own sentinel so that a lost race is reported as
// the same condition a stale pre-check would have reported.
package repository

import "errors"

// ErrExhibitionNotFound indicates the referenced exhibition does not
// exist in the catalog.
var ErrExhibitionNotFound = errors.New("exhibition not found")

// ErrAlreadyReviewed is returned when inserting a review for a
// (user, exhibition) pair that already has one. The unique key on
// reviews(user_id, exhibition_id) raises this even when two submissions
// race past the eligibility pre-check; handlers translate it to the
// ALREADY_REVIEWED reason code.
var ErrAlreadyReviewed = errors.New("already reviewed")

// ErrDuplicateReference is returned when opening a point transaction for
// a (reference_type, reference_id) pair that already has one. Callers
// treat this as "fetch the existing row" rather than a failure, which is
// what makes grant opening idempotent under retries.
var ErrDuplicateReference = errors.New("duplicate transaction reference")

// ErrTransactionNotFound indicates no point transaction exists with the
// requested ID.
var ErrTransactionNotFound = errors.New("point transaction not found")

// ErrAlreadyDecided is returned when approving or rejecting a point
// transaction that has already reached a terminal state. The decision is
// never silently repeated; the admin UI refreshes instead.
var ErrAlreadyDecided = errors.New("transaction already decided")

// ErrAlreadyIssued is returned when inserting a free ticket for a
// (user, exhibition) pair that already holds one. Enforced by the
// free-marker unique key, so it also catches the race between two
// concurrent requests from the same user.
var ErrAlreadyIssued = errors.New("free ticket already issued")

// ErrSoldOut is returned when a free-ticket insert would push the
// exhibition's issued people count past its free_ticket_limit. The count
// is recomputed under a row lock at commit time, so this holds even at
// the capacity boundary under concurrency.
var ErrSoldOut = errors.New("free tickets sold out")

// ErrDuplicateOrder is returned when the caller-supplied order ID
// collides with an existing ticket.
var ErrDuplicateOrder = errors.New("duplicate order id")
