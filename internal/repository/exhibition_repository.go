// Package repository contains data access logic for the engagement
// ledger. This file covers read-only lookups against the exhibitions
// catalog. The catalog is owned by the content-admin tooling; this
// service only reads price, sale state and the free-ticket policy.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artround/engagement-ledger/internal/model"
)

// ExhibitionRepo provides read access to the exhibitions table.
type ExhibitionRepo struct {
	db *sql.DB
}

// NewExhibitionRepo returns a new ExhibitionRepo bound to the given database.
func NewExhibitionRepo(db *sql.DB) *ExhibitionRepo { return &ExhibitionRepo{db: db} }

const exhibitionColumns = `id, title, price, is_sale, free_ticket_limit, created_at`

func scanExhibition(row *sql.Row) (*model.Exhibition, error) {
	var ex model.Exhibition
	var limit sql.NullInt64
	err := row.Scan(&ex.ID, &ex.Title, &ex.Price, &ex.IsSale, &limit, &ex.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExhibitionNotFound
		}
		return nil, err
	}
	if limit.Valid {
		l := limit.Int64
		ex.FreeTicketLimit = &l
	}
	return &ex, nil
}

// GetByID retrieves an exhibition by its ID. It returns
// ErrExhibitionNotFound when no row exists.
func (r *ExhibitionRepo) GetByID(ctx context.Context, id uint64) (*model.Exhibition, error) {
	const q = `SELECT ` + exhibitionColumns + ` FROM exhibitions WHERE id = ?`
	return scanExhibition(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx retrieves an exhibition inside the given transaction and
// takes a row lock on it. The admission controller uses this lock to
// serialize the free-ticket capacity computation: holding it guarantees
// the issued-people sum it reads still holds when the ticket insert
// commits. Returns ErrExhibitionNotFound when no row exists.
func (r *ExhibitionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Exhibition, error) {
	const q = `SELECT ` + exhibitionColumns + ` FROM exhibitions WHERE id = ? FOR UPDATE`
	return scanExhibition(tx.QueryRowContext(ctx, q, id))
}
