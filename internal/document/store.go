package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound means no document matched the (id, owner) scope. Callers
// in the answer path treat this as a non-fatal "no documents" condition.
var ErrNotFound = errors.New("document not found")

// Document is the metadata row the surrounding system maintains.
// This package only ever reads it.
type Document struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Filename      string
	ExtractedText string
	PageCount     int
	CreatedAt     time.Time
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetOwned fetches a document scoped to its owner. An unowned or
// missing document is indistinguishable to the caller, which prevents
// probing for other tenants' document ids.
func (s *Store) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*Document, error) {
	var doc Document
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, filename, COALESCE(extracted_text, ''), COALESCE(page_count, 0), created_at
		 FROM documents WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.ExtractedText, &doc.PageCount, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}
