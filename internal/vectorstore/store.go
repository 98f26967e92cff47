package vectorstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrLengthMismatch is returned by Upsert when the vector and payload
// slices have different lengths.
var ErrLengthMismatch = errors.New("vectors and payloads must have same length")

// ErrUnavailable wraps transport-level failures talking to the index.
// Retry policy belongs to callers, not this client.
var ErrUnavailable = errors.New("vector index unavailable")

// ChunkPayload is the denormalized non-vector portion of an indexed chunk.
// ChunkIndex is strictly increasing per document and establishes reading order.
type ChunkPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ChunkIndex int       `json:"chunk_index"`
	Page       int       `json:"page"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
}

// SearchResult is one scored hit. Vector is populated only when the
// search requested vectors (needed for MMR re-ranking).
type SearchResult struct {
	ID      string       `json:"id"`
	Score   float64      `json:"score"`
	Payload ChunkPayload `json:"payload"`
	Vector  []float32    `json:"vector,omitempty"`
}

// Filter is a conjunction of equality predicates on payload fields.
// The index has no OR/NOT capability.
type Filter map[string]string

// Scope builds the owner/document filter every retrieval must apply.
func Scope(ownerID, documentID uuid.UUID) Filter {
	return Filter{
		"owner_id":    ownerID.String(),
		"document_id": documentID.String(),
	}
}

type SearchOptions struct {
	Filter      Filter
	Limit       int
	WithVectors bool
}

// Index is a thin, stateless client for a remote similarity-search service.
//
// Search returns results ordered by descending similarity. Scroll enumerates
// every point matching the filter; the store's internal ordering is
// unspecified, so callers needing reading order sort by ChunkIndex.
type Index interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, vectors [][]float32, payloads []ChunkPayload) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	Scroll(ctx context.Context, filter Filter, pageSize int) ([]ChunkPayload, error)
	DeleteByFilter(ctx context.Context, filter Filter) error
}
