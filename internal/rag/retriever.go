package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/vectorstore"
)

// Embedder turns query text into a vector matching the index dimension.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	index          vectorstore.Index
	embedder       Embedder
	reranker       *Reranker
	prefetchFactor int
}

func NewRetriever(index vectorstore.Index, embedder Embedder, reranker *Reranker) *Retriever {
	return &Retriever{index: index, embedder: embedder, reranker: reranker, prefetchFactor: 4}
}

// WithPrefetchFactor overrides the over-fetch multiplier applied when
// MMR follows a search.
func (r *Retriever) WithPrefetchFactor(factor int) *Retriever {
	if factor > 0 {
		r.prefetchFactor = factor
	}
	return r
}

type RetrieveOptions struct {
	OwnerID    uuid.UUID
	DocumentID uuid.UUID
	Limit      int
	Prefetch   int  // candidate pool for MMR; defaults to Limit times the prefetch factor
	MMR        bool // diversify with MMR re-ranking
}

// Retrieve embeds the query and runs a scoped similarity search. When
// MMR is on, the search over-fetches with vectors so the reranker can
// compute pairwise similarity, then trims back to Limit.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]vectorstore.SearchResult, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	effective := limit
	if opts.MMR {
		effective = opts.Prefetch
		if effective <= 0 {
			effective = limit * r.prefetchFactor
		}
	}

	results, err := r.index.Search(ctx, vec, vectorstore.SearchOptions{
		Filter:      vectorstore.Scope(opts.OwnerID, opts.DocumentID),
		Limit:       effective,
		WithVectors: opts.MMR,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if !opts.MMR {
		return trim(results, limit), nil
	}
	return r.reranker.Rerank(ctx, vec, results, limit)
}
