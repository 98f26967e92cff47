package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/internal/vectorstore"
)

func TestRerankMMRSize(t *testing.T) {
	query := []float32{1, 0}
	vectors := [][]float32{
		{1, 0},
		{0, 1},
		{0.7, 0.7},
		{0.5, 0.5},
	}

	assert.Len(t, RerankMMR(query, vectors, 2, 0.5), 2)
	assert.Len(t, RerankMMR(query, vectors, 4, 0.5), 4)
	assert.Len(t, RerankMMR(query, vectors, 10, 0.5), 4, "k beyond n trims to n")
	assert.Nil(t, RerankMMR(query, nil, 3, 0.5))
	assert.Nil(t, RerankMMR(query, vectors, 0, 0.5))
}

func TestRerankMMRFirstPickIsMostSimilar(t *testing.T) {
	query := []float32{1, 0}
	vectors := [][]float32{
		{0, 1},     // orthogonal
		{0.6, 0.8}, // partial
		{2, 0},     // parallel, large magnitude; normalization makes it the top pick
		{-1, 0},    // opposite
	}

	picked := RerankMMR(query, vectors, 3, 0.5)
	require.NotEmpty(t, picked)
	assert.Equal(t, 2, picked[0])
}

func TestRerankMMRLambdaOneIsPureRelevance(t *testing.T) {
	query := []float32{1, 0, 0}
	// Similarity order: 0 > 1 > 2 > 3.
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0.5, 0.5, 0},
		{0, 1, 0},
	}

	picked := RerankMMR(query, vectors, 4, 1.0)
	assert.Equal(t, []int{0, 1, 2, 3}, picked)
}

func TestRerankMMRLambdaZeroIsPureDiversity(t *testing.T) {
	query := []float32{1, 0}
	// Candidate 0 is closest to the query, candidate 2 is orthogonal to it.
	vectors := [][]float32{
		{1, 0},
		{0.99, 0.01},
		{0, 1},
	}

	picked := RerankMMR(query, vectors, 2, 0.0)
	require.Len(t, picked, 2)
	assert.Equal(t, 0, picked[0], "first pick is still the most relevant")
	assert.Equal(t, 2, picked[1], "second pick minimizes similarity to the first")
}

func TestRerankMMRTieBreaksToLowestIndex(t *testing.T) {
	query := []float32{1, 0}
	vectors := [][]float32{
		{1, 0},
		{1, 0},
		{1, 0},
	}

	picked := RerankMMR(query, vectors, 3, 0.5)
	assert.Equal(t, []int{0, 1, 2}, picked)
}

func TestRerankMMRZeroVector(t *testing.T) {
	query := []float32{1, 0}
	vectors := [][]float32{
		{0, 0}, // zero norm must not panic or produce NaN
		{1, 0},
	}

	picked := RerankMMR(query, vectors, 2, 0.5)
	require.Len(t, picked, 2)
	assert.Equal(t, 1, picked[0])
}

func TestRerankerFewerThanTwoCandidates(t *testing.T) {
	r := NewReranker(2, 0.5)
	ctx := context.Background()

	results := []vectorstore.SearchResult{
		{ID: "a", Score: 0.9},
	}

	out, err := r.Rerank(ctx, []float32{1, 0}, results, 5)
	require.NoError(t, err)
	assert.Equal(t, results, out, "a single candidate is returned as-is")

	out, err = r.Rerank(ctx, []float32{1, 0}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRerankerSkipsCandidatesWithoutVectors(t *testing.T) {
	r := NewReranker(2, 0.5)

	results := []vectorstore.SearchResult{
		{ID: "a", Score: 0.9, Vector: []float32{1, 0}},
		{ID: "b", Score: 0.8},
		{ID: "c", Score: 0.7, Vector: []float32{0, 1}},
	}

	out, err := r.Rerank(context.Background(), []float32{1, 0}, results, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

func TestRerankerTrimsWhenVectorsMissing(t *testing.T) {
	r := NewReranker(2, 0.5)

	// Only one usable vector: fall back to similarity order, trimmed.
	results := []vectorstore.SearchResult{
		{ID: "a", Score: 0.9, Vector: []float32{1, 0}},
		{ID: "b", Score: 0.8},
		{ID: "c", Score: 0.7},
	}

	out, err := r.Rerank(context.Background(), []float32{1, 0}, results, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}
