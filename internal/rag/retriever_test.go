package rag

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/internal/vectorstore"
)

func TestRetrievePrefetchFactor(t *testing.T) {
	index := &fakeIndex{}
	r := NewRetriever(index, &fakeEmbedder{vector: []float32{1, 0}}, NewReranker(2, 0.5))

	_, err := r.Retrieve(context.Background(), "q", RetrieveOptions{
		OwnerID: uuid.New(), DocumentID: uuid.New(), Limit: 5, MMR: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, index.lastOpt.Limit, "default factor over-fetches 4x")

	r = r.WithPrefetchFactor(2)
	_, err = r.Retrieve(context.Background(), "q", RetrieveOptions{
		OwnerID: uuid.New(), DocumentID: uuid.New(), Limit: 5, MMR: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, index.lastOpt.Limit)

	// An explicit Prefetch wins over the factor.
	_, err = r.Retrieve(context.Background(), "q", RetrieveOptions{
		OwnerID: uuid.New(), DocumentID: uuid.New(), Limit: 5, Prefetch: 7, MMR: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, index.lastOpt.Limit)
}

func TestRetrieveWithoutMMRUsesPlainLimit(t *testing.T) {
	index := &fakeIndex{results: []vectorstore.SearchResult{
		{ID: "a", Score: 0.9}, {ID: "b", Score: 0.8}, {ID: "c", Score: 0.7},
	}}
	r := NewRetriever(index, &fakeEmbedder{vector: []float32{1, 0}}, NewReranker(2, 0.5))

	results, err := r.Retrieve(context.Background(), "q", RetrieveOptions{
		OwnerID: uuid.New(), DocumentID: uuid.New(), Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, index.lastOpt.Limit)
	assert.False(t, index.lastOpt.WithVectors)
	assert.Len(t, results, 2)
}
