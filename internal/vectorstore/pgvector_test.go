package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeClause(t *testing.T) {
	where, args, err := scopeClause(Filter{"owner_id": "o1"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "WHERE owner_id = $2", where)
	assert.Equal(t, []any{"o1"}, args)

	where, args, err = scopeClause(Filter{"owner_id": "o1", "document_id": "d1"}, 1)
	require.NoError(t, err)
	assert.Contains(t, where, " AND ")
	assert.Len(t, args, 2)

	where, args, err = scopeClause(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)

	_, _, err = scopeClause(Filter{"text": "x"}, 1)
	require.Error(t, err, "filters only apply to indexed payload columns")
}

func TestSearchSQL(t *testing.T) {
	sql, args, err := searchSQL(Filter{"owner_id": "o1"}, 5, false)
	require.NoError(t, err)
	assert.Contains(t, sql, "1 - (embedding <=> $1) AS score")
	assert.Contains(t, sql, "WHERE owner_id = $2")
	assert.Contains(t, sql, "ORDER BY embedding <=> $1 LIMIT 5")
	assert.NotContains(t, sql, ", embedding", "vectors only fetched on request")
	assert.Equal(t, []any{"o1"}, args)

	sql, _, err = searchSQL(nil, 3, true)
	require.NoError(t, err)
	assert.Contains(t, sql, ", embedding")
	assert.NotContains(t, sql, "WHERE")

	_, _, err = searchSQL(Filter{"score": "1"}, 5, false)
	require.Error(t, err)
}

func TestScrollSQL(t *testing.T) {
	sql, args, err := scrollSQL(Filter{"document_id": "d1"}, 100, 0)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE document_id = $1")
	assert.Contains(t, sql, "ORDER BY id LIMIT 100 OFFSET 0")
	assert.Equal(t, []any{"d1"}, args)

	sql, _, err = scrollSQL(nil, 50, 150)
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT 50 OFFSET 150")
}

func TestPgVectorUpsertLengthMismatch(t *testing.T) {
	idx := NewPgVectorIndex(nil)
	err := idx.Upsert(context.Background(),
		[][]float32{{1, 0}},
		[]ChunkPayload{{Text: "a"}, {Text: "b"}},
	)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestPgVectorEnsureCollectionRejectsBadDimension(t *testing.T) {
	idx := NewPgVectorIndex(nil)
	require.Error(t, idx.EnsureCollection(context.Background(), 0))
	require.Error(t, idx.EnsureCollection(context.Background(), -1))
}
