package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *QdrantIndex {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "chunks"})
}

func TestUpsertLengthMismatch(t *testing.T) {
	idx := NewQdrantIndex(QdrantConfig{URL: "http://unused", Collection: "chunks"})

	err := idx.Upsert(context.Background(),
		[][]float32{{1, 0}, {0, 1}},
		[]ChunkPayload{{Text: "only one"}},
	)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestSearchSendsScopeFilter(t *testing.T) {
	ownerID := uuid.New()
	docID := uuid.New()

	var got map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/chunks/points/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"result": []}`)
	})

	_, err := idx.Search(context.Background(), []float32{1, 0}, SearchOptions{
		Filter: Scope(ownerID, docID),
		Limit:  5,
	})
	require.NoError(t, err)

	filter, ok := got["filter"].(map[string]any)
	require.True(t, ok, "filter missing from request body")
	must, ok := filter["must"].([]any)
	require.True(t, ok)
	require.Len(t, must, 2)

	values := map[string]string{}
	for _, clause := range must {
		m := clause.(map[string]any)
		match := m["match"].(map[string]any)
		values[m["key"].(string)] = match["value"].(string)
	}
	assert.Equal(t, ownerID.String(), values["owner_id"])
	assert.Equal(t, docID.String(), values["document_id"])
}

func TestSearchResultsAndIdempotence(t *testing.T) {
	body := `{"result": [
		{"id": "p1", "score": 0.93, "payload": {"page": 2, "filename": "a.pdf", "text": "first"}, "vector": [0.1, 0.2]},
		{"id": "p2", "score": 0.71, "payload": {"page": 4, "filename": "a.pdf", "text": "second"}, "vector": null}
	]}`
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})

	first, err := idx.Search(context.Background(), []float32{1, 0}, SearchOptions{Limit: 2, WithVectors: true})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "p1", first[0].ID)
	assert.Equal(t, 0.93, first[0].Score)
	assert.Equal(t, []float32{0.1, 0.2}, first[0].Vector)
	assert.Nil(t, first[1].Vector, "null vector stays empty")

	second, err := idx.Search(context.Background(), []float32{1, 0}, SearchOptions{Limit: 2, WithVectors: true})
	require.NoError(t, err)
	assert.Equal(t, first, second, "same query yields the same ordered results")
}

func TestScrollFollowsCursor(t *testing.T) {
	pages := []string{
		`{"result": {"points": [{"payload": {"chunk_index": 0, "text": "a"}}, {"payload": {"chunk_index": 1, "text": "b"}}], "next_page_offset": "cursor-1"}}`,
		`{"result": {"points": [{"payload": {"chunk_index": 2, "text": "c"}}], "next_page_offset": null}}`,
	}
	var offsets []any
	call := 0
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		offsets = append(offsets, req["offset"])
		fmt.Fprint(w, pages[call])
		call++
	})

	payloads, err := idx.Scroll(context.Background(), Filter{"document_id": "d1"}, 2)
	require.NoError(t, err)
	require.Len(t, payloads, 3)
	assert.Equal(t, "a", payloads[0].Text)
	assert.Equal(t, "c", payloads[2].Text)

	require.Len(t, offsets, 2)
	assert.Nil(t, offsets[0], "first page has no offset")
	assert.Equal(t, "cursor-1", offsets[1], "second page carries the cursor back")
}

func TestDeleteByFilterRefusesEmptyFilter(t *testing.T) {
	idx := NewQdrantIndex(QdrantConfig{URL: "http://unused", Collection: "chunks"})

	err := idx.DeleteByFilter(context.Background(), nil)
	require.Error(t, err)

	err = idx.DeleteByFilter(context.Background(), Filter{})
	require.Error(t, err)
}

func TestTransportFailureWrapsUnavailable(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := idx.Search(context.Background(), []float32{1, 0}, SearchOptions{Limit: 1})
	require.ErrorIs(t, err, ErrUnavailable)

	down := NewQdrantIndex(QdrantConfig{URL: "http://127.0.0.1:1", Collection: "chunks"})
	err = down.EnsureCollection(context.Background(), 4)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestEnsureCollectionRejectsBadDimension(t *testing.T) {
	idx := NewQdrantIndex(QdrantConfig{URL: "http://unused", Collection: "chunks"})
	require.Error(t, idx.EnsureCollection(context.Background(), 0))
	require.Error(t, idx.EnsureCollection(context.Background(), -3))
}

func TestUpsertAssignsPointIDs(t *testing.T) {
	var got map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"result": {}}`)
	})

	err := idx.Upsert(context.Background(),
		[][]float32{{1, 0}, {0, 1}},
		[]ChunkPayload{{Text: "a"}, {Text: "b"}},
	)
	require.NoError(t, err)

	points := got["points"].([]any)
	require.Len(t, points, 2)
	seen := map[string]bool{}
	for _, p := range points {
		id := p.(map[string]any)["id"].(string)
		_, err := uuid.Parse(id)
		assert.NoError(t, err, "point id is a uuid")
		assert.False(t, seen[id], "point ids are unique")
		seen[id] = true
	}
}
