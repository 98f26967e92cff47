package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// QdrantIndex is a minimal REST client to Qdrant. Collections use cosine
// distance; point payloads carry the denormalized chunk fields.
type QdrantIndex struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantIndex{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	// PUT is idempotent: Qdrant answers 200 for an existing collection
	// with the same schema.
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", q.collection), body, nil)
}

func (q *QdrantIndex) Upsert(ctx context.Context, vectors [][]float32, payloads []ChunkPayload) error {
	if len(vectors) != len(payloads) {
		return fmt.Errorf("%w: %d vectors, %d payloads", ErrLengthMismatch, len(vectors), len(payloads))
	}
	points := make([]map[string]any, len(vectors))
	for i := range vectors {
		points[i] = map[string]any{
			"id":      uuid.NewString(),
			"vector":  vectors[i],
			"payload": payloads[i],
		}
	}
	body := map[string]any{"points": points}
	return q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", q.collection), body, nil)
}

func (q *QdrantIndex) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  opts.WithVectors,
		"params":       map[string]any{"hnsw_ef": 128, "exact": false},
	}
	if f := qdrantFilter(opts.Filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []struct {
			ID      string          `json:"id"`
			Score   float64         `json:"score"`
			Payload ChunkPayload    `json:"payload"`
			Vector  json.RawMessage `json:"vector"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", q.collection), req, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		sr := SearchResult{ID: r.ID, Score: r.Score, Payload: r.Payload}
		if len(r.Vector) > 0 && string(r.Vector) != "null" {
			var vec []float32
			if err := json.Unmarshal(r.Vector, &vec); err == nil {
				sr.Vector = vec
			}
		}
		results = append(results, sr)
	}
	return results, nil
}

func (q *QdrantIndex) Scroll(ctx context.Context, filter Filter, pageSize int) ([]ChunkPayload, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var payloads []ChunkPayload
	var offset json.RawMessage

	// Cursor pages are inherently sequential: each request needs the
	// previous response's next_page_offset.
	for {
		req := map[string]any{
			"limit":        pageSize,
			"with_payload": true,
		}
		if f := qdrantFilter(filter); f != nil {
			req["filter"] = f
		}
		if offset != nil {
			req["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					Payload ChunkPayload `json:"payload"`
				} `json:"points"`
				NextPageOffset json.RawMessage `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := q.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", q.collection), req, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Result.Points {
			payloads = append(payloads, p.Payload)
		}

		if len(resp.Result.NextPageOffset) == 0 || string(resp.Result.NextPageOffset) == "null" {
			return payloads, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func (q *QdrantIndex) DeleteByFilter(ctx context.Context, filter Filter) error {
	f := qdrantFilter(filter)
	if f == nil {
		return fmt.Errorf("refusing to delete without a filter")
	}
	body := map[string]any{"filter": f}
	return q.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection), body, nil)
}

func qdrantFilter(f Filter) map[string]any {
	if len(f) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(f))
	for k, v := range f {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": v},
		})
	}
	return map[string]any{"must": must}
}

func (q *QdrantIndex) do(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: %s", ErrUnavailable, method, path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
