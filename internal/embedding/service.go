package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/docuchat/docuchat/internal/llm"
)

// Cache is an optional store for query embeddings. Satisfied by
// the redis-backed cache; nil disables caching.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service produces embeddings through the LLM gateway. When dimension
// is set, every returned vector is checked against the index's
// configured size so a model/collection mismatch fails loudly.
type Service struct {
	gateway   llm.Gateway
	model     string
	dimension int
	cache     Cache
}

func NewService(gw llm.Gateway, model string, dimension int) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Service{gateway: gw, model: model, dimension: dimension}
}

// WithCache enables query-embedding caching.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Batch in groups of 100 for API limits
	const batchSize = 100
	var all [][]float32

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
			Model: s.model,
			Input: texts[i:end],
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, err)
		}

		for _, vec := range resp.Embeddings {
			if s.dimension > 0 && len(vec) != s.dimension {
				return nil, fmt.Errorf("embedding dimension %d does not match index dimension %d", len(vec), s.dimension)
			}
		}

		all = append(all, resp.Embeddings...)
	}

	return all, nil
}

// EmbedQuery embeds a single query string, consulting the cache first.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := ""
	if s.cache != nil {
		key = s.cacheKey(text)
		var cached []float32
		if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, vecs[0], 6*time.Hour)
	}
	return vecs[0], nil
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}
