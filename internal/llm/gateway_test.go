package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyProvider struct {
	name      string
	failFirst int
	calls     int
}

func (p *flakyProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.calls++
	if p.calls <= p.failFirst {
		return nil, errors.New("upstream timeout")
	}
	return &ChatResponse{Provider: p.name, Content: "ok"}, nil
}

func (p *flakyProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	return &EmbeddingResponse{Provider: p.name}, nil
}

func (p *flakyProvider) Name() string { return p.name }

func TestGatewayRetriesTransientFailures(t *testing.T) {
	primary := &flakyProvider{name: "openai", failFirst: 1}
	g := &gateway{
		providers:       map[string]Provider{"openai": primary},
		defaultProvider: "openai",
		maxRetries:      2,
	}

	resp, err := g.Chat(context.Background(), ChatRequest{Model: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, primary.calls)
}

func TestGatewayFallsBackToSecondProvider(t *testing.T) {
	primary := &flakyProvider{name: "openai", failFirst: 100}
	fallback := &flakyProvider{name: "anthropic"}
	g := &gateway{
		providers:        map[string]Provider{"openai": primary, "anthropic": fallback},
		defaultProvider:  "openai",
		fallbackProvider: "anthropic",
	}

	resp, err := g.Chat(context.Background(), ChatRequest{Model: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, 1, primary.calls)
}

func TestGatewayUnknownProvider(t *testing.T) {
	g := &gateway{providers: map[string]Provider{}, defaultProvider: "openai"}

	_, err := g.Chat(context.Background(), ChatRequest{Model: "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
