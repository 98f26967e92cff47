package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/document"
	"github.com/docuchat/docuchat/internal/llm"
)

// Sentinel answers for expected empty outcomes. These are successful
// responses, never errors: a question against a missing document or an
// empty index must not surface as a request failure.
const (
	noDocumentsAnswer = "No documents found for your account. Please upload a document first."
	noResultsAnswer   = "I couldn't find relevant information in this document to answer your question."
)

const answerSystemPrompt = `You are a document assistant. Answer the user's question using ONLY the numbered context blocks provided.

Rules:
- Respond with ONLY a valid JSON object: {"answer": "<your answer>", "citations": [{"context_id": <n>}]}
- Cite context blocks by their context_id number. Never cite by filename or page.
- Never invent a context_id that does not appear in the provided blocks.
- Include at most 2 citations, choosing the blocks that most directly support the answer.
- If the context does not contain the answer, say so in the answer field and cite nothing.`

// DocumentGetter is the read-only slice of the metadata store the
// pipeline needs.
type DocumentGetter interface {
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*document.Document, error)
}

type Pipeline struct {
	docs      DocumentGetter
	retriever *Retriever
	gateway   llm.Gateway
	resolver  *Resolver
	model     string
	topK      int
}

type PipelineOptions struct {
	Model      string
	TopK       int
	MaxSources int
}

func NewPipeline(docs DocumentGetter, retriever *Retriever, gw llm.Gateway, opts PipelineOptions) *Pipeline {
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		docs:      docs,
		retriever: retriever,
		gateway:   gw,
		resolver:  NewResolver(opts.MaxSources),
		model:     opts.Model,
		topK:      topK,
	}
}

type QueryRequest struct {
	Question   string
	OwnerID    uuid.UUID
	DocumentID uuid.UUID
}

type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Model   string   `json:"model,omitempty"`
	Tokens  int      `json:"tokens,omitempty"`
}

type answerPayload struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Query runs the full answer path: ownership check, embed, scoped MMR
// search, context assembly, generation, citation resolution.
func (p *Pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	doc, err := p.docs.GetOwned(ctx, req.DocumentID, req.OwnerID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return &QueryResponse{Answer: noDocumentsAnswer, Sources: []Source{}}, nil
		}
		return nil, fmt.Errorf("check document: %w", err)
	}

	results, err := p.retriever.Retrieve(ctx, req.Question, RetrieveOptions{
		OwnerID:    req.OwnerID,
		DocumentID: req.DocumentID,
		Limit:      p.topK,
		MMR:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		return &QueryResponse{Answer: noResultsAnswer, Sources: []Source{}}, nil
	}

	blocks := BuildContextBlocks(results)

	resp, err := p.gateway.Chat(ctx, llm.ChatRequest{
		Model: p.model,
		Messages: []llm.Message{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Context blocks:\n%s\nQuestion: %s", renderContextBlocks(blocks), req.Question)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	var payload answerPayload
	if err := llm.DecodeJSON(resp.Content, &payload); err != nil {
		// A malformed response still carries an answer worth returning.
		slog.Warn("model output not parseable, returning without citations",
			"document_id", req.DocumentID, "error", err)
		payload = answerPayload{Answer: resp.Content}
	}

	slog.Debug("answered question",
		"document_id", req.DocumentID,
		"filename", doc.Filename,
		"citations", len(payload.Citations),
	)

	return &QueryResponse{
		Answer:  payload.Answer,
		Sources: p.resolver.Resolve(payload.Citations, blocks, results),
		Model:   resp.Model,
		Tokens:  resp.TotalTokens,
	}, nil
}
