package rag

import (
	"math"

	"github.com/docuchat/docuchat/internal/vectorstore"
)

// Citation is a model-emitted reference to a context block.
type Citation struct {
	ContextID int `json:"context_id"`
}

// Source is a resolved citation as returned to the caller.
type Source struct {
	Document  string  `json:"document"`
	Page      int     `json:"page"`
	Excerpt   string  `json:"excerpt"`
	Relevance float64 `json:"relevance"`
	ContextID int     `json:"context_id"`
}

const excerptMaxLen = 200

// Resolver maps model citations back to source chunks.
type Resolver struct {
	maxSources int
}

func NewResolver(maxSources int) *Resolver {
	if maxSources <= 0 {
		maxSources = 3
	}
	return &Resolver{maxSources: maxSources}
}

// normalizeContextID coerces non-positive ids to 1. Models occasionally
// emit 0 (or negatives) for "no citation"; mapping that to the top block
// is deliberate and user-visible, so it lives here as a named step.
func normalizeContextID(id int) int {
	if id <= 0 {
		return 1
	}
	return id
}

// Resolve validates citations against the request's block set, drops
// unresolvable ids, deduplicates by page in first-seen order, and caps
// the output at the configured maximum.
func (r *Resolver) Resolve(citations []Citation, blocks []ContextBlock, results []vectorstore.SearchResult) []Source {
	sources := make([]Source, 0, r.maxSources)
	seenPages := make(map[int]bool)

	for _, c := range citations {
		id := normalizeContextID(c.ContextID)
		if id > len(blocks) {
			continue
		}
		block := blocks[id-1]

		if seenPages[block.Page] {
			continue
		}
		seenPages[block.Page] = true

		var score float64
		if id <= len(results) {
			score = results[id-1].Score
		}

		sources = append(sources, Source{
			Document:  block.Filename,
			Page:      block.Page,
			Excerpt:   truncate(block.Text, excerptMaxLen),
			Relevance: round2(score),
			ContextID: block.ContextID,
		})

		if len(sources) >= r.maxSources {
			break
		}
	}

	return sources
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
