package rag

import (
	"fmt"
	"strings"

	"github.com/docuchat/docuchat/internal/vectorstore"
)

// ContextBlock is a request-scoped packaging of one retrieved chunk.
// ContextID is 1-based in rank order and has no meaning outside the
// request that produced it.
type ContextBlock struct {
	ContextID int    `json:"context_id"`
	Filename  string `json:"filename"`
	Page      int    `json:"page"`
	Text      string `json:"text"`
}

// BuildContextBlocks numbers results from 1 in rank order. Chunk text
// is carried in full; truncation happens only when rendering final
// citations to the caller.
func BuildContextBlocks(results []vectorstore.SearchResult) []ContextBlock {
	blocks := make([]ContextBlock, len(results))
	for i, r := range results {
		blocks[i] = ContextBlock{
			ContextID: i + 1,
			Filename:  r.Payload.Filename,
			Page:      r.Payload.Page,
			Text:      r.Payload.Text,
		}
	}
	return blocks
}

func renderContextBlocks(blocks []ContextBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		fmt.Fprintf(&sb, "[Context %d] (%s, page %d)\n%s\n\n", b.ContextID, b.Filename, b.Page, b.Text)
	}
	return sb.String()
}
