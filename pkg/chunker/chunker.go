package chunker

import (
	"strings"
	"unicode/utf8"
)

type ChunkOptions struct {
	ChunkSize    int    // target chunk size in characters
	ChunkOverlap int    // overlap between chunks, fixed strategy only
	Strategy     string // "fixed" or "recursive"
}

// TextChunk carries its page of origin and a document-wide index.
// Indexes are strictly increasing across pages, establishing reading
// order for the whole document.
type TextChunk struct {
	Content string
	Index   int
	Page    int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Strategy:     "recursive",
	}
}

// Page is one unit of paginated input text.
type Page struct {
	Number  int
	Content string
}

// ChunkPages chunks each page independently so no chunk straddles a
// page boundary, numbering chunks continuously across the document.
func ChunkPages(pages []Page, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}

	var chunks []TextChunk
	index := 0
	for _, page := range pages {
		for _, content := range split(page.Content, opts) {
			chunks = append(chunks, TextChunk{
				Content: content,
				Index:   index,
				Page:    page.Number,
			})
			index++
		}
	}
	return chunks
}

// Chunk handles unpaginated text as a single page.
func Chunk(text string, opts ChunkOptions) []TextChunk {
	return ChunkPages([]Page{{Number: 1, Content: text}}, opts)
}

func split(text string, opts ChunkOptions) []string {
	switch opts.Strategy {
	case "fixed":
		return splitFixed(text, opts.ChunkSize, opts.ChunkOverlap)
	default:
		return splitRecursive(text, []string{"\n\n", "\n", ". ", " "}, opts.ChunkSize)
	}
}

func splitFixed(text string, size, overlap int) []string {
	var parts []string
	runes := []rune(text)

	step := size - overlap
	if step <= 0 {
		step = size
	}

	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			parts = append(parts, part)
		}
		if end == len(runes) {
			break
		}
	}
	return parts
}

// splitRecursive splits on progressively finer separators until every
// piece fits the target size, packing adjacent pieces back together.
func splitRecursive(text string, separators []string, chunkSize int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	if len(separators) == 0 {
		return splitFixed(text, chunkSize, 0)
	}

	sep := separators[0]
	parts := strings.Split(text, sep)

	var result []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		for _, piece := range splitRecursive(current.String(), separators[1:], chunkSize) {
			result = append(result, piece)
		}
		current.Reset()
	}

	for _, part := range parts {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+sep+part) > chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(part)
	}
	flush()

	return result
}
