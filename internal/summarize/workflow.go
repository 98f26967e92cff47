package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/llm"
	"github.com/docuchat/docuchat/internal/rag"
	"github.com/docuchat/docuchat/internal/vectorstore"
)

// semanticQuery is the fixed retrieval query for documents without a
// usable table of contents.
const semanticQuery = "main ideas of entire document"

type Options struct {
	Model          string
	PrefixChunks   int // leading chunks shown to the TOC classifier
	PrefixMaxChars int
	RetrievalLimit int
	ScrollPageSize int
	SectionLimit   int // chunks retrieved per selected TOC section
}

func (o *Options) withDefaults() {
	if o.PrefixChunks <= 0 {
		o.PrefixChunks = 5
	}
	if o.PrefixMaxChars <= 0 {
		o.PrefixMaxChars = 6000
	}
	if o.RetrievalLimit <= 0 {
		o.RetrievalLimit = 5
	}
	if o.ScrollPageSize <= 0 {
		o.ScrollPageSize = 100
	}
	if o.SectionLimit <= 0 {
		o.SectionLimit = 2
	}
}

// Summary is the workflow's final product.
type Summary struct {
	Content        string        `json:"content"`
	KeyPoints      []string      `json:"key_points"`
	WordCount      int           `json:"word_count"`
	Confidence     float64       `json:"confidence"`
	Strategy       string        `json:"strategy"` // "toc" or "semantic"
	SourcePages    []int         `json:"source_pages"`
	ProcessingTime time.Duration `json:"-"`
}

// Workflow runs the per-document summarization state machine.
type Workflow struct {
	index      vectorstore.Index
	retriever  *rag.Retriever
	gateway    llm.Gateway
	structured *llm.StructuredClient
	opts       Options
}

func New(index vectorstore.Index, retriever *rag.Retriever, gw llm.Gateway, opts Options) *Workflow {
	opts.withDefaults()
	return &Workflow{
		index:      index,
		retriever:  retriever,
		gateway:    gw,
		structured: llm.NewStructuredClient(gw, opts.Model),
		opts:       opts,
	}
}

// Run drives the machine from start to end, then extracts key points
// and derives the summary metrics.
func (w *Workflow) Run(ctx context.Context, ownerID, documentID uuid.UUID) (*Summary, error) {
	start := time.Now()

	ws := &WorkflowState{OwnerID: ownerID, DocumentID: documentID}
	state := StateStart

	for state != StateEnd {
		if err := ws.validateFor(state); err != nil {
			return nil, fmt.Errorf("stage %s: %w", state, err)
		}

		event, err := w.step(ctx, state, ws)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", state, err)
		}

		next, err := Transition(state, event)
		if err != nil {
			return nil, err
		}
		slog.Debug("workflow transition",
			"document_id", documentID, "from", state, "event", event, "to", next)
		state = next
	}

	keyPoints, err := w.extractKeyPoints(ctx, ws.UnifiedSummary)
	if err != nil {
		return nil, fmt.Errorf("key points: %w", err)
	}

	strategy := "semantic"
	if ws.HasTOC {
		strategy = "toc"
	}

	return &Summary{
		Content:        ws.UnifiedSummary,
		KeyPoints:      keyPoints,
		WordCount:      len(strings.Fields(ws.UnifiedSummary)),
		Confidence:     confidenceFor(len(ws.RetrievedChunks)),
		Strategy:       strategy,
		SourcePages:    dedupeSorted(ws.SourcePages),
		ProcessingTime: time.Since(start),
	}, nil
}

func (w *Workflow) step(ctx context.Context, s State, ws *WorkflowState) (Event, error) {
	switch s {
	case StateStart:
		return EventBegin, nil
	case StateOrchestrator:
		return w.orchestrate(ctx, ws)
	case StateTOCAgent:
		return w.selectSections(ctx, ws)
	case StateSemanticRetrieval:
		return w.retrieveSemantic(ctx, ws)
	case StateSummarizer:
		return w.compose(ctx, ws)
	}
	return 0, fmt.Errorf("no stage for state %s", s)
}

// orchestrate classifies the document opening: fetch the first chunks
// in reading order via scroll, then ask the model whether they contain
// a table of contents.
func (w *Workflow) orchestrate(ctx context.Context, ws *WorkflowState) (Event, error) {
	payloads, err := w.index.Scroll(ctx, vectorstore.Scope(ws.OwnerID, ws.DocumentID), w.opts.ScrollPageSize)
	if err != nil {
		return 0, fmt.Errorf("scroll chunks: %w", err)
	}
	if len(payloads) == 0 {
		return 0, fmt.Errorf("document has no indexed chunks")
	}

	// The store's scroll order is unspecified; reading order comes
	// from the chunk index.
	sort.Slice(payloads, func(i, j int) bool {
		return payloads[i].ChunkIndex < payloads[j].ChunkIndex
	})
	if len(payloads) > w.opts.PrefixChunks {
		payloads = payloads[:w.opts.PrefixChunks]
	}

	var sb strings.Builder
	for _, p := range payloads {
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
	}
	ws.RawText = boundPrefix(sb.String(), w.opts.PrefixMaxChars)

	var out struct {
		HasTOC      bool     `json:"has_toc"`
		TOCSections []string `json:"toc_sections"`
	}
	err = w.structured.Generate(ctx,
		fmt.Sprintf("Here is the opening of a document:\n\n%s\n\nDoes it contain a table of contents? If yes, list the section titles.", ws.RawText),
		[]llm.SchemaField{
			{Name: "has_toc", Type: "boolean", Description: "whether the opening contains a table of contents", Required: true},
			{Name: "toc_sections", Type: "array", Description: "section titles, empty if has_toc is false", Required: true},
		},
		&out,
	)
	if err != nil {
		return 0, err
	}

	ws.HasTOC = out.HasTOC && len(out.TOCSections) > 0
	ws.TOCSections = out.TOCSections

	if ws.HasTOC {
		return EventTOCFound, nil
	}
	return EventTOCMissing, nil
}

// selectSections asks the model for the most summary-worthy section
// titles, then retrieves the text of each selected section. Feeding
// bare titles to the summarizer would starve it of content, so every
// title is resolved to its chunks via a scoped search.
func (w *Workflow) selectSections(ctx context.Context, ws *WorkflowState) (Event, error) {
	var out struct {
		SelectedSections []string `json:"selected_sections"`
	}
	err := w.structured.Generate(ctx,
		fmt.Sprintf("From this table of contents, pick the sections that best capture the substance of the document (introductions, core chapters, conclusions; skip front matter like acknowledgements):\n\n- %s",
			strings.Join(ws.TOCSections, "\n- ")),
		[]llm.SchemaField{
			{Name: "selected_sections", Type: "array", Description: "the chosen section titles, in document order", Required: true},
		},
		&out,
	)
	if err != nil {
		return 0, err
	}

	selected := out.SelectedSections
	if len(selected) == 0 {
		selected = ws.TOCSections
	}
	if len(selected) > w.opts.RetrievalLimit {
		selected = selected[:w.opts.RetrievalLimit]
	}

	for _, title := range selected {
		results, err := w.retriever.Retrieve(ctx, title, rag.RetrieveOptions{
			OwnerID:    ws.OwnerID,
			DocumentID: ws.DocumentID,
			Limit:      w.opts.SectionLimit,
		})
		if err != nil {
			return 0, fmt.Errorf("retrieve section %q: %w", title, err)
		}
		for _, r := range results {
			ws.RetrievedChunks = append(ws.RetrievedChunks, r.Payload.Text)
			ws.SourcePages = append(ws.SourcePages, r.Payload.Page)
		}
	}

	// Index lag or a sparse document can leave sections unresolved;
	// the titles themselves are a last-resort signal.
	if len(ws.RetrievedChunks) == 0 {
		ws.RetrievedChunks = selected
	}

	return EventContentReady, nil
}

// retrieveSemantic runs the generic MMR-backed retrieval path.
func (w *Workflow) retrieveSemantic(ctx context.Context, ws *WorkflowState) (Event, error) {
	results, err := w.retriever.Retrieve(ctx, semanticQuery, rag.RetrieveOptions{
		OwnerID:    ws.OwnerID,
		DocumentID: ws.DocumentID,
		Limit:      w.opts.RetrievalLimit,
		MMR:        true,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic retrieval: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("no retrievable content")
	}

	for _, r := range results {
		ws.RetrievedChunks = append(ws.RetrievedChunks, r.Payload.Text)
		ws.SourcePages = append(ws.SourcePages, r.Payload.Page)
	}
	return EventContentReady, nil
}

// compose joins the retrieved content and asks for the unified
// multi-part summary.
func (w *Workflow) compose(ctx context.Context, ws *WorkflowState) (Event, error) {
	resp, err := w.gateway.Chat(ctx, llm.ChatRequest{
		Model: w.opts.Model,
		Messages: []llm.Message{
			{
				Role: "system",
				Content: `Write a unified summary of the provided document excerpts with four parts:
main themes, key arguments, important details, and conclusions.
Use plain prose under clear headings. Do not invent content that is not in the excerpts.`,
			},
			{Role: "user", Content: strings.Join(ws.RetrievedChunks, "\n\n---\n\n")},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return 0, fmt.Errorf("compose summary: %w", err)
	}

	ws.UnifiedSummary = strings.TrimSpace(resp.Content)
	if ws.UnifiedSummary == "" {
		return 0, fmt.Errorf("%w: empty summary", llm.ErrMalformedOutput)
	}
	return EventSummaryReady, nil
}

func (w *Workflow) extractKeyPoints(ctx context.Context, summary string) ([]string, error) {
	var out struct {
		KeyPoints []string `json:"key_points"`
	}
	err := w.structured.Generate(ctx,
		fmt.Sprintf("Extract 3 to 6 key points from this summary, each a single short sentence:\n\n%s", summary),
		[]llm.SchemaField{
			{Name: "key_points", Type: "array", Description: "3-6 bullet points", Required: true},
		},
		&out,
	)
	if err != nil {
		return nil, err
	}
	if len(out.KeyPoints) > 6 {
		out.KeyPoints = out.KeyPoints[:6]
	}
	return out.KeyPoints, nil
}

// confidenceFor grows with the amount of retrieved material and is
// capped below certainty: min(0.99, 0.75 + 0.03*n), rounded to 2 places.
func confidenceFor(retrieved int) float64 {
	c := 0.75 + 0.03*float64(retrieved)
	if c > 0.99 {
		c = 0.99
	}
	return math.Round(c*100) / 100
}

func boundPrefix(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(runes[:maxChars]))
}

func dedupeSorted(pages []int) []int {
	seen := make(map[int]bool, len(pages))
	var out []int
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}
