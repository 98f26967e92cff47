package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/docuchat/docuchat/internal/embedding"
	"github.com/docuchat/docuchat/internal/queue"
	"github.com/docuchat/docuchat/internal/vectorstore"
	"github.com/docuchat/docuchat/pkg/chunker"
	"github.com/docuchat/docuchat/pkg/textextract"
)

// IngestWorker turns an uploaded file into indexed chunks: extract
// per-page text, chunk, embed, replace the document's points. The
// upload flow itself (storage, metadata rows) belongs to the
// surrounding system; this worker only reacts to its task.
type IngestWorker struct {
	index    vectorstore.Index
	embedder *embedding.Service
}

func NewIngestWorker(index vectorstore.Index, embedder *embedding.Service) *IngestWorker {
	return &IngestWorker{index: index, embedder: embedder}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}
	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return fmt.Errorf("parse owner ID: %w", err)
	}

	slog.Info("ingesting document", "document_id", docID, "path", payload.FilePath)

	f, err := os.Open(payload.FilePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	extracted, err := textextract.Extract(f, info.Size(), payload.FileType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if len(extracted.Pages) == 0 {
		return fmt.Errorf("no text extracted from %s", payload.FilePath)
	}

	pages := make([]chunker.Page, len(extracted.Pages))
	for i, p := range extracted.Pages {
		pages[i] = chunker.Page{Number: p.Number, Content: p.Content}
	}
	chunks := chunker.ChunkPages(pages, chunker.DefaultOptions())
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks generated from %s", payload.FilePath)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := w.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}

	filename := filepath.Base(payload.FilePath)
	payloads := make([]vectorstore.ChunkPayload, len(chunks))
	for i, c := range chunks {
		payloads[i] = vectorstore.ChunkPayload{
			DocumentID: docID,
			OwnerID:    ownerID,
			ChunkIndex: c.Index,
			Page:       c.Page,
			Filename:   filename,
			Text:       c.Content,
		}
	}

	// Re-ingestion replaces, never duplicates.
	scope := vectorstore.Scope(ownerID, docID)
	if err := w.index.DeleteByFilter(ctx, scope); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}
	if err := w.index.Upsert(ctx, vectors, payloads); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	slog.Info("document ingested", "document_id", docID, "chunks", len(chunks))
	return nil
}
