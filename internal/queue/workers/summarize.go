package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/docuchat/docuchat/internal/cache"
	"github.com/docuchat/docuchat/internal/queue"
	"github.com/docuchat/docuchat/internal/summarize"
)

// SummaryWorker runs the summarization workflow for a document and
// caches the result so repeated requests are served without another
// pass over the model.
type SummaryWorker struct {
	workflow *summarize.Workflow
	cache    *cache.Cache
	ttl      time.Duration
}

func NewSummaryWorker(workflow *summarize.Workflow, c *cache.Cache, ttl time.Duration) *SummaryWorker {
	return &SummaryWorker{workflow: workflow, cache: c, ttl: ttl}
}

func summaryCacheKey(ownerID, documentID uuid.UUID) string {
	return fmt.Sprintf("summary:%s:%s", ownerID, documentID)
}

func (w *SummaryWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.SummaryGeneratePayload
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

	key := summaryCacheKey(ownerID, docID)
	if w.cache != nil {
		var cached summarize.Summary
		if err := w.cache.Get(ctx, key, &cached); err == nil {
			slog.Info("summary already cached", "document_id", docID)
			return nil
		}
	}

	slog.Info("generating summary", "document_id", docID)

	summary, err := w.workflow.Run(ctx, ownerID, docID)
	if err != nil {
		return fmt.Errorf("run summarization workflow: %w", err)
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, key, summary, w.ttl); err != nil {
			slog.Warn("failed to cache summary", "document_id", docID, "error", err)
		}
	}

	slog.Info("summary generated",
		"document_id", docID,
		"strategy", summary.Strategy,
		"words", summary.WordCount,
		"confidence", summary.Confidence,
	)
	return nil
}
