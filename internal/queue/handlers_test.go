package queue

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRoutesTaskTypes(t *testing.T) {
	r := NewRegistry()

	var handled []string
	record := func(name string) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			handled = append(handled, name)
			return nil
		})
	}

	r.HandleDocumentIngest(record("ingest"))
	r.HandleSummaryGenerate(record("summary"))

	ctx := context.Background()
	require.NoError(t, r.Mux().ProcessTask(ctx, asynq.NewTask(TypeDocumentIngest, nil)))
	require.NoError(t, r.Mux().ProcessTask(ctx, asynq.NewTask(TypeSummaryGenerate, nil)))
	assert.Equal(t, []string{"ingest", "summary"}, handled)
}

func TestRegistryRejectsUnknownTaskType(t *testing.T) {
	r := NewRegistry()
	r.HandleDocumentIngest(asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		return nil
	}))

	err := r.Mux().ProcessTask(context.Background(), asynq.NewTask("document:unknown", nil))
	require.Error(t, err)
}
