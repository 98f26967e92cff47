package queue

import (
	"github.com/hibiken/asynq"
)

// Registry binds this module's task types to their handlers. Using
// named methods instead of raw (type, handler) pairs keeps the task
// name constants and their handlers from drifting apart.
type Registry struct {
	mux *asynq.ServeMux
}

func NewRegistry() *Registry {
	return &Registry{mux: asynq.NewServeMux()}
}

func (r *Registry) HandleDocumentIngest(h asynq.Handler) {
	r.mux.Handle(TypeDocumentIngest, h)
}

func (r *Registry) HandleSummaryGenerate(h asynq.Handler) {
	r.mux.Handle(TypeSummaryGenerate, h)
}

func (r *Registry) Mux() *asynq.ServeMux {
	return r.mux
}
