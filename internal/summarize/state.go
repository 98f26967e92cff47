package summarize

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// State identifies a node of the summarization workflow.
type State int

const (
	StateStart State = iota
	StateOrchestrator
	StateTOCAgent
	StateSemanticRetrieval
	StateSummarizer
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateOrchestrator:
		return "orchestrator"
	case StateTOCAgent:
		return "toc_agent"
	case StateSemanticRetrieval:
		return "semantic_retrieval"
	case StateSummarizer:
		return "summarizer"
	case StateEnd:
		return "end"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event is emitted by a completed stage and drives the transition.
type Event int

const (
	EventBegin Event = iota
	EventTOCFound
	EventTOCMissing
	EventContentReady
	EventSummaryReady
)

func (e Event) String() string {
	switch e {
	case EventBegin:
		return "begin"
	case EventTOCFound:
		return "toc_found"
	case EventTOCMissing:
		return "toc_missing"
	case EventContentReady:
		return "content_ready"
	case EventSummaryReady:
		return "summary_ready"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var ErrInvalidTransition = errors.New("invalid workflow transition")

// Transition is the pure routing function of the workflow:
//
//	start -> orchestrator -> (toc_agent | semantic_retrieval) -> summarizer -> end
func Transition(s State, e Event) (State, error) {
	switch {
	case s == StateStart && e == EventBegin:
		return StateOrchestrator, nil
	case s == StateOrchestrator && e == EventTOCFound:
		return StateTOCAgent, nil
	case s == StateOrchestrator && e == EventTOCMissing:
		return StateSemanticRetrieval, nil
	case s == StateTOCAgent && e == EventContentReady:
		return StateSummarizer, nil
	case s == StateSemanticRetrieval && e == EventContentReady:
		return StateSummarizer, nil
	case s == StateSummarizer && e == EventSummaryReady:
		return StateEnd, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}

// WorkflowState is the transient record carried through one run.
// It is created at workflow start and discarded at completion,
// never persisted.
type WorkflowState struct {
	OwnerID         uuid.UUID
	DocumentID      uuid.UUID
	RawText         string
	HasTOC          bool
	TOCSections     []string
	RetrievedChunks []string
	UnifiedSummary  string
	SourcePages     []int
}

// validateFor checks the preconditions a stage relies on before it runs.
func (ws *WorkflowState) validateFor(s State) error {
	switch s {
	case StateTOCAgent:
		if len(ws.TOCSections) == 0 {
			return fmt.Errorf("toc agent requires toc sections")
		}
	case StateSummarizer:
		if len(ws.RetrievedChunks) == 0 {
			return fmt.Errorf("summarizer requires retrieved content")
		}
	}
	return nil
}
