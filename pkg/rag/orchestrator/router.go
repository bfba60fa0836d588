package orchestrator

import (
	"fmt"

	"study-assistant-be/pkg/rag/executor"
	"study-assistant-be/pkg/workflow"
)

// Router maps an intent to the executor that serves it.
type Router struct {
	executors map[workflow.Intent]executor.Executor
	// lowConfidence marks classifications that proceed but are reported as degraded.
	lowConfidence float64
}

func NewRouter(executors map[workflow.Intent]executor.Executor, lowConfidence float64) *Router {
	return &Router{executors: executors, lowConfidence: lowConfidence}
}

// Route picks the executor for the classified intent. A low-confidence result still
// routes; the second return value reports whether it should be annotated as degraded.
func (r *Router) Route(result workflow.IntentResult) (executor.Executor, bool, error) {
	ex, ok := r.executors[result.Intent]
	if !ok {
		return nil, false, fmt.Errorf("no executor registered for intent %q", result.Intent)
	}
	return ex, !result.Degraded && result.Confidence < r.lowConfidence, nil
}

// Nodes lists the stage names this router can reach, in intent order.
func (r *Router) Nodes() []string {
	var nodes []string
	seen := map[string]bool{}
	for _, in := range workflow.AllIntents() {
		if ex, ok := r.executors[in]; ok && !seen[ex.Node()] {
			seen[ex.Node()] = true
			nodes = append(nodes, ex.Node())
		}
	}
	return nodes
}

// Intents lists the intents with a registered executor.
func (r *Router) Intents() []workflow.Intent {
	var out []workflow.Intent
	for _, in := range workflow.AllIntents() {
		if _, ok := r.executors[in]; ok {
			out = append(out, in)
		}
	}
	return out
}
