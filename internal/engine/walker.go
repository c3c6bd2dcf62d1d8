package engine

import (
	"context"
	"time"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/domain/flowgraph"
	"github.com/scenarioflow/control-plane/internal/variablestore"
)

// walker holds the mutable state of a single Execute call: the visited set
// that guarantees termination (spec.md §8 "cycle guard"), the per-run
// variable store, and the cached last-API-response an extractVariable node
// may read.
type walker struct {
	engine  *Engine
	flow    flowgraph.UserFlow
	opts    Options
	started time.Time
	result  *execution.FlowExecutionResult

	store   *variablestore.Store
	visited map[string]bool

	lastAPIResponse    interface{}
	hasLastAPIResponse bool

	aborted bool
}

func newWalker(e *Engine, flow flowgraph.UserFlow, opts Options, started time.Time, result *execution.FlowExecutionResult) *walker {
	initial := opts.InitialVariables
	if initial == nil {
		initial = flow.InitialVariables
	}
	return &walker{
		engine:  e,
		flow:    flow,
		opts:    opts,
		started: started,
		result:  result,
		store:   variablestore.New(initial),
		visited: make(map[string]bool),
	}
}

// walk performs the depth-first traversal described in spec.md §4.1
// "Algorithm (graph walk)". Termination is guaranteed because every node id
// is inserted into the (traversal-global, not per-path) visited set before
// recursing into its successors — a node already visited anywhere in the
// walk is never dispatched again.
func (w *walker) walk(ctx context.Context, nodeID string) {
	if w.aborted {
		return
	}
	if time.Since(w.started) > w.opts.maxExecutionTime() {
		w.result.Status = execution.StatusFailed
		w.result.Error = "flow execution exceeded maxExecutionTime"
		w.aborted = true
		return
	}
	if w.visited[nodeID] {
		return
	}
	w.visited[nodeID] = true

	node, ok := w.flow.NodeByID(nodeID)
	if !ok {
		return
	}

	nr, successors := w.dispatch(ctx, node)

	if nr != nil {
		w.result.NodeResults = append(w.result.NodeResults, *nr)
		if w.engine.metrics != nil {
			w.engine.metrics.RecordFlowNodeResult("engine", nr.NodeType, string(nr.Status))
		}
		if w.opts.OnNodeStatusChange != nil {
			w.opts.OnNodeStatusChange(node.ID, nr.Status, nr)
		}
		if nr.Status == execution.StatusFailed && !w.opts.ContinueOnFailure {
			w.result.Status = execution.StatusFailed
			w.aborted = true
			return
		}
	}

	for _, next := range successors {
		w.walk(ctx, next)
		if w.aborted {
			return
		}
	}
}

// declaredSuccessors returns every out-edge target of nodeID, in
// declaration order — the successor rule for all node kinds except
// condition (spec.md §4.1 "Successor rules").
func (w *walker) declaredSuccessors(nodeID string) []string {
	edges := w.flow.OutgoingEdges(nodeID)
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.To
	}
	return out
}

// conditionSuccessor returns the single out-edge target whose handle
// matches the boolean result, or nil if the flow declares no such edge
// (traversal terminates on that branch without error).
func (w *walker) conditionSuccessor(nodeID string, result bool) []string {
	want := "false"
	if result {
		want = "true"
	}
	for _, e := range w.flow.OutgoingEdges(nodeID) {
		if e.Label == want {
			return []string{e.To}
		}
	}
	return nil
}
