// Package engine implements the Flow Execution Engine (spec.md §4.1): a
// graph-walking state machine with cycle detection, conditional branching,
// variable bindings, nested scenario invocation, partial-failure
// semantics, and per-node telemetry fan-out.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/domain/flowgraph"
	"github.com/scenarioflow/control-plane/internal/driver"
	"github.com/scenarioflow/control-plane/internal/metrics"
	"github.com/scenarioflow/control-plane/internal/repository"
	"github.com/scenarioflow/control-plane/internal/scenarioexec"
	"github.com/scenarioflow/control-plane/pkg/logging"
)

// DefaultMaxExecutionTime is the flow-level deadline spec.md §4.1 specifies
// when the caller does not provide one.
const DefaultMaxExecutionTime = 5 * time.Minute

// NodeStatusChangeFunc is invoked synchronously, in traversal order, right
// after each node result is recorded (spec.md §5 "Ordering guarantees").
type NodeStatusChangeFunc func(nodeID string, status execution.Status, result *execution.NodeResult)

// Options configures a single Execute call.
type Options struct {
	InitialVariables   map[string]interface{}
	RunnerOptions      driver.Options
	MaxExecutionTime   time.Duration
	ContinueOnFailure  bool
	OnNodeStatusChange NodeStatusChangeFunc
}

func (o Options) maxExecutionTime() time.Duration {
	if o.MaxExecutionTime > 0 {
		return o.MaxExecutionTime
	}
	return DefaultMaxExecutionTime
}

// Engine walks UserFlow graphs, dispatching scenario nodes to the scenario
// execution service and control-flow nodes against a per-run variable
// store.
type Engine struct {
	scenarios repository.Scenarios
	execSvc   *scenarioexec.Service
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// New constructs an Engine. scenarios is wrapped in a read-through cache
// (internal/cache) so that a flow graph visiting the same scenario id from
// more than one node does not refetch it from the repository each time.
func New(scenarios repository.Scenarios, execSvc *scenarioexec.Service, logger *logging.Logger, m *metrics.Metrics) *Engine {
	return &Engine{scenarios: withCache(scenarios), execSvc: execSvc, logger: logger, metrics: m}
}

// Execute walks flow from its unique start node and returns the aggregated
// result. If flow has no start node, the result is failed with a single
// synthetic "flow-error" node result (spec.md §4.1 "Preconditions").
func (e *Engine) Execute(ctx context.Context, flow flowgraph.UserFlow, opts Options) execution.FlowExecutionResult {
	started := time.Now()
	result := execution.FlowExecutionResult{FlowID: flow.ID, Status: execution.StatusPassed, StartedAt: started}

	start, ok := flow.StartNode()
	if !ok {
		result.Status = execution.StatusFailed
		result.Error = "flow has no start node"
		result.NodeResults = append(result.NodeResults, execution.NodeResult{
			NodeID:   "flow-error",
			NodeType: "flow-error",
			Status:   execution.StatusFailed,
			Error:    &execution.ResultError{Message: result.Error},
		})
		result.EndedAt = time.Now()
		return result
	}

	w := newWalker(e, flow, opts, started, &result)

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Status = execution.StatusFailed
				result.Error = fmt.Sprintf("flow execution panicked: %v", r)
			}
		}()
		w.walk(ctx, start.ID)
	}()

	result.Recompute()
	result.EndedAt = time.Now()

	if e.metrics != nil {
		e.metrics.RecordFlowExecution("engine", string(result.Status), result.EndedAt.Sub(result.StartedAt))
	}
	if e.logger != nil {
		e.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"flow_id": flow.ID,
			"status":  result.Status,
		}).Info("flow execution completed")
	}

	return result
}
