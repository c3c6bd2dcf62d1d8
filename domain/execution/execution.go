// Package execution defines the results and push-protocol events produced
// by walking a UserFlow or running a Scenario in isolation.
package execution

import (
	"time"

	"github.com/scenarioflow/control-plane/domain/scenario"
)

// Status is the terminal state of a node, scenario, or flow execution.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ResultError carries a failure message and, when available, a stack trace
// — the {message, stack?} shape spec.md §3 assigns to StepResult.error and
// NodeResult.error.
type ResultError struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ConditionResult records what a condition node actually evaluated, for
// observability and the seeded end-to-end assertions in spec.md §8.
type ConditionResult struct {
	Result     bool        `json:"result"`
	LeftValue  interface{} `json:"leftValue"`
	RightValue interface{} `json:"rightValue,omitempty"`
}

// VariableResult records the bindings a setVariable or extractVariable node
// produced.
type VariableResult struct {
	Variables map[string]interface{} `json:"variables"`
}

// NodeResult is the outcome of visiting a single flow node.
type NodeResult struct {
	NodeID          string           `json:"nodeId"`
	NodeType        string           `json:"nodeType"`
	Status          Status           `json:"status"`
	DurationMs      int64            `json:"duration"`
	Error           *ResultError     `json:"error,omitempty"`
	ScenarioResult  *scenario.ScenarioExecutionResult `json:"scenarioResult,omitempty"`
	ConditionResult *ConditionResult `json:"conditionResult,omitempty"`
	VariableResult  *VariableResult  `json:"variableResult,omitempty"`
}

// FlowExecutionResult aggregates every node visited during one flow walk.
// The *Nodes counters are computed only over results whose NodeType is
// "scenario" (spec.md §4.1 "Summary aggregation"); step counters are summed
// from each scenario node's nested ScenarioResult.
type FlowExecutionResult struct {
	FlowID       string       `json:"flowId"`
	Status       Status       `json:"status"`
	TotalNodes   int          `json:"totalNodes"`
	PassedNodes  int          `json:"passedNodes"`
	FailedNodes  int          `json:"failedNodes"`
	SkippedNodes int          `json:"skippedNodes"`
	TotalSteps   int          `json:"totalSteps"`
	PassedSteps  int          `json:"passedSteps"`
	FailedSteps  int          `json:"failedSteps"`
	SkippedSteps int          `json:"skippedSteps"`
	NodeResults  []NodeResult `json:"nodeResults"`
	StartedAt    time.Time    `json:"startedAt"`
	EndedAt      time.Time    `json:"endedAt"`
	Error        string       `json:"error,omitempty"`
}

// ScenarioNodeResults returns only the node results that ran a scenario, in
// visitation order.
func (r FlowExecutionResult) ScenarioNodeResults() []NodeResult {
	var out []NodeResult
	for _, n := range r.NodeResults {
		if n.NodeType == "scenario" {
			out = append(out, n)
		}
	}
	return out
}

// Recompute derives the summary counters from NodeResults, per the
// aggregation rule in spec.md §4.1. Callers append to NodeResults during the
// walk and call Recompute once traversal completes.
//
// It also enforces spec.md §4.1 "Summary aggregation": overall Status is
// failed iff any scenario-kind node result failed. This matters under
// continueOnFailure=true, where the walk keeps going past a failed scenario
// node without ever setting Status itself. Recompute only ever promotes
// Status to failed here — it never clobbers a failed Status (and Error)
// already set by a timeout or panic.
func (r *FlowExecutionResult) Recompute() {
	r.TotalNodes, r.PassedNodes, r.FailedNodes, r.SkippedNodes = 0, 0, 0, 0
	r.TotalSteps, r.PassedSteps, r.FailedSteps, r.SkippedSteps = 0, 0, 0, 0
	for _, n := range r.NodeResults {
		if n.NodeType != "scenario" {
			continue
		}
		r.TotalNodes++
		switch n.Status {
		case StatusPassed:
			r.PassedNodes++
		case StatusFailed:
			r.FailedNodes++
			r.Status = StatusFailed
		case StatusSkipped:
			r.SkippedNodes++
		}
		if n.ScenarioResult == nil {
			continue
		}
		for _, s := range n.ScenarioResult.Steps {
			r.TotalSteps++
			switch {
			case s.Success():
				r.PassedSteps++
			case s.Skipped():
				r.SkippedSteps++
			default:
				r.FailedSteps++
			}
		}
	}
}

// EventType tags the union of messages pushed to websocket subscribers of
// an execution.
type EventType string

const (
	EventStarted      EventType = "started"
	EventStepStart    EventType = "step_start"
	EventStepComplete EventType = "step_complete"
	EventCompleted    EventType = "completed"
	EventError        EventType = "error"
	EventSubscribed   EventType = "subscribed"
	EventUnsubscribed EventType = "unsubscribed"
	EventConnected    EventType = "connected"
)

// Event is a single push-protocol message. Fields outside Type/ExecutionID
// are populated according to Type; see internal/scenarioexec for the exact
// schema per event.
type Event struct {
	Type        EventType                          `json:"type"`
	ExecutionID string                             `json:"executionId,omitempty"`
	ScenarioID  string                             `json:"scenarioId,omitempty"`
	TotalSteps  int                                `json:"totalSteps,omitempty"`
	StepIndex   int                                `json:"stepIndex,omitempty"`
	Step        *scenario.StepResult               `json:"step,omitempty"`
	Result      *scenario.ScenarioExecutionResult  `json:"result,omitempty"`
	Message     string                             `json:"message,omitempty"`
	Error       string                             `json:"error,omitempty"`
	Timestamp   time.Time                          `json:"timestamp"`
}
