package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/domain/flowgraph"
	"github.com/scenarioflow/control-plane/internal/variablestore"
)

// dispatch runs the node-kind-specific behavior of spec.md §4.1 "Node
// dispatch" and returns the resulting NodeResult (nil for start/end, which
// have no side effect) along with this node's successors per the
// "Successor rules" table.
func (w *walker) dispatch(ctx context.Context, node flowgraph.FlowNode) (*execution.NodeResult, []string) {
	switch node.Kind {
	case flowgraph.NodeStart, flowgraph.NodeEnd:
		return nil, w.declaredSuccessors(node.ID)
	case flowgraph.NodeScenario:
		return w.dispatchScenario(ctx, node), w.declaredSuccessors(node.ID)
	case flowgraph.NodeCondition:
		nr, result := w.dispatchCondition(node)
		if nr.Status == execution.StatusFailed {
			return nr, nil
		}
		return nr, w.conditionSuccessor(node.ID, result)
	case flowgraph.NodeSetVariable:
		return w.dispatchSetVariable(node), w.declaredSuccessors(node.ID)
	case flowgraph.NodeExtractVariable:
		return w.dispatchExtractVariable(node), w.declaredSuccessors(node.ID)
	default:
		nr := &execution.NodeResult{
			NodeID:   node.ID,
			NodeType: string(node.Kind),
			Status:   execution.StatusFailed,
			Error:    &execution.ResultError{Message: fmt.Sprintf("unknown node kind %q", node.Kind)},
		}
		return nr, nil
	}
}

func (w *walker) dispatchScenario(ctx context.Context, node flowgraph.FlowNode) *execution.NodeResult {
	nr := &execution.NodeResult{NodeID: node.ID, NodeType: "scenario"}

	if _, err := w.engine.scenarios.GetByID(ctx, node.ScenarioID); err != nil {
		nr.Status = execution.StatusSkipped
		nr.Error = &execution.ResultError{Message: fmt.Sprintf("Scenario %s not found", node.ScenarioID)}
		return nr
	}

	runtimeVars := coerceForDriver(w.store.All())
	result, err := w.engine.execSvc.Execute(ctx, node.ScenarioID, w.opts.RunnerOptions, nil, runtimeVars)
	nr.ScenarioResult = &result
	if err != nil {
		nr.Status = execution.StatusFailed
		nr.Error = &execution.ResultError{Message: err.Error()}
		return nr
	}

	if lastResp, ok := result.LastAPIResponse(); ok {
		w.lastAPIResponse = lastResp
		w.hasLastAPIResponse = true
	}

	if result.Summary.Success {
		nr.Status = execution.StatusPassed
	} else {
		nr.Status = execution.StatusFailed
	}
	return nr
}

// coerceForDriver renders the current variable bindings as driver-safe
// primitives per spec.md §4.1 "scenario" node dispatch: scalars pass
// through, nil is dropped, and composite values are JSON-stringified.
func coerceForDriver(vars map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		switch vv := v.(type) {
		case nil:
			continue
		case map[string]interface{}, []interface{}:
			b, err := json.Marshal(vv)
			if err != nil {
				continue
			}
			out[k] = string(b)
		default:
			out[k] = v
		}
	}
	return out
}

func (w *walker) dispatchCondition(node flowgraph.FlowNode) (*execution.NodeResult, bool) {
	nr := &execution.NodeResult{NodeID: node.ID, NodeType: "condition"}
	if node.Condition == nil {
		nr.Status = execution.StatusFailed
		nr.Error = &execution.ResultError{Message: "condition node missing condition"}
		return nr, false
	}

	cr, err := w.store.EvaluateCondition(*node.Condition)
	nr.ConditionResult = &execution.ConditionResult{Result: cr.Result, LeftValue: cr.LeftValue, RightValue: cr.RightValue}
	if err != nil {
		nr.Status = execution.StatusFailed
		nr.Error = &execution.ResultError{Message: err.Error()}
		return nr, false
	}
	nr.Status = execution.StatusPassed
	return nr, cr.Result
}

func (w *walker) dispatchSetVariable(node flowgraph.FlowNode) *execution.NodeResult {
	nr := &execution.NodeResult{NodeID: node.ID, NodeType: "setVariable"}
	applied := make(map[string]interface{}, len(node.Assignments))

	for _, a := range node.Assignments {
		interpolated, err := w.store.Interpolate(a.Value, variablestore.InterpolateOptions{})
		if err != nil {
			nr.Status = execution.StatusFailed
			nr.Error = &execution.ResultError{Message: err.Error()}
			nr.VariableResult = &execution.VariableResult{Variables: applied}
			return nr
		}

		value, err := coerceAssignment(a.Type, interpolated)
		if err != nil {
			nr.Status = execution.StatusFailed
			nr.Error = &execution.ResultError{Message: fmt.Sprintf("assignment %q: %v", a.Name, err)}
			nr.VariableResult = &execution.VariableResult{Variables: applied}
			return nr
		}

		w.store.Set(a.Name, value)
		applied[a.Name] = value
	}

	nr.Status = execution.StatusPassed
	nr.VariableResult = &execution.VariableResult{Variables: applied}
	return nr
}

// coerceAssignment implements spec.md §4.1 setVariable coercion. Per §9's
// "Open questions", boolean coercion recognizes only the literal strings
// "true"/"1"; every other string (including "yes", "on", "TRUE") coerces to
// false. This is documented, deliberate, and must not be silently broadened.
func coerceAssignment(t flowgraph.AssignmentType, raw string) (interface{}, error) {
	switch t {
	case flowgraph.AssignString, "":
		return raw, nil
	case flowgraph.AssignNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as number", raw)
		}
		return f, nil
	case flowgraph.AssignBoolean:
		return raw == "true" || raw == "1", nil
	case flowgraph.AssignJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("cannot parse %q as json: %w", raw, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown assignment type %q", t)
	}
}

func (w *walker) dispatchExtractVariable(node flowgraph.FlowNode) *execution.NodeResult {
	nr := &execution.NodeResult{NodeID: node.ID, NodeType: "extractVariable"}
	applied := make(map[string]interface{}, len(node.Extractions))

	for _, ex := range node.Extractions {
		var value interface{}
		switch ex.Source {
		case flowgraph.SourceLastAPIResponse:
			if w.hasLastAPIResponse && ex.JSONPath != "" {
				v, _ := variablestore.ExtractJSONPath(w.lastAPIResponse, ex.JSONPath)
				value = v
			} else if w.hasLastAPIResponse {
				value = w.lastAPIResponse
			}
			if value == nil {
				value = ex.DefaultValue
			}
		case flowgraph.SourceURL, flowgraph.SourceElement, flowgraph.SourceLocalStorage, flowgraph.SourceCookie:
			// Requires browser context the backend core does not own:
			// "unsupported here", never a node failure (spec.md §4.1).
			value = ex.DefaultValue
		default:
			nr.Status = execution.StatusFailed
			nr.Error = &execution.ResultError{Message: fmt.Sprintf("unknown extraction source %q", ex.Source)}
			nr.VariableResult = &execution.VariableResult{Variables: applied}
			return nr
		}

		w.store.Set(ex.VariableName, value)
		applied[ex.VariableName] = value
	}

	nr.Status = execution.StatusPassed
	nr.VariableResult = &execution.VariableResult{Variables: applied}
	return nr
}
