// Package flowgraph defines the directed graph of nodes and edges that the
// execution engine walks: a UserFlow wires scenarios together with branching
// and variable manipulation nodes.
package flowgraph

import (
	"fmt"
	"time"
)

// NodeKind is the behavior a FlowNode performs when visited.
type NodeKind string

const (
	NodeStart           NodeKind = "start"
	NodeEnd             NodeKind = "end"
	NodeScenario         NodeKind = "scenario"
	NodeCondition        NodeKind = "condition"
	NodeSetVariable      NodeKind = "setVariable"
	NodeExtractVariable  NodeKind = "extractVariable"
)

// ConditionOperator is the comparison a Condition performs against a
// variable-store value. Names follow spec.md §3 exactly; eq/ne/gt/gte/lt/lte
// are binary, contains/startsWith/endsWith/matches are string operators, and
// exists/isEmpty are unary (Right is ignored).
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "eq"
	OpNotEquals   ConditionOperator = "ne"
	OpGreaterThan ConditionOperator = "gt"
	OpGreaterEq   ConditionOperator = "gte"
	OpLessThan    ConditionOperator = "lt"
	OpLessEq      ConditionOperator = "lte"
	OpContains    ConditionOperator = "contains"
	OpStartsWith  ConditionOperator = "startsWith"
	OpEndsWith    ConditionOperator = "endsWith"
	OpMatches     ConditionOperator = "matches"
	OpExists      ConditionOperator = "exists"
	OpIsEmpty     ConditionOperator = "isEmpty"
)

// Condition is evaluated against the variable store to pick a successor out
// of a condition node. Left and Right are either dotted variable paths
// wrapped in "{{ }}" interpolation or literal values; see variablestore for
// operand resolution rules.
type Condition struct {
	Left     string            `json:"left"`
	Operator ConditionOperator `json:"operator"`
	Right    string            `json:"right,omitempty"`
}

// AssignmentType selects how a setVariable node coerces its interpolated
// string Value before binding it into the variable store.
type AssignmentType string

const (
	AssignString  AssignmentType = "string"
	AssignNumber  AssignmentType = "number"
	AssignBoolean AssignmentType = "boolean"
	AssignJSON    AssignmentType = "json"
)

// Assignment is one {name, type, value} entry of a setVariable node. Value
// is interpolated before the Type-directed coercion is applied.
type Assignment struct {
	Name  string         `json:"name"`
	Type  AssignmentType `json:"type"`
	Value string         `json:"value"`
}

// ExtractSource is where an extractVariable node reads its raw value from
// before applying JSONPath.
type ExtractSource string

const (
	SourceLastAPIResponse ExtractSource = "lastApiResponse"
	SourceURL             ExtractSource = "url"
	SourceElement         ExtractSource = "element"
	SourceLocalStorage    ExtractSource = "localStorage"
	SourceCookie          ExtractSource = "cookie"
)

// ExtractSpec tells an extractVariable node where to read a value from and
// where to store it. Source values other than lastApiResponse require
// browser context the backend core does not own and always yield
// DefaultValue (or null) without failing the node.
type ExtractSpec struct {
	VariableName string        `json:"variableName"`
	Source       ExtractSource `json:"source"`
	JSONPath     string        `json:"jsonPath,omitempty"`
	DefaultValue interface{}   `json:"defaultValue,omitempty"`
}

// FlowNode is a single vertex in a UserFlow. Only the fields relevant to
// Kind are populated.
type FlowNode struct {
	ID          string       `json:"id"`
	Kind        NodeKind     `json:"kind"`
	Label       string       `json:"label,omitempty"`
	ScenarioID  string       `json:"scenarioId,omitempty"`
	Condition   *Condition   `json:"condition,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
	Extractions []ExtractSpec `json:"extractions,omitempty"`
}

// FlowEdge connects two nodes. Label distinguishes the two outgoing edges
// of a condition node ("true"/"false"); it is ignored for other node kinds.
type FlowEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// UserFlow is the graph an execution walks: exactly one start node and
// edges that only reference declared nodes.
//
// Invariants enforced by Validate:
//   - exactly one node of kind "start"
//   - no two nodes share an id
//   - every edge's From/To refers to a declared node
//   - a condition node's outgoing edges are labeled "true" or "false", with
//     at most one of each
//
// Validate does not require an end node.
type UserFlow struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	Nodes            []FlowNode             `json:"nodes"`
	Edges            []FlowEdge             `json:"edges"`
	InitialVariables map[string]interface{} `json:"initialVariables,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// NodeByID returns the node with the given id, if any.
func (f UserFlow) NodeByID(id string) (FlowNode, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return FlowNode{}, false
}

// OutgoingEdges returns the edges leaving the node with the given id, in
// declaration order.
func (f UserFlow) OutgoingEdges(nodeID string) []FlowEdge {
	var out []FlowEdge
	for _, e := range f.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// StartNode returns the flow's single start node.
func (f UserFlow) StartNode() (FlowNode, bool) {
	for _, n := range f.Nodes {
		if n.Kind == NodeStart {
			return n, true
		}
	}
	return FlowNode{}, false
}

// Validate checks the structural invariants spec.md §3 requires of a
// UserFlow: exactly one start node, no duplicate node ids, every edge
// endpoint references a declared node, and a condition node's out-edges use
// only the literal handles "true"/"false" with at most one of each.
func (f UserFlow) Validate() error {
	seen := make(map[string]bool, len(f.Nodes))
	starts := 0
	for _, n := range f.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		if n.Kind == NodeStart {
			starts++
		}
	}
	if starts != 1 {
		return fmt.Errorf("flow must have exactly one start node, found %d", starts)
	}
	for _, e := range f.Edges {
		if !seen[e.From] {
			return fmt.Errorf("edge references unknown source node %q", e.From)
		}
		if !seen[e.To] {
			return fmt.Errorf("edge references unknown target node %q", e.To)
		}
	}
	for _, n := range f.Nodes {
		if n.Kind != NodeCondition {
			continue
		}
		trueCount, falseCount := 0, 0
		for _, e := range f.OutgoingEdges(n.ID) {
			switch e.Label {
			case "true":
				trueCount++
			case "false":
				falseCount++
			default:
				return fmt.Errorf("condition node %q has out-edge with invalid handle %q", n.ID, e.Label)
			}
		}
		if trueCount > 1 || falseCount > 1 {
			return fmt.Errorf("condition node %q has duplicate true/false out-edges", n.ID)
		}
	}
	return nil
}
