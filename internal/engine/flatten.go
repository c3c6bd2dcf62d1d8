package engine

import (
	"fmt"

	"github.com/scenarioflow/control-plane/domain/flowgraph"
)

// Flatten returns the scenario node ids reachable from flow's start node, in
// a topological order over the scenario-node subgraph (spec.md §4.1 "used
// by clients that want the linear sequence without execution"). Control
// nodes (condition, setVariable, extractVariable, start, end) are
// contracted: a scenario node S has an edge to scenario node T in the
// subgraph if T is reachable from S by following flow edges without
// passing through another scenario node first.
func Flatten(flow flowgraph.UserFlow) ([]string, error) {
	start, ok := flow.StartNode()
	if !ok {
		return nil, fmt.Errorf("flow has no start node")
	}

	reachable := reachableNodes(flow, start.ID)

	scenarioEdges := make(map[string]map[string]bool)
	inDegree := make(map[string]int)
	var scenarioIDs []string
	for id := range reachable {
		node, _ := flow.NodeByID(id)
		if node.Kind == flowgraph.NodeScenario {
			scenarioIDs = append(scenarioIDs, node.ID)
			scenarioEdges[node.ID] = make(map[string]bool)
			inDegree[node.ID] = 0
		}
	}

	for _, sid := range scenarioIDs {
		for _, target := range contractedSuccessors(flow, sid, reachable) {
			if !scenarioEdges[sid][target] {
				scenarioEdges[sid][target] = true
				inDegree[target]++
			}
		}
	}

	// Kahn's algorithm, seeded with nodes in node-declaration order for a
	// deterministic result among ties.
	queue := make([]string, 0, len(scenarioIDs))
	declOrder := make(map[string]int, len(scenarioIDs))
	for i, n := range flow.Nodes {
		declOrder[n.ID] = i
	}
	remaining := make(map[string]int, len(inDegree))
	for id, d := range inDegree {
		remaining[id] = d
	}
	for _, sid := range scenarioIDs {
		if remaining[sid] == 0 {
			queue = append(queue, sid)
		}
	}
	sortByDeclOrder(queue, declOrder)

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		var freed []string
		for target := range scenarioEdges[n] {
			remaining[target]--
			if remaining[target] == 0 {
				freed = append(freed, target)
			}
		}
		sortByDeclOrder(freed, declOrder)
		queue = append(queue, freed...)
		sortByDeclOrder(queue, declOrder)
	}

	if len(order) != len(scenarioIDs) {
		return nil, fmt.Errorf("cycle detected among scenario nodes")
	}
	return order, nil
}

// reachableNodes returns the set of node ids reachable from startID by
// following flow edges in either branch direction.
func reachableNodes(flow flowgraph.UserFlow, startID string) map[string]bool {
	seen := map[string]bool{startID: true}
	queue := []string{startID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range flow.OutgoingEdges(id) {
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return seen
}

// contractedSuccessors finds every scenario node reachable from fromID by
// following edges without passing through another scenario node first.
func contractedSuccessors(flow flowgraph.UserFlow, fromID string, reachable map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		if depth > len(flow.Nodes)+1 {
			return // guards against a non-scenario control-flow cycle
		}
		for _, e := range flow.OutgoingEdges(id) {
			if !reachable[e.To] || seen[e.To] {
				continue
			}
			node, ok := flow.NodeByID(e.To)
			if !ok {
				continue
			}
			if node.Kind == flowgraph.NodeScenario {
				seen[e.To] = true
				out = append(out, e.To)
				continue
			}
			visit(e.To, depth+1)
		}
	}
	visit(fromID, 0)
	return out
}

func sortByDeclOrder(ids []string, order map[string]int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && order[ids[j-1]] > order[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
