package engine

import (
	"context"
	"sync"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/repository"

	"github.com/scenarioflow/control-plane/domain/scenario"
)

// fakeScenarios is an in-memory repository.Scenarios backing engine tests,
// seeded directly rather than through Create so fixtures can set fields
// Create would otherwise overwrite (timestamps, ids).
type fakeScenarios struct {
	mu      sync.Mutex
	byID    map[string]scenario.Scenario
	results []scenario.ScenarioExecutionResult
}

func newFakeScenarios(scenarios ...scenario.Scenario) *fakeScenarios {
	f := &fakeScenarios{byID: make(map[string]scenario.Scenario)}
	for _, s := range scenarios {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeScenarios) Create(ctx context.Context, s scenario.Scenario) (scenario.Scenario, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[s.ID] = s
	return s, nil
}

func (f *fakeScenarios) GetByID(ctx context.Context, id string) (scenario.Scenario, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return scenario.Scenario{}, apperrors.NotFound("scenario", id)
	}
	return s, nil
}

func (f *fakeScenarios) List(ctx context.Context, p repository.Page) ([]scenario.Scenario, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]scenario.Scenario, 0, len(f.byID))
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeScenarios) Update(ctx context.Context, id string, patch scenario.Scenario) (scenario.Scenario, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id] = patch
	return patch, nil
}

func (f *fakeScenarios) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeScenarios) AddExecutionResult(ctx context.Context, result scenario.ScenarioExecutionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

func (f *fakeScenarios) ListExecutionResults(ctx context.Context, scenarioID string, p repository.Page) ([]scenario.ScenarioExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []scenario.ScenarioExecutionResult
	for _, r := range f.results {
		if r.ScenarioID == scenarioID {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ repository.Scenarios = (*fakeScenarios)(nil)

// nodeResult is a small test helper that finds a node's result by id, since
// FlowExecutionResult.NodeResults order is the only other way to locate one.
func nodeResult(result execution.FlowExecutionResult, nodeID string) (execution.NodeResult, bool) {
	for _, nr := range result.NodeResults {
		if nr.NodeID == nodeID {
			return nr, true
		}
	}
	return execution.NodeResult{}, false
}
