package scenarioexec

import (
	"context"
	"sync"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/repository"
)

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

func (f *fakeScenarios) persistedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

var _ repository.Scenarios = (*fakeScenarios)(nil)

// fakeSubscriber records every payload broadcast to it, in order, and never
// reports itself closed.
type fakeSubscriber struct {
	mu       sync.Mutex
	received [][]byte
}

func (s *fakeSubscriber) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, payload)
	return nil
}

func (s *fakeSubscriber) IsOpen() bool { return true }

func (s *fakeSubscriber) events() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.received))
	copy(out, s.received)
	return out
}

var _ Subscriber = (*fakeSubscriber)(nil)
