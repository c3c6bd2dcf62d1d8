package ws

import (
	"context"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/repository"
)

// fakeScenarios is an empty repository.Scenarios: the hub tests in this
// package only exercise the push protocol itself (connect, subscribe to a
// nonexistent execution, malformed messages, rate limiting), none of which
// need a seeded scenario.
type fakeScenarios struct{}

func newFakeScenarios() *fakeScenarios { return &fakeScenarios{} }

func (f *fakeScenarios) Create(ctx context.Context, s scenario.Scenario) (scenario.Scenario, error) {
	return s, nil
}

func (f *fakeScenarios) GetByID(ctx context.Context, id string) (scenario.Scenario, error) {
	return scenario.Scenario{}, apperrors.NotFound("scenario", id)
}

func (f *fakeScenarios) List(ctx context.Context, p repository.Page) ([]scenario.Scenario, error) {
	return nil, nil
}

func (f *fakeScenarios) Update(ctx context.Context, id string, patch scenario.Scenario) (scenario.Scenario, error) {
	return patch, nil
}

func (f *fakeScenarios) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeScenarios) AddExecutionResult(ctx context.Context, result scenario.ScenarioExecutionResult) error {
	return nil
}

func (f *fakeScenarios) ListExecutionResults(ctx context.Context, scenarioID string, p repository.Page) ([]scenario.ScenarioExecutionResult, error) {
	return nil, nil
}

var _ repository.Scenarios = (*fakeScenarios)(nil)
