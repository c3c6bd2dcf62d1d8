// Package repository declares the narrow persistence ports the core
// consumes. Storage itself (schema, transactions, SQL dialect) is a
// collaborator outside this module's scope; internal/storage ships one
// concrete Postgres implementation, but any type satisfying these
// interfaces can back the engine and scenario execution service.
package repository

import (
	"context"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/domain/flowgraph"
	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/domain/session"
)

// Page is a simple offset pagination request.
type Page struct {
	Page  int
	Limit int
}

// Scenarios is the persistence port for recorded scenarios and their
// execution history.
type Scenarios interface {
	Create(ctx context.Context, s scenario.Scenario) (scenario.Scenario, error)
	GetByID(ctx context.Context, id string) (scenario.Scenario, error)
	List(ctx context.Context, p Page) ([]scenario.Scenario, error)
	Update(ctx context.Context, id string, patch scenario.Scenario) (scenario.Scenario, error)
	Delete(ctx context.Context, id string) error
	AddExecutionResult(ctx context.Context, result scenario.ScenarioExecutionResult) error
	ListExecutionResults(ctx context.Context, scenarioID string, p Page) ([]scenario.ScenarioExecutionResult, error)
}

// Sessions is the persistence port for browser-extension recording sessions
// and their raw event streams. AddEvent/AddEvents must be idempotent on the
// event id (insert-or-ignore on duplicate) since the extension may retry a
// flush.
type Sessions interface {
	Create(ctx context.Context, s session.Session) (session.Session, error)
	GetByID(ctx context.Context, id string) (session.Session, error)
	GetWithEvents(ctx context.Context, id string) (session.Session, []session.RawEvent, error)
	List(ctx context.Context, p Page) ([]session.Session, error)
	Update(ctx context.Context, id string, patch session.Session) (session.Session, error)
	Stop(ctx context.Context, id string) (session.Session, error)
	Delete(ctx context.Context, id string) error
	AddEvent(ctx context.Context, e session.RawEvent) error
	AddEvents(ctx context.Context, events []session.RawEvent) error
	GetEvents(ctx context.Context, sessionID string) ([]session.RawEvent, error)
	ClearEvents(ctx context.Context, sessionID string) error
}

// UserFlows is the persistence port for flow graphs and their execution
// history.
type UserFlows interface {
	Create(ctx context.Context, f flowgraph.UserFlow) (flowgraph.UserFlow, error)
	GetByID(ctx context.Context, id string) (flowgraph.UserFlow, error)
	List(ctx context.Context, p Page) ([]flowgraph.UserFlow, error)
	Update(ctx context.Context, id string, patch flowgraph.UserFlow) (flowgraph.UserFlow, error)
	Delete(ctx context.Context, id string) error
	AddExecutionResult(ctx context.Context, result execution.FlowExecutionResult) error
	ListExecutionResults(ctx context.Context, flowID string, p Page) ([]execution.FlowExecutionResult, error)
}

// Repository bundles the three aggregate ports behind one handle, the shape
// cmd/gateway wires up at startup.
type Repository interface {
	Scenarios() Scenarios
	Sessions() Sessions
	UserFlows() UserFlows
}
