// Package driver declares the ScenarioRunner capability the scenario
// execution service drives, and ships a deterministic in-memory fake used
// by tests and by local development without a real headless browser. The
// real headless-browser driver is an external collaborator outside this
// module's scope (spec.md §1).
package driver

import (
	"context"

	"github.com/scenarioflow/control-plane/domain/scenario"
)

// Options configures a ScenarioRunner for a single scenario execution. The
// field set matches spec.md §6 "Construction options recognized".
type Options struct {
	Headless          bool
	ScreenshotOnFailure bool
	ContinueOnFailure bool
	DefaultTimeoutMs  int
	BaseURL           string
	UserAgent         string
	Viewport          *scenario.Viewport
}

// ScenarioRunner is the capability the scenario execution service consumes
// to actually drive a browser. Init and Close bracket a single scenario
// run and must be called exactly once each, in that order, with Close
// guaranteed on every exit path (scoped acquisition).
type ScenarioRunner interface {
	Init(ctx context.Context) error
	Run(ctx context.Context, s scenario.Scenario, variables map[string]interface{}) (scenario.ScenarioExecutionResult, error)
	Close(ctx context.Context) error
}

// Factory constructs a fresh ScenarioRunner per execution, so that the
// scenario execution service can allocate one driver instance per
// concurrent run without sharing state between them.
type Factory func(opts Options) ScenarioRunner
