// Package scenarioexec implements the Scenario Execution Service
// (spec.md §4.2): concurrent, subscription-based execution of a single
// scenario against a pluggable driver, with lifecycle tracking, progress
// broadcasting, and result persistence.
package scenarioexec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/driver"
	"github.com/scenarioflow/control-plane/internal/metrics"
	"github.com/scenarioflow/control-plane/internal/repository"
	"github.com/scenarioflow/control-plane/pkg/logging"
)

// executionRecord is the service's bookkeeping for one in-flight run. Its
// own mutex serializes subscriber-set mutation without taking the service's
// global map lock, so that a slow subscriber on one execution never blocks
// Subscribe/Unsubscribe calls against a different one (spec.md §5 "Shared
// resources").
type executionRecord struct {
	mu          sync.Mutex
	scenarioID  string
	startedAt   time.Time
	subscribers map[Subscriber]struct{}
	cancel      context.CancelFunc
}

func newExecutionRecord(scenarioID string, cancel context.CancelFunc) *executionRecord {
	return &executionRecord{
		scenarioID:  scenarioID,
		startedAt:   time.Now(),
		subscribers: make(map[Subscriber]struct{}),
		cancel:      cancel,
	}
}

func (r *executionRecord) add(sub Subscriber) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[sub] = struct{}{}
}

func (r *executionRecord) remove(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, sub)
}

func (r *executionRecord) broadcast(payload []byte) {
	r.mu.Lock()
	subs := make([]Subscriber, 0, len(r.subscribers))
	for s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		if !s.IsOpen() {
			continue
		}
		_ = s.Send(payload)
	}
}

// Status reports whether an execution is currently active.
type Status struct {
	Active     bool
	ScenarioID string
	StartedAt  time.Time
}

// Service drives scenario executions concurrently, each against its own
// driver instance, and fans out lifecycle events to that execution's
// subscribers (spec.md §4.2 "Concurrency model").
type Service struct {
	scenarios     repository.Scenarios
	driverFactory driver.Factory
	logger        *logging.Logger
	metrics       *metrics.Metrics

	mu     sync.Mutex
	active map[string]*executionRecord
}

// New constructs a Service. driverFactory is called once per Execute call
// to build a fresh, unshared driver instance.
func New(scenarios repository.Scenarios, driverFactory driver.Factory, logger *logging.Logger, m *metrics.Metrics) *Service {
	return &Service{
		scenarios:     scenarios,
		driverFactory: driverFactory,
		logger:        logger,
		metrics:       m,
		active:        make(map[string]*executionRecord),
	}
}

// Subscribe attaches sub to a live execution's broadcast set. It reports
// false if no such execution is currently active.
func (s *Service) Subscribe(executionID string, sub Subscriber) bool {
	s.mu.Lock()
	rec, ok := s.active[executionID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	rec.add(sub)
	return true
}

// Unsubscribe detaches sub from executionID's broadcast set, if present.
func (s *Service) Unsubscribe(executionID string, sub Subscriber) {
	s.mu.Lock()
	rec, ok := s.active[executionID]
	s.mu.Unlock()
	if ok {
		rec.remove(sub)
	}
}

// Status reports whether executionID is currently live.
func (s *Service) Status(executionID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.active[executionID]
	if !ok {
		return Status{}
	}
	return Status{Active: true, ScenarioID: rec.scenarioID, StartedAt: rec.startedAt}
}

// ActiveCount reports how many executions are currently in flight, for the
// scenario_active_executions gauge.
func (s *Service) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Execute runs scenarioID to completion against a fresh driver instance,
// broadcasting lifecycle events to initialSubscriber (if any) and anyone
// who calls Subscribe while the run is live, then persists the result.
// Execute implements the ordered protocol of spec.md §4.2 "Execution
// protocol" steps 1-13.
func (s *Service) Execute(ctx context.Context, scenarioID string, opts driver.Options, initialSubscriber Subscriber, runtimeVariables map[string]interface{}) (scenario.ScenarioExecutionResult, error) {
	sc, err := s.scenarios.GetByID(ctx, scenarioID)
	if err != nil {
		return scenario.ScenarioExecutionResult{}, apperrors.NotFound("scenario", scenarioID)
	}

	variables := mergeVariables(sc.InitialVariables, runtimeVariables)

	if opts.BaseURL == "" {
		opts.BaseURL = originOf(sc.URL)
	}
	opts.Headless = true
	opts.ScreenshotOnFailure = true

	execID := newExecutionID()
	runCtx, cancel := context.WithCancel(ctx)
	rec := newExecutionRecord(scenarioID, cancel)
	rec.add(initialSubscriber)

	s.mu.Lock()
	s.active[execID] = rec
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SetActiveExecutions(s.ActiveCount())
	}

	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.active, execID)
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.SetActiveExecutions(s.ActiveCount())
		}
	}()

	rec.broadcast(mustMarshal(execution.Event{
		Type:        execution.EventStarted,
		ExecutionID: execID,
		ScenarioID:  scenarioID,
		TotalSteps:  len(sc.Steps),
		Timestamp:   time.Now(),
	}))

	runner := s.driverFactory(opts)
	if err := runner.Init(runCtx); err != nil {
		rec.broadcast(mustMarshal(execution.Event{Type: execution.EventError, ExecutionID: execID, Error: err.Error(), Timestamp: time.Now()}))
		_ = runner.Close(runCtx)
		return scenario.ScenarioExecutionResult{}, apperrors.Internal("driver init failed", err)
	}

	result, runErr := runner.Run(runCtx, sc, variables)
	closeErr := runner.Close(runCtx)

	if runErr != nil {
		rec.broadcast(mustMarshal(execution.Event{Type: execution.EventError, ExecutionID: execID, Error: runErr.Error(), Timestamp: time.Now()}))
		if s.logger != nil {
			s.logger.LogScenarioRun(ctx, scenarioID, false, runErr)
		}
		return result, apperrors.ExecutionFailed("scenario run", runErr)
	}
	if closeErr != nil && s.logger != nil {
		s.logger.WithContext(ctx).WithError(closeErr).Warn("driver close failed")
	}

	for i := range result.Steps {
		rec.broadcast(mustMarshal(execution.Event{
			Type:        execution.EventStepComplete,
			ExecutionID: execID,
			StepIndex:   result.Steps[i].Index,
			Step:        &result.Steps[i],
			Timestamp:   time.Now(),
		}))
	}

	rec.broadcast(mustMarshal(execution.Event{
		Type:        execution.EventCompleted,
		ExecutionID: execID,
		Result:      &result,
		Timestamp:   time.Now(),
	}))

	persisted := result
	if persisted.Summary.Success {
		persisted.Status = scenario.StatusPassed
	} else {
		persisted.Status = scenario.StatusFailed
	}
	if err := s.scenarios.AddExecutionResult(ctx, persisted); err != nil && s.logger != nil {
		s.logger.WithContext(ctx).WithError(err).Error("persist scenario execution result failed")
	}

	if s.metrics != nil {
		s.metrics.RecordScenarioExecution("scenarioexec", string(persisted.Status))
		for _, st := range result.Steps {
			s.metrics.RecordScenarioStepResult("scenarioexec", string(st.Status))
		}
	}
	if s.logger != nil {
		s.logger.LogScenarioRun(ctx, scenarioID, persisted.Status == scenario.StatusPassed, nil)
	}

	return result, nil
}

func mergeVariables(stored, runtime map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(stored)+len(runtime))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range runtime {
		out[k] = v
	}
	return out
}

// originOf returns the scheme://host origin of rawURL, or "" if rawURL does
// not parse.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

func mustMarshal(e execution.Event) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"error","error":"event marshal failed"}`)
	}
	return b
}
