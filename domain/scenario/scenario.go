// Package scenario defines the recorded-interaction entities that a flow
// node can run: a Scenario is an ordered list of Steps, each targeting an
// element through a prioritized list of Selectors.
package scenario

import "time"

// StepKind is the canonical action a Step performs.
type StepKind string

const (
	StepNavigate      StepKind = "navigate"
	StepClick         StepKind = "click"
	StepType          StepKind = "type"
	StepKeypress      StepKind = "keypress"
	StepHover         StepKind = "hover"
	StepScroll        StepKind = "scroll"
	StepSelect        StepKind = "select"
	StepWait          StepKind = "wait"
	StepSnapshotDom   StepKind = "snapshotDom"
	StepAssertElement StepKind = "assertElement"
	StepAssertApi     StepKind = "assertApi"
)

// SelectorStrategy orders how a Selector should be resolved against the DOM.
// TestID and Role are preferred because they survive layout churn; CSS and
// XPath are fallbacks. Priority order: testId > role > css > xpath.
type SelectorStrategy string

const (
	SelectorTestID SelectorStrategy = "testId"
	SelectorRole   SelectorStrategy = "role"
	SelectorCSS    SelectorStrategy = "css"
	SelectorXPath  SelectorStrategy = "xpath"
)

// Selector is one candidate way to locate an element. Role selectors
// additionally carry an optional accessible Name. Score is populated by the
// selector prioritizer and is not meaningful until then.
type Selector struct {
	Strategy SelectorStrategy `json:"strategy"`
	Value    string           `json:"value"`
	Role     string           `json:"role,omitempty"`
	Name     string           `json:"name,omitempty"`
	Score    int              `json:"score,omitempty"`
}

// Step is a single recorded interaction. Selector is the candidate chosen
// for this step (typically the highest-ranked of the Candidates list);
// Candidates preserves the full fallback chain for a runner willing to try
// more than one. Value holds the typed text, key name, option value, or
// wait duration depending on Kind.
type Step struct {
	ID         string            `json:"id,omitempty"`
	Kind       StepKind          `json:"kind"`
	Selector   *Selector         `json:"selector,omitempty"`
	Candidates []Selector        `json:"candidates,omitempty"`
	Value      string            `json:"value,omitempty"`
	Sensitive  bool              `json:"sensitive,omitempty"`
	URL        string            `json:"url,omitempty"`
	Key        string            `json:"key,omitempty"`
	TimeoutMs  int               `json:"timeoutMs,omitempty"`
	Optional   bool              `json:"optional,omitempty"`
	Assertion  *Assertion        `json:"assertion,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Assertion describes the expected condition for assertElement/assertApi
// steps.
type Assertion struct {
	// Operator is one of equals, contains, exists, matches, statusCode.
	Operator string `json:"operator"`
	Expected string `json:"expected,omitempty"`
	// Path is a JSONPath applied to an API response body ("$.data.id").
	Path string `json:"path,omitempty"`
}

// Scenario is a named, ordered sequence of Steps recorded against a single
// flow, replayable independently of the flow that produced it.
type Scenario struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name,omitempty"`
	URL              string                 `json:"url,omitempty"`
	Viewport         *Viewport              `json:"viewport,omitempty"`
	Steps            []Step                 `json:"steps"`
	SetupSteps       []Step                 `json:"setupSteps,omitempty"`
	TeardownSteps    []Step                 `json:"teardownSteps,omitempty"`
	InitialVariables map[string]interface{} `json:"initialVariables,omitempty"`
	ASTSchemaVersion int                    `json:"astSchemaVersion"`
	Tags             []string               `json:"tags,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// Viewport is the browser window size a scenario was recorded against.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsEmpty reports whether the scenario has no steps to run.
func (s Scenario) IsEmpty() bool {
	return len(s.Steps) == 0
}

// Status is the terminal outcome of a single step or an entire scenario run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepError carries a failure message and optional stack trace.
type StepError struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// APICall is a network request observed by the driver while running a step,
// used by the engine to populate lastApiResponse for extractVariable nodes.
type APICall struct {
	Method       string      `json:"method"`
	URL          string      `json:"url"`
	StatusCode   int         `json:"statusCode"`
	ResponseBody interface{} `json:"responseBody"`
}

// StepResult is the outcome of running a single Step.
type StepResult struct {
	StepID        string      `json:"stepId,omitempty"`
	Index         int         `json:"index"`
	Status        Status      `json:"status"`
	DurationMs    int64       `json:"duration"`
	Error         *StepError  `json:"error,omitempty"`
	ScreenshotRef string      `json:"screenshotRef,omitempty"`
	SnapshotRef   string      `json:"snapshotRef,omitempty"`
	APIResponse   interface{} `json:"apiResponse,omitempty"`
}

// Success reports whether the step passed.
func (r StepResult) Success() bool { return r.Status == StatusPassed }

// Skipped reports whether the step was skipped rather than run.
func (r StepResult) Skipped() bool { return r.Status == StatusSkipped }

// ScenarioSummary aggregates step counts and duration for a single run,
// mirroring the ScenarioRunner capability's result shape (spec.md §6).
type ScenarioSummary struct {
	TotalSteps int           `json:"totalSteps"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	DurationMs int64         `json:"duration"`
	Success    bool          `json:"success"`
}

// ScenarioExecutionResult aggregates the StepResults of a single run.
type ScenarioExecutionResult struct {
	ScenarioID  string          `json:"scenarioId"`
	Status      Status          `json:"status"`
	Summary     ScenarioSummary `json:"summary"`
	Steps       []StepResult    `json:"stepResults"`
	APICalls    []APICall       `json:"apiCalls,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	ExecutedAt  time.Time       `json:"executedAt"`
}

// Success reports whether the run passed outright (no failed steps).
func (r ScenarioExecutionResult) Success() bool {
	return r.Summary.Success
}

// FailedSteps returns the subset of Steps that did not succeed.
func (r ScenarioExecutionResult) FailedSteps() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			out = append(out, s)
		}
	}
	return out
}

// LastAPIResponse returns the response body of the most recently observed
// API call, or nil if none were recorded. This is the "last-API-response"
// semantics spec.md's glossary and §4.1 "extractVariable" rely on.
func (r ScenarioExecutionResult) LastAPIResponse() (interface{}, bool) {
	if len(r.APICalls) == 0 {
		return nil, false
	}
	return r.APICalls[len(r.APICalls)-1].ResponseBody, true
}
