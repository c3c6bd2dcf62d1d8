package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scenarioflow/control-plane/domain/scenario"
)

// StepOutcome overrides how Fake resolves one recorded step, keyed by
// scenario id + step index. Tests populate this map to script specific
// failures without needing a real browser.
type StepOutcome struct {
	Fail        bool
	Error       string
	APIResponse string // raw JSON body; parsed with gjson into the step's APIResponse when non-empty
}

// Fake is a deterministic in-memory ScenarioRunner. Every step succeeds
// unless overridden for its (scenarioID, stepIndex) pair, and step
// durations are synthetic rather than wall-clock, which keeps tests
// reproducible. It fulfills the same ScenarioRunner capability a headless
// driver would (spec.md §6).
type Fake struct {
	Opts Options

	// Outcomes overrides specific steps by "<scenarioID>#<index>".
	Outcomes map[string]StepOutcome
	// APICalls, keyed by scenario id, are copied verbatim into the result
	// of a run of that scenario, used to seed "lastApiResponse" extraction
	// tests.
	APICalls map[string][]scenario.APICall

	closed bool
}

// NewFake constructs a Fake runner with the given construction options.
func NewFake(opts Options) ScenarioRunner {
	return &Fake{Opts: opts}
}

// Init satisfies ScenarioRunner; the fake has no external resource to
// acquire.
func (f *Fake) Init(ctx context.Context) error {
	return nil
}

// Close satisfies ScenarioRunner.
func (f *Fake) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func outcomeKey(scenarioID string, index int) string {
	return fmt.Sprintf("%s#%d", scenarioID, index)
}

// Run executes every step of s in order, honoring any scripted Outcomes,
// and reports the aggregate summary the ScenarioRunner capability promises.
func (f *Fake) Run(ctx context.Context, s scenario.Scenario, variables map[string]interface{}) (scenario.ScenarioExecutionResult, error) {
	started := time.Now()
	result := scenario.ScenarioExecutionResult{
		ScenarioID: s.ID,
		StartedAt:  started,
		APICalls:   f.APICalls[s.ID],
	}

	passed, failed, skipped := 0, 0, 0
	for i, step := range s.Steps {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		sr := scenario.StepResult{
			StepID:     step.ID,
			Index:      i,
			DurationMs: 5,
		}

		outcome, scripted := f.Outcomes[outcomeKey(s.ID, i)]
		switch {
		case scripted && outcome.Fail:
			if step.Optional {
				sr.Status = scenario.StatusSkipped
				skipped++
			} else {
				sr.Status = scenario.StatusFailed
				sr.Error = &scenario.StepError{Message: outcome.Error}
				failed++
			}
		default:
			sr.Status = scenario.StatusPassed
			passed++
		}

		if scripted && outcome.APIResponse != "" {
			var body interface{}
			if parsed := gjson.Parse(outcome.APIResponse); parsed.Exists() {
				body = parsed.Value()
			}
			sr.APIResponse = body
		}

		result.Steps = append(result.Steps, sr)

		if sr.Status == scenario.StatusFailed && !f.Opts.ContinueOnFailure {
			for j := i + 1; j < len(s.Steps); j++ {
				result.Steps = append(result.Steps, scenario.StepResult{
					StepID: s.Steps[j].ID,
					Index:  j,
					Status: scenario.StatusSkipped,
				})
				skipped++
			}
			break
		}
	}

	finished := time.Now()
	result.Summary = scenario.ScenarioSummary{
		TotalSteps: len(result.Steps),
		Passed:     passed,
		Failed:     failed,
		Skipped:    skipped,
		DurationMs: finished.Sub(started).Milliseconds(),
		Success:    failed == 0,
	}
	if result.Summary.Success {
		result.Status = scenario.StatusPassed
	} else {
		result.Status = scenario.StatusFailed
	}
	result.ExecutedAt = finished
	return result, nil
}
