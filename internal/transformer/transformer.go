// Package transformer reduces a time-ordered sequence of raw browser
// interaction events into a canonical Step sequence (spec.md §4.4): the
// Event-to-AST Transformer.
package transformer

import (
	"net/url"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/domain/session"
	"github.com/scenarioflow/control-plane/internal/selector"
)

// Options tunes a single Transform call.
type Options struct {
	// SelectorOptions is forwarded to the selector prioritizer for every
	// event that targets a DOM element.
	SelectorOptions selector.Options
}

// Transform reduces events, in timestamp order as given, into a canonical
// Step sequence: one step per reduction rule in spec.md §4.4, followed by a
// single left-to-right pass that merges adjacent same-selector `type`
// steps.
func Transform(events []session.RawEvent, opts Options) []scenario.Step {
	steps := make([]scenario.Step, 0, len(events))
	for _, e := range events {
		step, ok := reduce(e, opts)
		if !ok {
			continue
		}
		steps = append(steps, step)
	}
	return mergeAdjacentTypeSteps(steps)
}

func reduce(e session.RawEvent, opts Options) (scenario.Step, bool) {
	switch e.Type {
	case session.EventNavigation:
		return scenario.Step{Kind: scenario.StepNavigate, URL: navigateURL(e)}, true
	case session.EventClick:
		return withSelector(scenario.Step{Kind: scenario.StepClick}, e, opts), true
	case session.EventBlur:
		if e.Value == "" {
			return scenario.Step{}, false
		}
		return withSelector(scenario.Step{Kind: scenario.StepType, Value: e.Value, Sensitive: e.IsSensitive}, e, opts), true
	case session.EventKeydown:
		if e.Key != "Enter" {
			return scenario.Step{}, false
		}
		return withSelector(scenario.Step{Kind: scenario.StepKeypress, Key: "Enter"}, e, opts), true
	case session.EventHover:
		return withSelector(scenario.Step{Kind: scenario.StepHover}, e, opts), true
	case session.EventScroll:
		return withSelector(scenario.Step{Kind: scenario.StepScroll, Value: e.Value}, e, opts), true
	case session.EventSelect:
		return withSelector(scenario.Step{Kind: scenario.StepSelect, Value: e.Value}, e, opts), true
	case session.EventInput:
		// Intermediate input events are never emitted as steps; the
		// trailing blur carries the field's final value.
		return scenario.Step{}, false
	default:
		return scenario.Step{}, false
	}
}

// navigateURL reduces any e.URL that carries a host to its path plus query
// and fragment ("/" when all three are empty). Origins are not compared, so
// a cross-origin URL is reduced to its path as well. A URL without a host,
// or one that does not parse, is returned unchanged.
func navigateURL(e session.RawEvent) string {
	if e.URL == "" {
		return ""
	}
	parsed, err := url.Parse(e.URL)
	if err != nil {
		return e.URL
	}
	if parsed.Host == "" {
		return e.URL
	}
	// The event carries no originating page to compare against, so every
	// absolute URL becomes the relative path plus query/fragment.
	rel := parsed.Path
	if parsed.RawQuery != "" {
		rel += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		rel += "#" + parsed.Fragment
	}
	if rel == "" {
		rel = "/"
	}
	return rel
}

func withSelector(step scenario.Step, e session.RawEvent, opts Options) scenario.Step {
	if e.Target == nil {
		return step
	}
	candidates := selector.Rank(*e.Target, opts.SelectorOptions)
	if len(candidates) == 0 {
		return step
	}
	step.Selector = &candidates[0]
	step.Candidates = candidates
	return step
}

// selectorKey identifies "the same selector" for merge purposes: strategy +
// value, which is stable regardless of score.
func selectorKey(s *scenario.Selector) string {
	if s == nil {
		return ""
	}
	return string(s.Strategy) + "|" + s.Value
}

// mergeAdjacentTypeSteps collapses adjacent `type` steps against the same
// selector into one, keeping the later value, applied once left to right
// (spec.md §4.4 "Type-step merging").
func mergeAdjacentTypeSteps(steps []scenario.Step) []scenario.Step {
	out := make([]scenario.Step, 0, len(steps))
	for _, step := range steps {
		if step.Kind == scenario.StepType && len(out) > 0 {
			last := &out[len(out)-1]
			if last.Kind == scenario.StepType && selectorKey(last.Selector) == selectorKey(step.Selector) {
				last.Value = step.Value
				last.Sensitive = step.Sensitive
				continue
			}
		}
		out = append(out, step)
	}
	return out
}
