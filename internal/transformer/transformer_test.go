package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/domain/session"
)

func TestTransform_NavigationEmitsNavigateStep(t *testing.T) {
	events := []session.RawEvent{
		{Type: session.EventNavigation, URL: "https://app.test/signup"},
	}
	steps := Transform(events, Options{})
	require.Len(t, steps, 1)
	assert.Equal(t, scenario.StepNavigate, steps[0].Kind)
}

func TestTransform_IntermediateInputEventsAreDropped(t *testing.T) {
	target := &session.Target{TestID: "email"}
	events := []session.RawEvent{
		{Type: session.EventInput, Target: target, Value: "a"},
		{Type: session.EventInput, Target: target, Value: "ad"},
		{Type: session.EventBlur, Target: target, Value: "ada@example.com"},
	}
	steps := Transform(events, Options{})
	require.Len(t, steps, 1, "only the trailing blur should become a step")
	assert.Equal(t, scenario.StepType, steps[0].Kind)
	assert.Equal(t, "ada@example.com", steps[0].Value)
}

// Scenario 6: adjacent type-steps against the same selector are merged into
// one, keeping the later value.
func TestTransform_AdjacentTypeStepsAgainstSameSelectorMerge(t *testing.T) {
	target := &session.Target{TestID: "search-box"}
	events := []session.RawEvent{
		{Type: session.EventBlur, Target: target, Value: "go"},
		{Type: session.EventBlur, Target: target, Value: "golang"},
	}
	steps := Transform(events, Options{})
	require.Len(t, steps, 1, "adjacent type steps on the same selector must merge")
	assert.Equal(t, "golang", steps[0].Value)
}

func TestTransform_TypeStepsAgainstDifferentSelectorsDoNotMerge(t *testing.T) {
	events := []session.RawEvent{
		{Type: session.EventBlur, Target: &session.Target{TestID: "first-name"}, Value: "ada"},
		{Type: session.EventBlur, Target: &session.Target{TestID: "last-name"}, Value: "lovelace"},
	}
	steps := Transform(events, Options{})
	require.Len(t, steps, 2)
	assert.Equal(t, "ada", steps[0].Value)
	assert.Equal(t, "lovelace", steps[1].Value)
}

func TestTransform_NonEnterKeydownIsDropped(t *testing.T) {
	events := []session.RawEvent{
		{Type: session.EventKeydown, Key: "Tab"},
		{Type: session.EventKeydown, Key: "Enter"},
	}
	steps := Transform(events, Options{})
	require.Len(t, steps, 1)
	assert.Equal(t, scenario.StepKeypress, steps[0].Kind)
	assert.Equal(t, "Enter", steps[0].Key)
}

func TestTransform_ClickCarriesRankedSelectorCandidates(t *testing.T) {
	events := []session.RawEvent{
		{Type: session.EventClick, Target: &session.Target{TestID: "submit-button", CSSPath: "div > button"}},
	}
	steps := Transform(events, Options{})
	require.Len(t, steps, 1)
	require.NotNil(t, steps[0].Selector)
	assert.Equal(t, scenario.SelectorTestID, steps[0].Selector.Strategy)
	assert.True(t, len(steps[0].Candidates) >= 1)
}
