package variablestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New(nil)
	s.Set("user.name", "ada")
	s.Set("user.age", 36.0)

	v, ok := s.Get("user.name")
	require.True(t, ok)
	assert.Equal(t, "ada", v)

	v, ok = s.Get("user.age")
	require.True(t, ok)
	assert.Equal(t, 36.0, v)

	_, ok = s.Get("user.missing")
	assert.False(t, ok)
}

func TestSetIndexesIntoArrays(t *testing.T) {
	s := New(map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
	})
	s.Set("items.1", "z")

	v, ok := s.Get("items.1")
	require.True(t, ok)
	assert.Equal(t, "z", v)
}

func TestSnapshotRestoreIsolatesState(t *testing.T) {
	s := New(map[string]interface{}{"count": 1.0})
	snap := s.Snapshot()

	s.Set("count", 2.0)
	v, _ := s.Get("count")
	assert.Equal(t, 2.0, v)

	s.Restore(snap)
	v, _ = s.Get("count")
	assert.Equal(t, 1.0, v)
}

func TestAllReturnsDeepCopyNotAlias(t *testing.T) {
	s := New(map[string]interface{}{
		"obj": map[string]interface{}{"nested": "value"},
	})
	snap := s.All()
	nested := snap["obj"].(map[string]interface{})
	nested["nested"] = "mutated"

	v, _ := s.Get("obj.nested")
	assert.Equal(t, "value", v, "mutating a snapshot must not affect the store")
}

func TestInterpolateSubstitutesKnownVariables(t *testing.T) {
	s := New(map[string]interface{}{"name": "world"})
	out, err := s.Interpolate("hello {{ name }}!", InterpolateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello world!", out)
}

func TestInterpolateLeavesUnknownPlaceholderByDefault(t *testing.T) {
	s := New(nil)
	out, err := s.Interpolate("hello {{ missing }}", InterpolateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello {{ missing }}", out)
}

func TestInterpolateThrowsOnMissingWhenConfigured(t *testing.T) {
	s := New(nil)
	_, err := s.Interpolate("{{ missing }}", InterpolateOptions{ThrowOnMissing: true})
	assert.Error(t, err)
}

func TestRegexSafetyGateRejectsLongPattern(t *testing.T) {
	pattern := ""
	for i := 0; i < 600; i++ {
		pattern += "a"
	}
	_, err := safeMatch(pattern, "aaa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ReDoS risk")
}

func TestRegexSafetyGateRejectsNestedQuantifier(t *testing.T) {
	_, err := safeMatch(`(a+)+$`, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ReDoS risk")
}

func TestRegexSafetyGateRejectsNestedQuantifierWithBraceRepetition(t *testing.T) {
	_, err := safeMatch(`(a+){30}$`, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ReDoS risk")
}

func TestRegexSafetyGateAllowsSafePattern(t *testing.T) {
	ok, err := safeMatch(`^[a-z]+@[a-z]+\.com$`, "user@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
