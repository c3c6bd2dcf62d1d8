package variablestore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/scenarioflow/control-plane/domain/flowgraph"
)

// ConditionResult is the outcome of evaluating a single Condition.
type ConditionResult struct {
	Result     bool
	LeftValue  interface{}
	RightValue interface{}
	Err        error
}

// resolveOperand implements spec.md §4.3 condition operand resolution: a
// "{{ expr }}" string is looked up in the store; otherwise the raw string is
// JSON-parsed (so numeric/boolean/array literals parse to their native
// type); anything that fails to parse is kept as a plain string.
func (s *Store) resolveOperand(raw string) interface{} {
	if key, ok := IsSinglePlaceholder(raw); ok {
		v, _ := s.Get(key)
		return v
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed
	}
	return raw
}

// EvaluateCondition evaluates c against the store's bindings per spec.md
// §4.3. Any error encountered (including a RegexUnsafe rejection) is
// returned both on Err and as the function's error.
func (s *Store) EvaluateCondition(c flowgraph.Condition) (ConditionResult, error) {
	left := s.resolveOperand(c.Left)

	// exists/isEmpty are unary; Right is never resolved or compared.
	switch c.Operator {
	case flowgraph.OpExists:
		return ConditionResult{Result: left != nil, LeftValue: left}, nil
	case flowgraph.OpIsEmpty:
		return ConditionResult{Result: isEmptyValue(left), LeftValue: left}, nil
	}

	right := s.resolveOperand(c.Right)
	result := ConditionResult{LeftValue: left, RightValue: right}

	var err error
	switch c.Operator {
	case flowgraph.OpEquals:
		result.Result = deepEqual(left, right)
	case flowgraph.OpNotEquals:
		result.Result = !deepEqual(left, right)
	case flowgraph.OpGreaterThan, flowgraph.OpGreaterEq, flowgraph.OpLessThan, flowgraph.OpLessEq:
		result.Result, err = compareNumeric(c.Operator, left, right)
	case flowgraph.OpContains:
		result.Result = strings.Contains(toComparableString(left), toComparableString(right))
	case flowgraph.OpStartsWith:
		result.Result = strings.HasPrefix(toComparableString(left), toComparableString(right))
	case flowgraph.OpEndsWith:
		result.Result = strings.HasSuffix(toComparableString(left), toComparableString(right))
	case flowgraph.OpMatches:
		result.Result, err = safeMatch(toComparableString(right), toComparableString(left))
	default:
		err = fmt.Errorf("unknown condition operator %q", c.Operator)
	}

	if err != nil {
		result.Err = err
		return result, err
	}
	return result, nil
}

func compareNumeric(op flowgraph.ConditionOperator, left, right interface{}) (bool, error) {
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	if !lok || !rok {
		return false, fmt.Errorf("operands not numeric: %v, %v", left, right)
	}
	switch op {
	case flowgraph.OpGreaterThan:
		return l > r, nil
	case flowgraph.OpGreaterEq:
		return l >= r, nil
	case flowgraph.OpLessThan:
		return l < r, nil
	case flowgraph.OpLessEq:
		return l <= r, nil
	}
	return false, fmt.Errorf("not a numeric operator: %s", op)
}

func toFloat(v interface{}) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case int:
		return float64(vv), true
	case string:
		f, err := strconv.ParseFloat(vv, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toComparableString(v interface{}) string {
	return toJSONString(v)
}

func deepEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

func isEmptyValue(v interface{}) bool {
	switch vv := v.(type) {
	case nil:
		return true
	case string:
		return vv == ""
	case []interface{}:
		return len(vv) == 0
	case map[string]interface{}:
		return len(vv) == 0
	default:
		return false
	}
}

// CompoundLogic selects how EvaluateCompound folds its sub-conditions.
type CompoundLogic string

const (
	LogicAnd CompoundLogic = "and"
	LogicOr  CompoundLogic = "or"
)

// CompoundCondition is a boolean combination of Conditions.
type CompoundCondition struct {
	Logic      CompoundLogic
	Conditions []flowgraph.Condition
}

// EvaluateCompound evaluates every condition in cc (policy: evaluate all
// eagerly to surface every error, rather than short-circuit — see spec.md
// §4.3/§9 "Open questions"), then folds the per-condition booleans with
// cc.Logic. The first error encountered across all sub-conditions is
// returned.
func (s *Store) EvaluateCompound(cc CompoundCondition) (bool, error) {
	var firstErr error
	results := make([]bool, len(cc.Conditions))
	for i, c := range cc.Conditions {
		r, err := s.EvaluateCondition(c)
		results[i] = r.Result
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return false, firstErr
	}
	switch cc.Logic {
	case LogicOr:
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	default: // LogicAnd
		for _, r := range results {
			if !r {
				return false, nil
			}
		}
		return true, nil
	}
}
