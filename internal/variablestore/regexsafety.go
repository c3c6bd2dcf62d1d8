package variablestore

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/scenarioflow/control-plane/internal/apperrors"
)

// maxPatternLength is the hard length cutoff from spec.md §4.3/§8: any
// `matches` pattern at or beyond this length is rejected outright.
const maxPatternLength = 500

// matchTimeout bounds how long a pattern that slipped past the static gate
// may run, as defense in depth behind the gate itself — regexp2 is a
// backtracking engine, not a linear-time one, so this is a real backstop.
const matchTimeout = 250 * time.Millisecond

// nestedQuantifier detects the classic ReDoS shape: a parenthesized group
// whose content contains a repetition operator (+ or *), itself followed by
// another repetition operator (+, *, or {). This is a heuristic, not a full
// ambiguity analysis — it is deliberately conservative about what it calls
// unsafe.
var nestedQuantifier = regexp.MustCompile(`\([^()]*[+*][^()]*\)[+*{]`)

// checkPatternSafety applies the ReDoS gate from spec.md §4.3/§8: patterns
// of length >= 500 or matching the nested-quantifier predicate are rejected
// before they are ever handed to the regex engine.
func checkPatternSafety(pattern string) error {
	if len(pattern) >= maxPatternLength {
		return apperrors.RegexUnsafe(pattern, fmt.Sprintf("pattern length %d exceeds %d-character limit: ReDoS risk", len(pattern), maxPatternLength))
	}
	if nestedQuantifier.MatchString(pattern) {
		return apperrors.RegexUnsafe(pattern, "pattern contains a nested quantifier: ReDoS risk")
	}
	return nil
}

// safeMatch compiles pattern with regexp2 (the backtracking engine behind
// the `matches` operator) only after checkPatternSafety has cleared it, and
// reports whether value matches.
func safeMatch(pattern, value string) (bool, error) {
	if err := checkPatternSafety(pattern); err != nil {
		return false, err
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return false, apperrors.RegexUnsafe(pattern, fmt.Sprintf("invalid pattern: %v", err))
	}
	re.MatchTimeout = matchTimeout
	ok, err := re.MatchString(value)
	if err != nil {
		return false, apperrors.RegexUnsafe(pattern, fmt.Sprintf("pattern evaluation failed: %v", err))
	}
	return ok, nil
}
