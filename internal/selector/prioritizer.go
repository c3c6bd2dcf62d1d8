// Package selector implements the multi-strategy selector ranking spec.md
// §4.5 describes: given an element's observable attributes, produce a
// ranked list of locator candidates ordered by strategy priority and then
// by a stability score.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/domain/session"
)

// baseScores is the primary per-strategy scoring table (spec.md §4.5).
var baseScores = map[scenario.SelectorStrategy]int{
	scenario.SelectorTestID: 95,
	scenario.SelectorRole:   80,
	scenario.SelectorCSS:    30,
	scenario.SelectorXPath:  20,
}

// strategyPriority orders candidates testId > role > css > xpath,
// independent of score, per spec.md §4.5 "Ranking".
var strategyPriority = map[scenario.SelectorStrategy]int{
	scenario.SelectorTestID: 0,
	scenario.SelectorRole:   1,
	scenario.SelectorCSS:    2,
	scenario.SelectorXPath:  3,
}

// candidate is a selector before ranking, carrying the flags the scoring
// formula needs.
type candidate struct {
	sel        scenario.Selector
	baseScore  int
	isUnique   bool
	isReadable bool
}

// Options tunes a single ranking call.
type Options struct {
	// MaxFallbacks caps the length of the returned candidate list beyond
	// the top pick. Zero means the spec default of 2.
	MaxFallbacks int
	// RequireUnique filters the result to candidates believed unique.
	RequireUnique bool
}

func (o Options) maxFallbacks() int {
	if o.MaxFallbacks > 0 {
		return o.MaxFallbacks
	}
	return 2
}

// Rank produces a priority-ordered, scored list of selector candidates for
// target. At most one candidate is emitted per strategy (spec.md §4.5), and
// the result is capped to 1 + opts.maxFallbacks entries.
func Rank(target session.Target, opts Options) []scenario.Selector {
	var candidates []candidate

	if c, ok := testIDCandidate(target); ok {
		candidates = append(candidates, c)
	}
	if c, ok := roleCandidate(target); ok {
		candidates = append(candidates, c)
	}
	if c, ok := cssCandidate(target); ok {
		candidates = append(candidates, c)
	}
	if c, ok := xpathCandidate(target); ok {
		candidates = append(candidates, c)
	}

	for i := range candidates {
		candidates[i].sel.Score = score(candidates[i])
	}

	sortCandidates(candidates)

	if opts.RequireUnique {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.isUnique {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	limit := 1 + opts.maxFallbacks()
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}

	out := make([]scenario.Selector, len(candidates))
	for i, c := range candidates {
		out[i] = c.sel
	}
	return out
}

func testIDCandidate(t session.Target) (candidate, bool) {
	if t.TestID == "" {
		return candidate{}, false
	}
	return candidate{
		sel:        scenario.Selector{Strategy: scenario.SelectorTestID, Value: fmt.Sprintf(`[data-testid="%s"]`, t.TestID)},
		baseScore:  baseScores[scenario.SelectorTestID],
		isUnique:   true,
		isReadable: isReadableToken(t.TestID),
	}, true
}

func roleCandidate(t session.Target) (candidate, bool) {
	if t.Role == "" {
		return candidate{}, false
	}
	name := t.Name
	if name == "" {
		name = t.AriaLabel
	}
	sel := scenario.Selector{Strategy: scenario.SelectorRole, Value: t.Role, Role: t.Role, Name: name}
	return candidate{
		sel:        sel,
		baseScore:  baseScores[scenario.SelectorRole],
		isUnique:   name != "",
		isReadable: isReadableToken(name) || isReadableToken(t.Role),
	}, true
}

func cssCandidate(t session.Target) (candidate, bool) {
	if t.CSSPath != "" {
		return candidate{
			sel:        scenario.Selector{Strategy: scenario.SelectorCSS, Value: t.CSSPath},
			baseScore:  baseScores[scenario.SelectorCSS],
			isUnique:   t.ID != "" && strings.Contains(t.CSSPath, "#"+t.ID),
			isReadable: isReadableToken(t.ID) || len(t.Classes) > 0,
		}, true
	}
	if t.ID != "" {
		return candidate{
			sel:        scenario.Selector{Strategy: scenario.SelectorCSS, Value: "#" + t.ID},
			baseScore:  baseScores[scenario.SelectorCSS],
			isUnique:   true,
			isReadable: isReadableToken(t.ID),
		}, true
	}
	if len(t.Classes) > 0 {
		css := "." + strings.Join(t.Classes, ".")
		return candidate{
			sel:        scenario.Selector{Strategy: scenario.SelectorCSS, Value: css},
			baseScore:  baseScores[scenario.SelectorCSS],
			isUnique:   false,
			isReadable: true,
		}, true
	}
	return candidate{}, false
}

func xpathCandidate(t session.Target) (candidate, bool) {
	if t.XPath == "" {
		return candidate{}, false
	}
	return candidate{
		sel:        scenario.Selector{Strategy: scenario.SelectorXPath, Value: t.XPath},
		baseScore:  baseScores[scenario.SelectorXPath],
		isUnique:   false,
		isReadable: false,
	}, true
}

// isReadableToken reports whether s looks like a human-chosen name rather
// than a generated hash/id (heuristic: contains a letter and is not all
// hex digits of length >= 8).
func isReadableToken(s string) bool {
	if s == "" {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	if len(s) >= 8 && isLikelyHash(s) {
		return false
	}
	return true
}

func isLikelyHash(s string) bool {
	for _, r := range s {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') || r == '-'
		if !isHex {
			return false
		}
	}
	return true
}

// score applies spec.md §4.5's penalty/bonus formula and clamps to
// [0, 100].
func score(c candidate) int {
	s := c.baseScore
	if c.isUnique {
		s += 5
	}
	if c.isReadable {
		s += 5
	}

	value := c.sel.Value
	if strings.Contains(value, ":nth-child") {
		s -= 20
	}
	if strings.Contains(value, ":nth-of-type") {
		s -= 15
	}

	depth := strings.Count(value, ">") + 1
	if depth > 3 {
		s -= 15
	}
	if depth > 5 {
		s -= 10
	}

	if classTokens := strings.Count(value, "."); classTokens > 2 {
		s -= 10
	}

	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return s
}

// sortCandidates orders by strategy priority first, then score descending,
// stable on ties (spec.md §4.5 "Ranking").
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		pa, pb := strategyPriority[a.sel.Strategy], strategyPriority[b.sel.Strategy]
		if pa != pb {
			return pa < pb
		}
		return a.sel.Score > b.sel.Score
	})
}
