package variablestore

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches "{{ key }}" with tolerant internal whitespace.
// These are the only delimiters the package recognizes.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// InterpolateOptions controls a single Interpolate call.
type InterpolateOptions struct {
	// ThrowOnMissing makes an unresolved key an error instead of leaving the
	// placeholder text intact.
	ThrowOnMissing bool
}

// Interpolate scans template for "{{ key }}" placeholders and replaces each
// with the store's value at that key (rendered per toJSONString: composite
// values are JSON-stringified, scalars via their natural string form).
// Missing keys leave the placeholder untouched unless opts.ThrowOnMissing.
func (s *Store) Interpolate(template string, opts InterpolateOptions) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}
		sub := placeholderPattern.FindStringSubmatch(match)
		key := strings.TrimSpace(sub[1])
		v, ok := s.Get(key)
		if !ok {
			if opts.ThrowOnMissing {
				firstErr = fmt.Errorf("interpolation: missing variable %q", key)
			}
			return match
		}
		return toJSONString(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// IsSinglePlaceholder reports whether template is exactly one "{{ key }}"
// expression with nothing else around it, and returns the trimmed key.
// Condition operand resolution uses this to decide whether an operand
// string refers to a variable rather than a literal (spec.md §4.3).
func IsSinglePlaceholder(template string) (key string, ok bool) {
	trimmed := strings.TrimSpace(template)
	m := placeholderPattern.FindStringSubmatch(trimmed)
	if m == nil || m[0] != trimmed {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
