package scenarioexec

import (
	"crypto/rand"
)

const execIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newExecutionID generates an id of the form "exec-<12 random chars>"
// (spec.md §4.2 step 4).
func newExecutionID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on the standard reader does not fail in
		// practice; fall back to a fixed-but-unique-enough pattern rather
		// than panicking the execution path.
		for i := range buf {
			buf[i] = byte(i)
		}
	}
	out := make([]byte, 12)
	for i, b := range buf {
		out[i] = execIDAlphabet[int(b)%len(execIDAlphabet)]
	}
	return "exec-" + string(out)
}
