package scenarioexec

// Subscriber is a connected client receiving live execution events for one
// execution id (spec.md glossary). Implementations expose only these two
// methods — a typed registry keyed by execution id replaces the teacher's
// open-coded, identity-driven subscriber sets (spec.md §9 Design Notes).
type Subscriber interface {
	Send(payload []byte) error
	IsOpen() bool
}
