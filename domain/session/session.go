// Package session defines the recording session entities produced by the
// browser extension: a Session groups a time-ordered stream of raw UI
// events that the transformer later reduces into a Scenario.
package session

import "time"

// Status is the lifecycle state of a recording session.
type Status string

const (
	StatusRecording Status = "recording"
	StatusStopped   Status = "stopped"
)

// Session is one browser-extension recording run.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	URL       string    `json:"url,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventKind is the raw interaction type recorded by the in-page
// interception scripts.
type EventKind string

const (
	EventNavigation EventKind = "navigation"
	EventClick      EventKind = "click"
	EventBlur       EventKind = "blur"
	EventKeydown    EventKind = "keydown"
	EventHover      EventKind = "hover"
	EventScroll     EventKind = "scroll"
	EventSelect     EventKind = "select"
	EventInput      EventKind = "input"
)

// Target describes the DOM element an event occurred on, in enough detail
// for the selector prioritizer to rank candidate locators.
type Target struct {
	TestID   string            `json:"testId,omitempty"`
	Role     string            `json:"role,omitempty"`
	Name     string            `json:"name,omitempty"`
	AriaLabel string           `json:"ariaLabel,omitempty"`
	Text     string            `json:"text,omitempty"`
	ID       string            `json:"id,omitempty"`
	Tag      string            `json:"tag,omitempty"`
	Classes  []string          `json:"classes,omitempty"`
	XPath    string            `json:"xpath,omitempty"`
	CSSPath  string            `json:"cssPath,omitempty"`
	Depth    int               `json:"depth,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// RawEvent is a single recorded browser interaction. Fields outside Type
// are populated according to Kind; TimestampMs is epoch-milliseconds, the
// wire format required by spec.
type RawEvent struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Type        EventKind `json:"type"`
	TimestampMs int64     `json:"timestamp"`
	URL         string    `json:"url,omitempty"`
	Target      *Target   `json:"target,omitempty"`
	Value       string    `json:"value,omitempty"`
	Key         string    `json:"key,omitempty"`
	IsSensitive bool      `json:"isSensitive,omitempty"`
}

// Timestamp returns the event's recorded time as a time.Time.
func (e RawEvent) Timestamp() time.Time {
	return time.UnixMilli(e.TimestampMs)
}
