package proctoring

// EventType is a client-side proctoring signal
type EventType string

const (
	EventFocusLost      EventType = "focus_lost"
	EventTabHidden      EventType = "tab_hidden"
	EventFullscreenExit EventType = "fullscreen_exit"

	// Blocked in the browser; recorded but never counted
	EventCopy        EventType = "copy"
	EventCut         EventType = "cut"
	EventPaste       EventType = "paste"
	EventContextMenu EventType = "context_menu"
	EventKeystroke   EventType = "keystroke"
)

var eventWarnings = map[EventType]string{
	EventFocusLost:      "Warning: Window focus lost!",
	EventTabHidden:      "Warning: Tab switch detected!",
	EventFullscreenExit: "Warning: Fullscreen exited!",
	EventCopy:           "Action blocked: Activity restricted.",
	EventCut:            "Action blocked: Activity restricted.",
	EventPaste:          "Action blocked: Activity restricted.",
	EventContextMenu:    "Action blocked: Activity restricted.",
	EventKeystroke:      "Keyboard input is disabled during the exam.",
}

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	_, ok := eventWarnings[t]
	return ok
}

// Counted reports whether t increments the attempt's violation count
func (t EventType) Counted() bool {
	switch t {
	case EventFocusLost, EventTabHidden, EventFullscreenExit:
		return true
	}
	return false
}

// Warning is the message shown to the student for t
func (t EventType) Warning() string {
	return eventWarnings[t]
}

// Severity buckets used by the admin console
type Severity string

const (
	SeverityClean    Severity = "clean"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// CriticalViolations is the count above which an attempt is flagged critical
const CriticalViolations = 5

func SeverityOf(violations int) Severity {
	switch {
	case violations > CriticalViolations:
		return SeverityCritical
	case violations > 0:
		return SeverityWarning
	default:
		return SeverityClean
	}
}
