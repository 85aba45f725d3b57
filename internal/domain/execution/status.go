package execution

import "encoding/json"

// Status represents the execution state of a task or operation. It is a plain
// value type; transition legality is enforced by the hook pipeline, not by
// Status itself.
type Status string

const (
	// StatusPending indicates a task is created but not yet started.
	StatusPending Status = "PENDING"

	// StatusRunning indicates a task is currently executing its run hook.
	StatusRunning Status = "RUNNING"

	// StatusSuccess indicates a task completed without error.
	StatusSuccess Status = "SUCCESS"

	// StatusFailed indicates a task encountered an error and did not complete.
	StatusFailed Status = "FAILED"
)

// String returns the uppercase token representation of the Status.
func (s Status) String() string { return string(s) }

// IsTerminal returns true once a task can no longer make progress.
func (s Status) IsTerminal() bool { return s == StatusSuccess || s == StatusFailed }

// ParseStatus converts a string token to a Status. Decoding is deliberately
// lenient: unrecognized input maps to StatusPending rather than an error, so
// callers round-tripping through external systems never fail on status alone.
func ParseStatus(s string) Status {
	switch s {
	case "RUNNING":
		return StatusRunning
	case "SUCCESS":
		return StatusSuccess
	case "FAILED":
		return StatusFailed
	default:
		return StatusPending
	}
}

// MarshalJSON serializes the Status as its uppercase string token. The zero
// value serializes as PENDING.
func (s Status) MarshalJSON() ([]byte, error) {
	if s == "" {
		s = StatusPending
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON decodes a Status from JSON. Non-string or unrecognized values
// decode to StatusPending without error, matching ParseStatus leniency.
func (s *Status) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		*s = StatusPending
		return nil
	}
	*s = ParseStatus(token)
	return nil
}
