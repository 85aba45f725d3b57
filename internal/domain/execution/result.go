package execution

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Result is the structured, mergeable record of a unit of work's outcome.
// Hooks produce partial Results which the pipeline folds into the task's
// accumulated Result via Merge.
type Result struct {
	id      uuid.UUID
	retcode uint16
	stdout  *string
	stderr  *string
	retval  map[string]any
}

// ResultOption configures a Result during construction.
type ResultOption func(*Result)

// WithUUID sets the identifier correlating the result to its originating task.
func WithUUID(id uuid.UUID) ResultOption {
	return func(r *Result) { r.id = id }
}

// WithRetcode sets the return code.
func WithRetcode(code uint16) ResultOption {
	return func(r *Result) { r.retcode = code }
}

// WithStdout sets the human-readable success payload.
func WithStdout(out string) ResultOption {
	return func(r *Result) { r.stdout = &out }
}

// WithStderr sets the human-readable failure payload.
func WithStderr(errOut string) ResultOption {
	return func(r *Result) { r.stderr = &errOut }
}

// WithRetval seeds the return value map. The map is copied.
func WithRetval(retval map[string]any) ResultOption {
	return func(r *Result) {
		for k, v := range retval {
			r.retval[k] = v
		}
	}
}

// NewResult creates a Result with a fresh identifier, return code 0, no
// output streams, and an empty return value map, then applies the options.
func NewResult(opts ...ResultOption) Result {
	r := Result{
		id:     uuid.New(),
		retval: make(map[string]any),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// ReconstructResult creates a Result from persisted data. This should only be
// used by storage adapters when reconstructing from external representations.
func ReconstructResult(id uuid.UUID, retcode uint16, stdout, stderr *string, retval map[string]any) Result {
	r := Result{
		id:      id,
		retcode: retcode,
		retval:  make(map[string]any, len(retval)),
	}
	if stdout != nil {
		v := *stdout
		r.stdout = &v
	}
	if stderr != nil {
		v := *stderr
		r.stderr = &v
	}
	for k, v := range retval {
		r.retval[k] = v
	}
	return r
}

// UUID returns the identifier correlating the result to its originating task.
func (r Result) UUID() uuid.UUID { return r.id }

// Retcode returns the return code. 0 and codes in [2,299] are success codes.
func (r Result) Retcode() uint16 { return r.retcode }

// Stdout returns the success payload and whether one is present.
func (r Result) Stdout() (string, bool) {
	if r.stdout == nil {
		return "", false
	}
	return *r.stdout, true
}

// Stderr returns the failure payload and whether one is present.
func (r Result) Stderr() (string, bool) {
	if r.stderr == nil {
		return "", false
	}
	return *r.stderr, true
}

// Retval returns the return value map. The map is shared with the Result;
// callers that need isolation should copy it.
func (r Result) Retval() map[string]any { return r.retval }

// Value looks up a single entry in the return value map.
func (r Result) Value(key string) (any, bool) {
	v, ok := r.retval[key]
	return v, ok
}

// SetStdout replaces the success payload.
func (r *Result) SetStdout(out string) { r.stdout = &out }

// SetStderr replaces the failure payload.
func (r *Result) SetStderr(errOut string) { r.stderr = &errOut }

// SetRetcode replaces the return code.
func (r *Result) SetRetcode(code uint16) { r.retcode = code }

// SetValue stores a single entry in the return value map.
func (r *Result) SetValue(key string, value any) {
	if r.retval == nil {
		r.retval = make(map[string]any)
	}
	r.retval[key] = value
}

// IsError reports whether the result represents a failure. A result is an
// error when the return code is >= 300 (HTTP-style error codes) or exactly 1
// (the traditional Unix failure exit code). Codes in {0} ∪ [2,299] are
// success codes; the asymmetry around 1 is intentional and relied upon by
// downstream consumers.
func (r Result) IsError() bool {
	return r.retcode >= 300 || r.retcode == 1
}

// Merge combines the receiver with a more recent result, producing a new
// Result without mutating either operand. The combination is right-biased:
//
//   - the other result's UUID wins,
//   - the return code is the maximum of both,
//   - stdout and stderr each take the other's value when present, falling
//     back to the receiver's,
//   - the return value maps are unioned, the other's entries overwriting the
//     receiver's on key conflicts.
//
// Merge is associative but not commutative; folds must follow execution order.
func (r Result) Merge(other Result) Result {
	merged := Result{
		id:      other.id,
		retcode: r.retcode,
		retval:  make(map[string]any, len(r.retval)+len(other.retval)),
	}
	if other.retcode > r.retcode {
		merged.retcode = other.retcode
	}

	if other.stdout != nil {
		merged.stdout = other.stdout
	} else {
		merged.stdout = r.stdout
	}
	if other.stderr != nil {
		merged.stderr = other.stderr
	} else {
		merged.stderr = r.stderr
	}

	for k, v := range r.retval {
		merged.retval[k] = v
	}
	for k, v := range other.retval {
		merged.retval[k] = v
	}

	return merged
}

// String formats the result for logging, showing either the success or the
// failure state.
func (r Result) String() string {
	if r.IsError() {
		stderr, _ := r.Stderr()
		return fmt.Sprintf("Err(%d, stderr: %q)", r.retcode, stderr)
	}
	stdout, _ := r.Stdout()
	return fmt.Sprintf("Ok(%d, stdout: %q)", r.retcode, stdout)
}

// resultDTO is the stable external representation of a Result.
type resultDTO struct {
	UUID    string         `json:"uuid"`
	Retcode uint16         `json:"retcode"`
	Stdout  *string        `json:"stdout,omitempty"`
	Stderr  *string        `json:"stderr,omitempty"`
	Retval  map[string]any `json:"retval"`
}

// MarshalJSON serializes the Result as a structured record with its five
// fields.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultDTO{
		UUID:    r.id.String(),
		Retcode: r.retcode,
		Stdout:  r.stdout,
		Stderr:  r.stderr,
		Retval:  r.retval,
	})
}

// UnmarshalJSON deserializes a Result from its structured record form. An
// absent or empty uuid decodes as uuid.Nil so partially populated records
// stay decodable; envelopes re-key such results to their own identity.
func (r *Result) UnmarshalJSON(data []byte) error {
	var dto resultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}

	var id uuid.UUID
	if dto.UUID != "" {
		var err error
		id, err = uuid.Parse(dto.UUID)
		if err != nil {
			return fmt.Errorf("invalid result uuid: %w", err)
		}
	}

	r.id = id
	r.retcode = dto.Retcode
	r.stdout = dto.Stdout
	r.stderr = dto.Stderr
	r.retval = dto.Retval
	if r.retval == nil {
		r.retval = make(map[string]any)
	}

	return nil
}
